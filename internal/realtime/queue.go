package realtime

import "sync"

// queue is an unbounded FIFO feeding a channel, so the socket reader never
// blocks on a slow consumer.
type queue struct {
	mu      sync.Mutex
	items   []Event
	closed  bool
	notify  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	out     chan Event
	once    sync.Once
}

func newQueue() *queue {
	q := &queue{
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		out:     make(chan Event),
	}
	go q.run()
	return q
}

func (q *queue) push(ev Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue) run() {
	defer close(q.stopped)
	defer close(q.out)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		ev := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- ev:
		case <-q.done:
			return
		}
	}
}

// close discards pending events and returns once the output channel is
// closed; nothing is delivered after it returns.
func (q *queue) close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.items = nil
		q.mu.Unlock()
		close(q.done)
	})
	<-q.stopped
}
