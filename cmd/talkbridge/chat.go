package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/api"
	"github.com/eldtechnologies/talkbridge/internal/config"
	"github.com/eldtechnologies/talkbridge/internal/conversation"
	"github.com/eldtechnologies/talkbridge/internal/handlers"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/realtime"
	"github.com/eldtechnologies/talkbridge/internal/recorder"
	"github.com/eldtechnologies/talkbridge/internal/session"
	"github.com/eldtechnologies/talkbridge/internal/store"
)

// runChat wires the chat screen for sess and runs it until the user quits
// or ctx is cancelled. Teardown always runs.
func runChat(ctx context.Context, cfg *config.Config, logger zerolog.Logger, client *talkbridge.Client, sess models.Session, in *bufio.Scanner) error {
	sessions := session.NewStore()
	sessions.Set(sess)
	defer sessions.Clear()

	var archive store.Archive
	if cfg.TranscriptURL != "" {
		a, err := store.Open(ctx, cfg.TranscriptURL)
		if err != nil {
			return fmt.Errorf("open transcript archive: %w", err)
		}
		defer a.Close()
		archive = a
		logger.Info().Msg("transcript archive enabled")
	}

	device := &recorder.CommandDevice{
		Command:     cfg.CaptureCommand,
		InputFormat: cfg.CaptureInputFormat,
		Input:       cfg.CaptureInput,
		Logger:      logger,
	}
	player := &recorder.CommandPlayer{Command: cfg.PlayerCommand}
	rec := recorder.New(device, player, logger)

	channel := realtime.New(logger, realtime.Options{
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
	})

	conv := conversation.New(conversation.Deps{
		Store:    sessions,
		Gateway:  client,
		Channel:  channel,
		Recorder: rec,
		Archive:  archive,
		Logger:   logger,
	}, conversation.Options{
		Endpoint:          cfg.ServerURL,
		MinUtteranceBytes: cfg.MinUtteranceBytes,
	})
	defer conv.Deactivate()

	if err := conv.Activate(ctx); err != nil {
		return err
	}

	if cfg.ControlAddr != "" {
		srv := &http.Server{
			Addr:         cfg.ControlAddr,
			Handler:      api.NewRouter(logger, handlers.NewHandler(conv, client, archive), cfg.ControlOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute, // talk/stop waits for the translation
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.ControlAddr).Msg("control API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("control API failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("control API shutdown")
			}
		}()
	}

	fmt.Println("Press Enter to start recording and Enter again to send. 'p <n>' plays message n, 'q' quits.")

	view := &chatView{conv: conv, out: os.Stdout}
	go view.follow(ctx)

	return readCommands(ctx, conv, in)
}

// readCommands drives the controller from terminal lines.
func readCommands(ctx context.Context, conv *conversation.Controller, in *bufio.Scanner) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			select {
			case lines <- strings.TrimSpace(in.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch {
		case line == "q" || line == "quit":
			return nil

		case line == "":
			if conv.Status().Recording {
				fmt.Println("Processing...")
				if _, err := conv.PressEnd(ctx); err != nil {
					fmt.Println("!", conversation.UserMessage(err))
				}
			} else if err := conv.PressStart(ctx); err != nil {
				fmt.Println("!", conversation.UserMessage(err))
			} else {
				fmt.Println("Recording... press Enter to send")
			}

		case strings.HasPrefix(line, "p "):
			n, err := strconv.Atoi(strings.TrimSpace(line[2:]))
			msgs := conv.Messages()
			if err != nil || n < 1 || n > len(msgs) {
				fmt.Println("! no such message")
				continue
			}
			if err := conv.Play(ctx, msgs[n-1].LocalID); err != nil {
				fmt.Println("!", conversation.UserMessage(err))
			}

		default:
			fmt.Println("! unknown command")
		}
	}
}

// chatView prints thread and presence changes as they happen.
type chatView struct {
	conv    *conversation.Controller
	out     io.Writer
	printed int
	history bool
	peer    string
	lastErr string
}

func (v *chatView) follow(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.conv.Changes():
			v.render()
		}
	}
}

func (v *chatView) render() {
	if sess, ok := v.conv.Session(); ok && sess.OtherUserLanguage != "" && sess.OtherUserName != v.peer {
		v.peer = sess.OtherUserName
		fmt.Fprintf(v.out, "* %s joined (%s)\n", sess.OtherUserName, sess.OtherUserLanguage)
	}

	st := v.conv.Status()
	msgs := v.conv.Messages()
	if st.History && !v.history {
		// history lands ahead of anything already shown
		v.history = true
		if v.printed > 0 || len(msgs) > 0 {
			fmt.Fprintln(v.out, "-- conversation --")
		}
		v.printed = 0
	}
	for i := v.printed; i < len(msgs); i++ {
		fmt.Fprintln(v.out, formatMessage(i+1, msgs[i], v.peer))
	}
	v.printed = len(msgs)

	if st.Error != "" && st.Error != v.lastErr {
		fmt.Fprintln(v.out, "!", st.Error)
		v.lastErr = st.Error
	} else if st.Error == "" {
		v.lastErr = ""
	}
}

func formatMessage(n int, m models.Message, peer string) string {
	who := "you"
	if !m.IsMine {
		who = peer
		if who == "" {
			who = string(m.SenderRole)
		}
	}
	line := fmt.Sprintf("[%d] %s %s: %s -> %s", n, m.Timestamp.Local().Format("15:04"), who, m.OriginalText, m.TranslatedText)
	if m.AudioURL != "" {
		line += " (audio)"
	}
	return line
}
