package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine.IO v4 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketAck          = '3'
	socketConnectError = '4'
)

var errEmptyPacket = errors.New("empty packet")

// packet is one decoded websocket text frame.
type packet struct {
	engine byte
	socket byte   // set only for engine messages
	data   string // payload after the type bytes
}

func decodePacket(raw string) (packet, error) {
	if raw == "" {
		return packet{}, errEmptyPacket
	}
	p := packet{engine: raw[0], data: raw[1:]}
	if p.engine != engineMessage {
		return p, nil
	}
	if p.data == "" {
		return p, fmt.Errorf("message packet without socket type")
	}
	p.socket = p.data[0]
	p.data = p.data[1:]
	return p, nil
}

// openPayload is the handshake body of the Engine.IO open packet.
type openPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // ms
	PingTimeout  int      `json:"pingTimeout"`  // ms
	MaxPayload   int      `json:"maxPayload"`
}

// stripHeader removes the optional namespace ("/chat,") and ack id that
// precede the JSON body of a Socket.IO packet.
func stripHeader(data string) string {
	if strings.HasPrefix(data, "/") {
		if i := strings.IndexByte(data, ','); i >= 0 {
			data = data[i+1:]
		}
	}
	i := 0
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	return data[i:]
}

// decodeEvent splits an event body into its name and first argument.
func decodeEvent(data string) (string, json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(stripHeader(data)), &args); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("decode event: empty argument list")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// encodeEvent builds the frame for emitting an event on the default namespace.
func encodeEvent(name string, payload any) (string, error) {
	body, err := json.Marshal([]any{name, payload})
	if err != nil {
		return "", err
	}
	return string([]byte{engineMessage, socketEvent}) + string(body), nil
}

// connectFrame requests the default namespace.
func connectFrame() string {
	return string([]byte{engineMessage, socketConnect})
}

// disconnectFrame leaves the default namespace.
func disconnectFrame() string {
	return string([]byte{engineMessage, socketDisconnect})
}
