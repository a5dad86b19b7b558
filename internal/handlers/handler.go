package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/conversation"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/recorder"
	"github.com/eldtechnologies/talkbridge/internal/store"
)

// Conversation is the chat controller as the control API drives it.
type Conversation interface {
	Session() (models.Session, bool)
	Messages() []models.Message
	Status() conversation.Status
	PressStart(ctx context.Context) error
	PressEnd(ctx context.Context) (models.Message, error)
	Play(ctx context.Context, localID string) error
}

// ServerChecker reports translation server health.
type ServerChecker interface {
	Health(ctx context.Context) (*talkbridge.HealthResponse, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	conv    Conversation
	server  ServerChecker
	archive store.Archive // nil when archiving is disabled
}

// NewHandler creates a new Handler. archive may be nil.
func NewHandler(conv Conversation, server ServerChecker, archive store.Archive) *Handler {
	return &Handler{conv: conv, server: server, archive: archive}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Fail answers with the user-facing text of a controller error.
func (h *Handler) Fail(w http.ResponseWriter, err error) {
	h.Error(w, statusFor(err), conversation.UserMessage(err))
}

// statusFor maps controller errors onto HTTP status codes.
func statusFor(err error) int {
	if _, ok := talkbridge.AsAPIError(err); ok {
		return http.StatusBadGateway
	}
	if talkbridge.IsCommunication(err) {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, conversation.ErrNoSession),
		errors.Is(err, conversation.ErrUnknownMessage):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrPeerNotJoined):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrNoAudio),
		errors.Is(err, conversation.ErrTooShort),
		errors.Is(err, conversation.ErrNoAudioURL):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recorder.ErrPermissionDenied),
		errors.Is(err, recorder.ErrDeviceNotFound),
		errors.Is(err, recorder.ErrDeviceBusy),
		errors.Is(err, recorder.ErrUnsupported),
		errors.Is(err, recorder.ErrNoSupportedFormat):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
