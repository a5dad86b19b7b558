package handlers

import (
	"net/http"

	"github.com/eldtechnologies/talkbridge/internal/conversation"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

// SessionResponse is the active session plus the send affordance.
type SessionResponse struct {
	Session models.Session `json:"session"`
	CanSend bool           `json:"can_send"`
}

// GetSession returns the active session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.conv.Session()
	if !ok {
		h.Fail(w, conversation.ErrNoSession)
		return
	}
	h.JSON(w, http.StatusOK, SessionResponse{
		Session: sess,
		CanSend: h.conv.Status().CanSend,
	})
}

// Status returns the recording/processing/error snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.conv.Status())
}
