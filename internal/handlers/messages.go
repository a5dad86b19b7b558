package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/talkbridge/internal/conversation"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

// MessagesResponse represents the thread listing.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// ListMessages returns the conversation thread in display order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs := h.conv.Messages()
	h.JSON(w, http.StatusOK, MessagesResponse{Messages: msgs, Count: len(msgs)})
}

// PlayMessage plays a message's synthesized audio. It returns after
// playback ends.
func (h *Handler) PlayMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.Error(w, http.StatusBadRequest, "message id is required")
		return
	}

	if err := h.conv.Play(r.Context(), id); err != nil {
		h.Fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TranscriptResponse lists archived entries of the active session.
type TranscriptResponse struct {
	SessionID string                   `json:"session_id"`
	Entries   []models.TranscriptEntry `json:"entries"`
}

// Transcript returns the archived transcript of the active session.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.Error(w, http.StatusServiceUnavailable, "transcript archive is not configured")
		return
	}
	sess, ok := h.conv.Session()
	if !ok {
		h.Fail(w, conversation.ErrNoSession)
		return
	}

	entries, err := h.archive.ListMessages(r.Context(), sess.SessionID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	if entries == nil {
		entries = []models.TranscriptEntry{}
	}
	h.JSON(w, http.StatusOK, TranscriptResponse{SessionID: sess.SessionID, Entries: entries})
}
