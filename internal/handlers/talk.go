package handlers

import (
	"net/http"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

// TalkStopResponse carries the message appended by a completed utterance.
type TalkStopResponse struct {
	Message models.Message `json:"message"`
}

// TalkStart begins a press-to-talk recording.
func (h *Handler) TalkStart(w http.ResponseWriter, r *http.Request) {
	if err := h.conv.PressStart(r.Context()); err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusAccepted, h.conv.Status())
}

// TalkStop ends the recording and sends it for translation.
func (h *Handler) TalkStop(w http.ResponseWriter, r *http.Request) {
	msg, err := h.conv.PressEnd(r.Context())
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, TalkStopResponse{Message: msg})
}
