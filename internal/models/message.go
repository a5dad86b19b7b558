package models

import (
	"strings"
	"time"
)

// Message is one entry of the conversation thread.
type Message struct {
	LocalID        string    `json:"local_id"`     // client-assigned, stable for the thread lifetime
	ID             string    `json:"id,omitempty"` // server-assigned, history messages only
	IsMine         bool      `json:"is_mine"`
	SenderRole     Role      `json:"sender_role"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	AudioURL       string    `json:"audio_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsPlaying      bool      `json:"is_playing"`
}

// Fingerprint identifies a message by content, for matching relayed
// messages against history entries that carry a server ID.
func (m Message) Fingerprint() string {
	return strings.Join([]string{string(m.SenderRole), m.OriginalText, m.TranslatedText, m.AudioURL}, "|")
}

// MessagePayload is a message as the server serializes it, both in
// history responses and in new_message events.
type MessagePayload struct {
	ID             string `json:"id,omitempty"`
	SenderRole     Role   `json:"sender_role"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	AudioURL       string `json:"audio_url,omitempty"`
	SourceLang     string `json:"source_lang,omitempty"`
	TargetLang     string `json:"target_lang,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// timestampLayouts covers ISO-8601 with and without zone. The server emits
// naive timestamps in its local time, which is taken to be ours.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a server timestamp. The zero time is returned for
// empty or unparseable input.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UserJoinedPayload is the body of a user_joined event.
type UserJoinedPayload struct {
	UserName     string `json:"user_name"`
	UserLanguage string `json:"user_language"`
}

// JoinSessionPayload is the body of the outbound join_session event.
type JoinSessionPayload struct {
	SessionID string `json:"session_id"`
	UserRole  Role   `json:"user_role"`
}
