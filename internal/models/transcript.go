package models

import "time"

// TranscriptEntry is one archived message of a session.
type TranscriptEntry struct {
	ID             string    `json:"id"` // ULID
	SessionID      string    `json:"session_id"`
	Fingerprint    string    `json:"fingerprint"`
	SenderRole     Role      `json:"sender_role"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	AudioURL       string    `json:"audio_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewTranscriptEntry captures a thread message for the archive.
func NewTranscriptEntry(sessionID string, m Message) TranscriptEntry {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return TranscriptEntry{
		SessionID:      sessionID,
		Fingerprint:    m.Fingerprint(),
		SenderRole:     m.SenderRole,
		OriginalText:   m.OriginalText,
		TranslatedText: m.TranslatedText,
		AudioURL:       m.AudioURL,
		Timestamp:      ts,
	}
}
