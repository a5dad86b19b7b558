package models

// RecordingState describes what the audio subsystem is doing.
type RecordingState string

const (
	StateIdle       RecordingState = "idle"
	StateRecording  RecordingState = "recording"
	StateProcessing RecordingState = "processing"
	StatePlaying    RecordingState = "playing"
)

// Language is a selectable conversation language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the languages offered at session setup.
var Languages = []Language{
	{Code: "es", Name: "Español"},
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "Français"},
	{Code: "de", Name: "Deutsch"},
	{Code: "it", Name: "Italiano"},
	{Code: "pt", Name: "Português"},
	{Code: "zh", Name: "中文"},
	{Code: "ja", Name: "日本語"},
}

// IsSupportedLanguage reports whether code is in Languages.
func IsSupportedLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}
