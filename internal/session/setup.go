package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrCodeRequired    = errors.New("session code is required")
	ErrUnknownLanguage = errors.New("unsupported language")
)

const maxNameLength = 100

// Setup is what a participant enters before creating or joining a session.
type Setup struct {
	Name      string
	Language  string
	SessionID string // join only
}

// CleanName trims a display name, removes control characters and limits
// it to 100 characters.
func CleanName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

// NormalizeCode trims and upper-cases a session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCreate normalizes and checks a create form.
func ValidateCreate(s Setup) (Setup, error) {
	s.Name = CleanName(s.Name)
	s.Language = strings.ToLower(strings.TrimSpace(s.Language))
	if s.Name == "" {
		return s, ErrNameRequired
	}
	if !models.IsSupportedLanguage(s.Language) {
		return s, fmt.Errorf("%w: %q", ErrUnknownLanguage, s.Language)
	}
	return s, nil
}

// ValidateJoin normalizes and checks a join form.
func ValidateJoin(s Setup) (Setup, error) {
	s.SessionID = NormalizeCode(s.SessionID)
	s, err := ValidateCreate(s)
	if err != nil {
		return s, err
	}
	if s.SessionID == "" {
		return s, ErrCodeRequired
	}
	return s, nil
}
