package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/session"
)

// SessionAPI is the subset of the server client used during setup.
type SessionAPI interface {
	CreateSession(ctx context.Context, userName, userLanguage string) (*talkbridge.CreateSessionResponse, error)
	JoinSession(ctx context.Context, sessionID, userName, userLanguage string) (*talkbridge.JoinSessionResponse, error)
}

func createSession(ctx context.Context, api SessionAPI, s session.Setup) (models.Session, error) {
	s, err := session.ValidateCreate(s)
	if err != nil {
		return models.Session{}, err
	}
	resp, err := api.CreateSession(ctx, s.Name, s.Language)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		SessionID:  resp.SessionID,
		UserRole:   resp.UserRole,
		MyName:     s.Name,
		MyLanguage: s.Language,
	}, nil
}

func joinSession(ctx context.Context, api SessionAPI, s session.Setup) (models.Session, error) {
	s, err := session.ValidateJoin(s)
	if err != nil {
		return models.Session{}, err
	}
	resp, err := api.JoinSession(ctx, s.SessionID, s.Name, s.Language)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		SessionID:         s.SessionID,
		UserRole:          resp.UserRole,
		MyName:            s.Name,
		MyLanguage:        s.Language,
		OtherUserName:     resp.OtherUser.Name,
		OtherUserLanguage: resp.OtherUser.Language,
	}, nil
}

// promptSetup asks for create/join details and performs the call. in is
// shared with the chat loop, so it reads exactly one line per prompt.
func promptSetup(ctx context.Context, api SessionAPI, in *bufio.Scanner, out io.Writer) (models.Session, error) {
	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(in.Text()), nil
	}

	mode, err := ask("Create a new session or join one? [c/j]: ")
	if err != nil {
		return models.Session{}, err
	}
	name, err := ask("Your name: ")
	if err != nil {
		return models.Session{}, err
	}

	var codes []string
	for _, l := range models.Languages {
		codes = append(codes, l.Code)
	}
	lang, err := ask(fmt.Sprintf("Your language (%s): ", strings.Join(codes, ", ")))
	if err != nil {
		return models.Session{}, err
	}

	if strings.HasPrefix(strings.ToLower(mode), "j") {
		code, err := ask("Session code: ")
		if err != nil {
			return models.Session{}, err
		}
		return joinSession(ctx, api, session.Setup{Name: name, Language: lang, SessionID: code})
	}

	sess, err := createSession(ctx, api, session.Setup{Name: name, Language: lang})
	if err == nil {
		fmt.Fprintf(out, "Session code: %s (share it with the other participant)\n", sess.SessionID)
	}
	return sess, err
}
