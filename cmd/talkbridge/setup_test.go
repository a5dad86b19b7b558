package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/session"
)

type fakeSessionAPI struct {
	created []string
	joined  []string
}

func (f *fakeSessionAPI) CreateSession(_ context.Context, name, lang string) (*talkbridge.CreateSessionResponse, error) {
	f.created = append(f.created, name+"/"+lang)
	return &talkbridge.CreateSessionResponse{SessionID: "ABC123", UserRole: models.RoleCreator}, nil
}

func (f *fakeSessionAPI) JoinSession(_ context.Context, id, name, lang string) (*talkbridge.JoinSessionResponse, error) {
	f.joined = append(f.joined, id+"/"+name+"/"+lang)
	return &talkbridge.JoinSessionResponse{
		UserRole:  models.RoleJoiner,
		OtherUser: talkbridge.Participant{Name: "Alice", Language: "es"},
	}, nil
}

func TestCreateSession(t *testing.T) {
	api := &fakeSessionAPI{}
	sess, err := createSession(context.Background(), api, session.Setup{Name: " Alice ", Language: "es"})
	if err != nil {
		t.Fatalf("createSession: %v", err)
	}
	want := models.Session{SessionID: "ABC123", UserRole: models.RoleCreator, MyName: "Alice", MyLanguage: "es"}
	if sess != want {
		t.Errorf("session = %+v, want %+v", sess, want)
	}
	if sess.PeerJoined() {
		t.Error("a new session has no peer")
	}
}

func TestJoinSessionFillsPeer(t *testing.T) {
	api := &fakeSessionAPI{}
	sess, err := joinSession(context.Background(), api, session.Setup{SessionID: "abc123", Name: "Bob", Language: "en"})
	if err != nil {
		t.Fatalf("joinSession: %v", err)
	}
	if sess.SessionID != "ABC123" || sess.UserRole != models.RoleJoiner {
		t.Errorf("unexpected session %+v", sess)
	}
	if sess.OtherUserName != "Alice" || sess.OtherUserLanguage != "es" {
		t.Errorf("peer not filled: %+v", sess)
	}
	if len(api.joined) != 1 || api.joined[0] != "ABC123/Bob/en" {
		t.Errorf("joined = %v", api.joined)
	}
}

func TestSetupValidationSkipsServer(t *testing.T) {
	api := &fakeSessionAPI{}
	if _, err := createSession(context.Background(), api, session.Setup{Name: "Alice", Language: "klingon"}); !errors.Is(err, session.ErrUnknownLanguage) {
		t.Errorf("expected ErrUnknownLanguage, got %v", err)
	}
	if len(api.created) != 0 {
		t.Error("invalid setup reached the server")
	}
}

func TestPromptSetup(t *testing.T) {
	api := &fakeSessionAPI{}
	var out bytes.Buffer
	sess, err := promptSetup(context.Background(), api, bufio.NewScanner(strings.NewReader("j\nBob\nen\nxyz789\n")), &out)
	if err != nil {
		t.Fatalf("promptSetup: %v", err)
	}
	if sess.SessionID != "XYZ789" || sess.MyName != "Bob" {
		t.Errorf("unexpected session %+v", sess)
	}

	out.Reset()
	sess, err = promptSetup(context.Background(), api, bufio.NewScanner(strings.NewReader("c\nAlice\nes\n")), &out)
	if err != nil {
		t.Fatalf("promptSetup: %v", err)
	}
	if sess.SessionID != "ABC123" || !strings.Contains(out.String(), "Session code: ABC123") {
		t.Errorf("session=%+v output=%q", sess, out.String())
	}

	if _, err := promptSetup(context.Background(), api, bufio.NewScanner(strings.NewReader("c\n")), &out); err == nil {
		t.Error("expected error on truncated input")
	}
}

func TestPromptSetupLeavesChatInput(t *testing.T) {
	api := &fakeSessionAPI{}
	var out bytes.Buffer
	in := bufio.NewScanner(strings.NewReader("c\nAlice\nes\n\np 1\nq\n"))

	if _, err := promptSetup(context.Background(), api, in, &out); err != nil {
		t.Fatalf("promptSetup: %v", err)
	}

	var rest []string
	for in.Scan() {
		rest = append(rest, in.Text())
	}
	want := []string{"", "p 1", "q"}
	if strings.Join(rest, "|") != strings.Join(want, "|") {
		t.Errorf("chat input after setup = %q, want %q", rest, want)
	}
}

func TestFormatMessage(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	mine := formatMessage(1, models.Message{IsMine: true, OriginalText: "hola", TranslatedText: "hello", Timestamp: ts}, "Bob")
	if mine != "[1] 09:30 you: hola -> hello" {
		t.Errorf("mine = %q", mine)
	}
	theirs := formatMessage(2, models.Message{SenderRole: models.RoleJoiner, OriginalText: "hi", TranslatedText: "hola", AudioURL: "u", Timestamp: ts}, "")
	if theirs != "[2] 09:30 user2: hi -> hola (audio)" {
		t.Errorf("theirs = %q", theirs)
	}
}
