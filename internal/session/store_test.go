package session

import (
	"testing"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get(); ok {
		t.Fatal("new store should be empty")
	}

	s.Set(models.Session{SessionID: "ABC123", UserRole: models.RoleCreator, MyName: "Alice", MyLanguage: "es"})
	got, ok := s.Get()
	if !ok || got.SessionID != "ABC123" {
		t.Fatalf("unexpected session %+v", got)
	}

	s.Clear()
	if _, ok := s.Get(); ok {
		t.Fatal("expected store to be cleared")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Set(models.Session{SessionID: "ABC123"})

	got, _ := s.Get()
	got.OtherUserLanguage = "en"

	again, _ := s.Get()
	if again.OtherUserLanguage != "" {
		t.Fatal("mutating a copy must not change the stored session")
	}
}

func TestUpdate(t *testing.T) {
	s := NewStore()
	if _, ok := s.Update(func(*models.Session) { t.Fatal("fn must not run on empty store") }); ok {
		t.Fatal("update on empty store should report false")
	}

	s.Set(models.Session{SessionID: "ABC123", UserRole: models.RoleCreator})
	updated, ok := s.Update(func(sess *models.Session) {
		sess.OtherUserName = "Bob"
		sess.OtherUserLanguage = "en"
	})
	if !ok {
		t.Fatal("expected update to apply")
	}
	if !updated.PeerJoined() {
		t.Error("expected peer to be joined after update")
	}
	got, _ := s.Get()
	if got.OtherUserName != "Bob" {
		t.Errorf("expected Bob, got %q", got.OtherUserName)
	}
}
