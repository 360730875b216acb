package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSession_LoginLogoutLifecycle(t *testing.T) {
	t.Parallel()

	store := &MemoryStore{}
	s, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.LoggedIn() {
		t.Fatalf("expected logged out initially")
	}
	if !errors.Is(s.Require(), ErrNotLoggedIn) {
		t.Fatalf("Require: expected ErrNotLoggedIn")
	}

	logouts := 0
	s.OnLogout(func() { logouts++ })

	if err := s.Login(" tok-1 "); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := s.BearerHeader(); got != "Bearer tok-1" {
		t.Fatalf("BearerHeader = %q", got)
	}
	if stored, _ := store.Load(); stored != "tok-1" {
		t.Fatalf("expected token persisted; got %q", stored)
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if logouts != 1 {
		t.Fatalf("expected logout hook to fire once; got %d", logouts)
	}
	if s.Token() != "" || s.BearerHeader() != "" {
		t.Fatalf("expected cleared token")
	}
	if stored, _ := store.Load(); stored != "" {
		t.Fatalf("expected persisted token cleared; got %q", stored)
	}
}

func TestSession_LoadsPersistedToken(t *testing.T) {
	t.Parallel()

	store := &MemoryStore{}
	_ = store.Save("persisted")
	s, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Token() != "persisted" {
		t.Fatalf("Token = %q", s.Token())
	}
}

func TestSession_LoginRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	s, _ := New(nil)
	if err := s.Login("  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestFileStore_SaveLoadDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "nested"))

	if tok, err := fs.Load(); err != nil || tok != "" {
		t.Fatalf("Load on missing file: tok=%q err=%v", tok, err)
	}
	if err := fs.Save("abc"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := os.Stat(fs.path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != tokenFileMode {
		t.Fatalf("perm = %v, want %v", st.Mode().Perm(), os.FileMode(tokenFileMode))
	}
	if tok, _ := fs.Load(); tok != "abc" {
		t.Fatalf("Load = %q", tok)
	}
	if err := fs.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete(); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
}

func stubKeyring(t *testing.T, failing bool) map[string]string {
	t.Helper()
	origSet, origGet, origDelete := keyringSet, keyringGet, keyringDelete
	t.Cleanup(func() {
		keyringSet, keyringGet, keyringDelete = origSet, origGet, origDelete
	})

	data := map[string]string{}
	unavailable := errors.New("keyring unavailable")
	keyringSet = func(service, user, password string) error {
		if failing {
			return unavailable
		}
		data[service+"/"+user] = password
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		if failing {
			return "", unavailable
		}
		v, ok := data[service+"/"+user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return v, nil
	}
	keyringDelete = func(service, user string) error {
		if failing {
			return unavailable
		}
		if _, ok := data[service+"/"+user]; !ok {
			return keyring.ErrNotFound
		}
		delete(data, service+"/"+user)
		return nil
	}
	return data
}

// Tests below swap package-level keyring seams, so they don't run in parallel.

func TestFallbackStore_UsesKeyringWhenAvailable(t *testing.T) {
	data := stubKeyring(t, false)
	dir := t.TempDir()
	st := NewDefaultStore("http://localhost:8080", dir)

	if err := st.Save("kr-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if data[keyringService+"/http://localhost:8080"] != "kr-token" {
		t.Fatalf("expected token in keyring; got %v", data)
	}
	if _, err := os.Stat(filepath.Join(dir, tokenFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no token file when keyring works; err=%v", err)
	}
	if tok, err := st.Load(); err != nil || tok != "kr-token" {
		t.Fatalf("Load: tok=%q err=%v", tok, err)
	}
	if err := st.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if tok, _ := st.Load(); tok != "" {
		t.Fatalf("expected empty after delete; got %q", tok)
	}
}

func TestFallbackStore_FallsBackToFile(t *testing.T) {
	stubKeyring(t, true)
	dir := t.TempDir()
	st := NewDefaultStore("http://localhost:8080", dir)

	if err := st.Save("file-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, tokenFileName))
	if err != nil {
		t.Fatalf("expected token file: %v", err)
	}
	if string(b) != "file-token" {
		t.Fatalf("file content = %q", b)
	}

	// A fresh store (new process) degrades on Load as well.
	st2 := NewDefaultStore("http://localhost:8080", dir)
	if tok, err := st2.Load(); err != nil || tok != "file-token" {
		t.Fatalf("Load: tok=%q err=%v", tok, err)
	}
	if err := st2.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if tok, _ := st2.Load(); tok != "" {
		t.Fatalf("expected empty after delete; got %q", tok)
	}
}

func TestFallbackStore_DeleteReportsKeyringFailure(t *testing.T) {
	stubKeyring(t, false)
	dir := t.TempDir()
	st := NewDefaultStore("http://localhost:8080", dir)
	if err := st.Save("kr-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	locked := errors.New("keyring locked")
	keyringDelete = func(service, user string) error { return locked }

	if err := st.Delete(); !errors.Is(err, locked) {
		t.Fatalf("expected keyring error from Delete; got %v", err)
	}
	if tok, err := st.Load(); err != nil || tok != "kr-token" {
		t.Fatalf("token should still be readable from the keyring: tok=%q err=%v", tok, err)
	}
}
