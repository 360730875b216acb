// Package session holds the bearer token that authorizes API calls and
// persists it between runs using the OS keyring, with a 0600 file fallback
// when no keyring is available.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// TokenStore persists a single token. Load returns "" (and no error) when
// nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

const (
	keyringService = "schedule-cli"
	tokenFileName  = "session.token"
	tokenFileMode  = 0o600
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// KeyringStore keeps the token in the OS keyring under one account per server.
type KeyringStore struct {
	Service string
	Account string
}

func NewKeyringStore(server string) *KeyringStore {
	return &KeyringStore{Service: keyringService, Account: strings.TrimSpace(server)}
}

func (k *KeyringStore) Load() (string, error) {
	tok, err := keyringGet(k.Service, k.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(tok), nil
}

func (k *KeyringStore) Save(token string) error {
	return keyringSet(k.Service, k.Account, token)
}

func (k *KeyringStore) Delete() error {
	err := keyringDelete(k.Service, k.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStore keeps the token in <dir>/session.token with 0600 permissions.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) path() string {
	return filepath.Join(f.dir, tokenFileName)
}

func (f *FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".session.token.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, tokenFileMode); err != nil {
		return fmt.Errorf("chmod token: %w", err)
	}
	if err := os.Rename(tmpPath, f.path()); err != nil {
		return fmt.Errorf("rename token: %w", err)
	}
	return nil
}

func (f *FileStore) Delete() error {
	err := os.Remove(f.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FallbackStore prefers the keyring and switches to the file store for the
// rest of the process once the keyring fails.
type FallbackStore struct {
	primary  TokenStore
	fallback TokenStore

	mu          sync.Mutex
	useFallback bool
}

func NewFallbackStore(primary, fallback TokenStore) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback}
}

// NewDefaultStore is the store used by the CLI and TUI.
func NewDefaultStore(server, configDir string) *FallbackStore {
	return NewFallbackStore(NewKeyringStore(server), NewFileStore(configDir))
}

func (s *FallbackStore) active() TokenStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.useFallback {
		return s.fallback
	}
	return s.primary
}

func (s *FallbackStore) degrade() {
	s.mu.Lock()
	s.useFallback = true
	s.mu.Unlock()
}

func (s *FallbackStore) Load() (string, error) {
	if st := s.active(); st == s.fallback {
		return st.Load()
	}
	tok, err := s.primary.Load()
	if err != nil {
		s.degrade()
		return s.fallback.Load()
	}
	if tok == "" {
		// A token saved while the keyring was unavailable.
		return s.fallback.Load()
	}
	return tok, nil
}

func (s *FallbackStore) Save(token string) error {
	if st := s.active(); st == s.fallback {
		return st.Save(token)
	}
	if err := s.primary.Save(token); err != nil {
		s.degrade()
		return s.fallback.Save(token)
	}
	// Drop any stale file copy so Load doesn't resurrect an old token.
	_ = s.fallback.Delete()
	return nil
}

// Delete removes the token from both stores. A keyring failure is reported
// unless the keyring was already given up on, since the token may still be
// held there.
func (s *FallbackStore) Delete() error {
	perr := s.primary.Delete()
	ferr := s.fallback.Delete()
	if perr != nil && s.active() == s.primary {
		return fmt.Errorf("delete keyring token: %w", perr)
	}
	return ferr
}

// MemoryStore keeps the token in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
