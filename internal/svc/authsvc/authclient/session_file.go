package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkrupp/fintrack/internal/domain"
)

// SessionStore persists the signed in session between runs.
type SessionStore interface {
	// Load returns the stored session, or nil if there is none.
	Load() (*domain.AuthSession, error)
	Save(session *domain.AuthSession) error
	Clear() error
}

// FileSessionStore keeps the session as JSON in a file readable by the owner only.
type FileSessionStore struct {
	path string
}

var _ SessionStore = (*FileSessionStore)(nil)

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load() (*domain.AuthSession, error) {
	buf, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil
	} else if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session domain.AuthSession
	if err := json.Unmarshal(buf, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

func (s *FileSessionStore) Save(session *domain.AuthSession) error {
	buf, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("rename session file: %w", err)
	}

	return nil
}

func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}

// MemorySessionStore keeps the session in memory only.
type MemorySessionStore struct {
	session *domain.AuthSession
}

var _ SessionStore = (*MemorySessionStore)(nil)

func (s *MemorySessionStore) Load() (*domain.AuthSession, error) {
	return s.session, nil
}

func (s *MemorySessionStore) Save(session *domain.AuthSession) error {
	s.session = session

	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.session = nil

	return nil
}
