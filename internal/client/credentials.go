package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CredentialStore persists the session token between runs.
type CredentialStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

// FileCredentialStore keeps the token in a mode-0600 file.
type FileCredentialStore struct {
	Path string
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{Path: path}
}

func (f *FileCredentialStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token), 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Load returns the saved token, or "" when none is stored.
func (f *FileCredentialStore) Load() (string, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (f *FileCredentialStore) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
