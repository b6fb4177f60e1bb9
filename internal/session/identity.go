package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Identity is the per-profile session id and chosen username, persisted to a
// local file.
type Identity struct {
	mu   sync.RWMutex
	path string

	sessionID string
	username  string
}

type identityFile struct {
	Version   int    `json:"version"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username,omitempty"`
}

// Open loads the identity stored at path, creating it with a fresh session id
// when missing. An empty path keeps the identity in memory only.
func Open(path string) (*Identity, error) {
	id := &Identity{path: path}
	if path != "" {
		if err := id.load(); err != nil {
			return nil, err
		}
	}
	if id.sessionID == "" {
		id.sessionID = uuid.NewString()
		if err := id.save(); err != nil {
			return nil, err
		}
	}
	return id, nil
}

func (i *Identity) load() error {
	data, err := os.ReadFile(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read identity: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var file identityFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}
	if file.Version != 1 {
		return errors.New("unsupported identity version")
	}
	i.sessionID = file.SessionID
	if ValidateUsername(file.Username) == nil {
		i.username = file.Username
	}
	return nil
}

func (i *Identity) SessionID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sessionID
}

// Username returns the stored username, or "" when none has been chosen.
func (i *Identity) Username() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.username
}

// SetUsername normalises, validates and persists name.
func (i *Identity) SetUsername(name string) error {
	name = NormalizeUsername(name)
	if err := ValidateUsername(name); err != nil {
		return err
	}

	i.mu.Lock()
	prev := i.username
	i.username = name
	i.mu.Unlock()

	if err := i.save(); err != nil {
		i.mu.Lock()
		i.username = prev
		i.mu.Unlock()
		return err
	}
	return nil
}

func (i *Identity) save() error {
	if i.path == "" {
		return nil
	}

	i.mu.RLock()
	file := identityFile{Version: 1, SessionID: i.sessionID, Username: i.username}
	i.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(i.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("identity temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
