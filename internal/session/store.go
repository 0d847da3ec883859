package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Token sources.
const (
	SourceFile = "file"
	SourceEnv  = "env"
)

// Credential is what durable storage holds: a single bearer token.
type Credential struct {
	Token     string    `json:"token"`
	Source    string    `json:"source"`     // "env" | "file"
	CreatedAt time.Time `json:"created_at"` // when we saved to file
}

// Storage persists the credential across restarts.
// Load returns (nil, nil) when nothing is stored.
type Storage interface {
	Load() (*Credential, error)
	Save(token string) error
	Delete() error
}

// FileStore keeps the token in a JSON file readable only by its owner.
// When EnvKey names a non-empty environment variable, Load returns that
// token instead of the file's.
type FileStore struct {
	Path   string
	EnvKey string
}

var _ Storage = (*FileStore)(nil)

// DefaultPath is ~/.workpanel/credentials.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".workpanel", "credentials.json"), nil
}

func (fs *FileStore) Load() (*Credential, error) {
	// 1) env override
	if fs.EnvKey != "" {
		if env := strings.TrimSpace(os.Getenv(fs.EnvKey)); env != "" {
			return &Credential{Token: stripBearer(env), Source: SourceEnv}, nil
		}
	}

	// 2) file
	b, err := os.ReadFile(fs.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if c.Token == "" {
		return nil, nil
	}
	c.Source = SourceFile
	return &c, nil
}

func (fs *FileStore) Save(token string) error {
	// ensure the directory exists with 0700
	if err := os.MkdirAll(filepath.Dir(fs.Path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	c := Credential{
		Token:     token,
		Source:    SourceFile,
		CreatedAt: time.Now(),
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// write to a sibling then rename so a crash never leaves half a token
	tmp := fs.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, fs.Path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (fs *FileStore) Delete() error {
	if err := os.Remove(fs.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// MemoryStore is a Storage that lives only as long as the process.
type MemoryStore struct {
	mu    sync.Mutex
	cred  *Credential
	saves int
}

var _ Storage = (*MemoryStore)(nil)

// NewMemoryStore optionally starts out holding token.
func NewMemoryStore(token string) *MemoryStore {
	m := &MemoryStore{}
	if token != "" {
		m.cred = &Credential{Token: token, Source: SourceFile, CreatedAt: time.Now()}
	}
	return m
}

func (m *MemoryStore) Load() (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = &Credential{Token: token, Source: SourceFile, CreatedAt: time.Now()}
	m.saves++
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}

// Saves counts successful Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
