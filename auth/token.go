// Package auth provides the persisted OAuth token of the CRM platform and its
// refresh.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoToken is returned, if no token has been stored yet.
var ErrNoToken = errors.New("No access token stored")

// Token is an OAuth token.
type Token struct {
	AccessToken  string    `yaml:"access_token" json:"access_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	TokenType    string    `yaml:"token_type,omitempty" json:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty" json:"expiry,omitempty"`
}

// Expired returns true, if the token expires within the margin. Tokens
// without expiry never expire.
func (t *Token) Expired(margin time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.Expiry)
}

// Store persists a token.
type Store interface {
	Load() (*Token, error)
	Save(*Token) error
}

// FileStore stores the token as YAML file.
type FileStore struct {
	Path string

	mutex sync.Mutex
}

// Load reads the token from the file. ErrNoToken is returned, if the file does
// not exist.
func (s *FileStore) Load() (*Token, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	buf, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("Reading of token file %s failed: %w", s.Path, err)
	}
	t := &Token{}
	if err := yaml.Unmarshal(buf, t); err != nil {
		return nil, fmt.Errorf("Invalid token file %s: %w", s.Path, err)
	}
	if t.AccessToken == "" {
		return nil, ErrNoToken
	}
	return t, nil
}

// Save writes the token to the file. The file is only readable by the owner.
func (s *FileStore) Save(t *Token) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	buf, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("Creating of token directory failed: %w", err)
	}
	// replace atomically
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return fmt.Errorf("Writing of token file %s failed: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("Writing of token file %s failed: %w", s.Path, err)
	}
	return nil
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mutex sync.Mutex
	token *Token
}

// NewMemoryStore creates a MemoryStore holding t. t may be nil.
func NewMemoryStore(t *Token) *MemoryStore {
	return &MemoryStore{token: t}
}

// Load implements Store.
func (s *MemoryStore) Load() (*Token, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.token == nil || s.token.AccessToken == "" {
		return nil, ErrNoToken
	}
	t := *s.token
	return &t, nil
}

// Save implements Store.
func (s *MemoryStore) Save(t *Token) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	c := *t
	s.token = &c
	return nil
}
