package credstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shoenig/go-conceal"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// FileOptions configures a file-backed store.
type FileOptions struct {
	Path string
	// SealKey enables at-rest encryption when non-nil.
	SealKey *[32]byte
}

// FileStore keeps the token pair in a single JSON document on disk.
type FileStore struct {
	path string
	key  *[32]byte
	mu   sync.Mutex
}

// DefaultPath returns the per-profile token file in the user config dir.
func DefaultPath(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "digibank", profile, "tokens.json"), nil
}

// NewFileStore builds a file-backed store.
func NewFileStore(options FileOptions) (*FileStore, error) {
	if options.Path == "" {
		return nil, errors.New("credstore: file path is required")
	}
	return &FileStore{path: options.Path, key: options.SealKey}, nil
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Store(_ context.Context, pair TokenPair) error {
	data, err := encode(pair)
	if err != nil {
		return err
	}
	if s.key != nil {
		if data, err = seal(data, s.key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("credstore: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credstore: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credstore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credstore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("credstore: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (TokenPair, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, fmt.Errorf("credstore: read: %w", err)
	}
	if s.key != nil {
		if data, err = open(data, s.key); err != nil {
			return TokenPair{}, err
		}
	}
	return decode(data)
}

func (s *FileStore) AccessToken(ctx context.Context) (*conceal.Text, error) {
	return accessToken(s.Load(ctx))
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credstore: remove: %w", err)
	}
	return nil
}

func seal(data []byte, key *[32]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("credstore: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], data, &nonce, key), nil
}

func open(data []byte, key *[32]byte) ([]byte, error) {
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, errors.New("credstore: sealed file is truncated")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("credstore: sealed file cannot be opened with the configured key")
	}
	return plain, nil
}
