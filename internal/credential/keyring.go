// Package credential keeps account passwords in the operating system keyring.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "webmail-driver"

// ErrNotFound is returned by Get when no password is stored for the account.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes passwords keyed by provider and username.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring. dir is where the encrypted file backend
// keeps its data when no native keyring is available.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "~/.config/webmail-driver/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("webmail-driver-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Key returns the keyring key of an account.
func Key(providerName, username string) string {
	return strings.ToLower(providerName) + ":" + strings.ToLower(strings.TrimSpace(username))
}

// Get returns the stored password of username at providerName.
func (s *Store) Get(providerName, username string) (string, error) {
	key := Key(providerName, username)
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores password for username at providerName.
func (s *Store) Set(providerName, username, password string) error {
	key := Key(providerName, username)
	err := s.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(password),
		Label:       serviceName + " " + key,
		Description: "webmail account password",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes the stored password. Backends that report missing entries
// yield ErrNotFound.
func (s *Store) Delete(providerName, username string) error {
	key := Key(providerName, username)
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
