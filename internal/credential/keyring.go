// Package credential keeps the mail account password in the OS keyring
// so it does not have to live in the config file or the environment.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/mailwatch/internal/model"
)

const serviceName = "mailwatch"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes account passwords in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the system keyring, falling back to an
// encrypted file under ~/.config/mailwatch/credentials.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailwatch/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailwatch-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an existing keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func passwordKey(account string) string {
	return "password:" + account
}

// Password returns the stored password for account.
func (s *Store) Password(account string) (string, error) {
	item, err := s.ring.Get(passwordKey(account))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting password for %q: %w", account, err)
	}
	return string(item.Data), nil
}

// SetPassword stores password for account, replacing any previous value.
func (s *Store) SetPassword(account, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:         passwordKey(account),
		Data:        []byte(password),
		Label:       "mailwatch: " + account,
		Description: "mail account password",
	})
	if err != nil {
		return fmt.Errorf("setting password for %q: %w", account, err)
	}
	return nil
}

// DeletePassword removes the stored password for account.
func (s *Store) DeletePassword(account string) error {
	err := s.ring.Remove(passwordKey(account))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting password for %q: %w", account, err)
	}
	return nil
}

// FillPassword sets cfg.Account.Password from the keyring when the
// configuration did not provide one. It reports whether the keyring
// supplied the password. A missing entry is not an error.
func (s *Store) FillPassword(cfg *model.AppConfig) (bool, error) {
	if cfg.Account.Password != "" || cfg.Account.Address == "" {
		return false, nil
	}

	password, err := s.Password(cfg.Account.Address)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cfg.Account.Password = password
	return true, nil
}
