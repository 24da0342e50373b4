package connection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/zalando/go-keyring"
)

const serviceName = "lazysearch"

// ErrPasswordNotFound is returned when no password is stored for a connection
var ErrPasswordNotFound = errors.New("password not found")

// PasswordStore keeps database passwords in the OS keyring
type PasswordStore struct {
	service string
}

// NewPasswordStore creates a password store
func NewPasswordStore() *PasswordStore {
	return &PasswordStore{service: serviceName}
}

// Save stores a password in the keyring
func (ps *PasswordStore) Save(config models.ConnectionConfig, password string) error {
	if password == "" {
		return nil
	}
	if err := keyring.Set(ps.service, makeKey(config), password); err != nil {
		return fmt.Errorf("failed to save password to keyring: %w", err)
	}
	return nil
}

// Get retrieves a password from the keyring
func (ps *PasswordStore) Get(config models.ConnectionConfig) (string, error) {
	password, err := keyring.Get(ps.service, makeKey(config))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrPasswordNotFound
		}
		return "", fmt.Errorf("failed to read password from keyring: %w", err)
	}
	return password, nil
}

// Delete removes a password from the keyring
func (ps *PasswordStore) Delete(config models.ConnectionConfig) error {
	err := keyring.Delete(ps.service, makeKey(config))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}
	return nil
}

// makeKey creates a unique key for password storage
// key format: "host:port:database:user"
func makeKey(config models.ConnectionConfig) string {
	return fmt.Sprintf("%s:%d:%s:%s", config.Host, config.Port, config.Database, config.User)
}

// ResolvePassword fills in config.Password when it is empty, trying the
// keyring first and ~/.pgpass second. A missing password is not an error;
// the server may not require one.
func ResolvePassword(config models.ConnectionConfig, store *PasswordStore) models.ConnectionConfig {
	if config.Password != "" {
		return config
	}
	if store != nil {
		if password, err := store.Get(config); err == nil {
			config.Password = password
			return config
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		config.Password = FindPassword(filepath.Join(home, ".pgpass"), config.Host, config.Port, config.Database, config.User)
	}
	return config
}
