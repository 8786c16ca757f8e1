package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Token is a named API access token for the graph API
type Token struct {
	Name         string    `json:"name"`
	AccessToken  string    `json:"access_token"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is the interface for storing and retrieving tokens
type TokenStore interface {
	// Store saves a token under its name
	Store(token *Token) error

	// Retrieve gets the token stored under name
	Retrieve(name string) (*Token, error)

	// List returns all stored tokens
	List() ([]*Token, error)

	// Delete removes the token stored under name
	Delete(name string) error

	// Exists checks if a token is stored under name
	Exists(name string) bool
}

// Manager handles token storage with fallback mechanisms
type Manager struct {
	stores []TokenStore
}

// NewManager creates a token manager backed by the system keychain when
// available, an encrypted file, and the environment.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// environment last; it is read-only
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores, first wins
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the token in the first store that accepts it
func (m *Manager) Store(token *Token) error {
	if token == nil || token.Name == "" {
		return errors.New("token name is required")
	}
	if token.AccessToken == "" {
		return errors.New("access token is required")
	}

	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return errors.New("no available token stores")
}

// Retrieve gets the token from the first store that has it
func (m *Manager) Retrieve(name string) (*Token, error) {
	for _, store := range m.stores {
		if token, err := store.Retrieve(name); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, name)
}

// RetrieveDefault prefers the environment token, then the most recently
// modified stored one.
func (m *Manager) RetrieveDefault() (*Token, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if token, err := env.Retrieve(""); err == nil {
				return token, nil
			}
		}
	}

	tokens, err := m.List()
	if err == nil && len(tokens) > 0 {
		return tokens[0], nil
	}

	return nil, ErrTokenNotFound
}

// List returns the tokens of all stores, newest first. A name stored in
// several places resolves to its most recent copy.
func (m *Manager) List() ([]*Token, error) {
	byName := make(map[string]*Token)

	for _, store := range m.stores {
		tokens, err := store.List()
		if err != nil {
			continue
		}
		for _, token := range tokens {
			if existing, ok := byName[token.Name]; !ok || token.LastModified.After(existing.LastModified) {
				byName[token.Name] = token
			}
		}
	}

	result := make([]*Token, 0, len(byName))
	for _, token := range byName {
		result = append(result, token)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastModified.After(result[j].LastModified)
	})
	return result, nil
}

// Delete removes the token from every store holding it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, name)
	}
	return nil
}

// getConfigDir returns the per-user configuration directory
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igcrawl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igcrawl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igcrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igcrawl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of the token with secrets masked
func Sanitize(token *Token) *Token {
	if token == nil {
		return nil
	}

	return &Token{
		Name:         token.Name,
		AccessToken:  maskString(token.AccessToken),
		ClientID:     token.ClientID,
		ClientSecret: maskString(token.ClientSecret),
		LastModified: token.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)
