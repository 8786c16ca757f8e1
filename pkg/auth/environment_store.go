package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvAccessToken  = "IGCRAWL_ACCESS_TOKEN"
	EnvClientID     = "IGCRAWL_CLIENT_ID"
	EnvClientSecret = "IGCRAWL_CLIENT_SECRET"
)

// EnvironmentStore is a read-only TokenStore over IGCRAWL_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

// Retrieve builds a token from the environment. The environment holds a
// single token, returned under name or "default".
func (e *EnvironmentStore) Retrieve(name string) (*Token, error) {
	accessToken := os.Getenv(EnvAccessToken)
	if accessToken == "" {
		return nil, ErrTokenNotFound
	}

	if name == "" {
		name = "default"
	}

	return &Token{
		Name:         name,
		AccessToken:  accessToken,
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		LastModified: time.Now(),
	}, nil
}

// List returns the environment token if one is set
func (e *EnvironmentStore) List() ([]*Token, error) {
	token, err := e.Retrieve("")
	if err != nil {
		return []*Token{}, nil
	}
	return []*Token{token}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvAccessToken) != ""
}
