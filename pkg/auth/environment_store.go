package auth

import (
	"os"
	"time"
)

const (
	envIdentifier  = "BSKYFOLLOW_IDENTIFIER"
	envAppPassword = "BSKYFOLLOW_APP_PASSWORD"
	envService     = "BSKYFOLLOW_SERVICE"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables. An empty identifier
// matches whatever account the environment names.
func (e *EnvironmentStore) Retrieve(identifier string) (*Account, error) {
	envID := normalizeIdentifier(os.Getenv(envIdentifier))
	password := os.Getenv(envAppPassword)

	if envID == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}
	if identifier != "" && normalizeIdentifier(identifier) != envID {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Identifier:   envID,
		AppPassword:  password,
		Service:      os.Getenv(envService),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(identifier string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(identifier string) bool {
	_, err := e.Retrieve(identifier)
	return err == nil
}
