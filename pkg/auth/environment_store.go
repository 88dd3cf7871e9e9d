package auth

import (
	"os"
	"time"
)

// Variables read by EnvironmentStore. They match the names of the older
// .env based setup so existing files keep working.
const (
	EnvTumblrAPIKey = "TUMBLR_CONSUMER_KEY"
	EnvTumblrToken  = "TUMBLR_OAUTH_TOKEN"
	EnvMegaEmail    = "MEGA_EMAIL"
	EnvMegaPassword = "MEGA_PASSWORD"
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

// Retrieve gets credentials from environment variables. The name is only
// used to label the result.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	account := &Account{
		Name:         name,
		TumblrAPIKey: os.Getenv(EnvTumblrAPIKey),
		TumblrToken:  os.Getenv(EnvTumblrToken),
		MegaEmail:    os.Getenv(EnvMegaEmail),
		MegaPassword: os.Getenv(EnvMegaPassword),
		LastModified: time.Now(),
	}
	if account.TumblrAPIKey == "" && account.TumblrToken == "" {
		return nil, ErrCredentialsNotFound
	}
	if account.Name == "" {
		account.Name = "env"
	}
	return account, nil
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
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvTumblrAPIKey) != "" || os.Getenv(EnvTumblrToken) != ""
}
