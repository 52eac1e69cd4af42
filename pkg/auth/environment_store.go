package auth

import (
	"os"
	"time"
)

// EnvironmentName is the name under which an environment token is reported
const EnvironmentName = "env"

// TokenEnvVars are checked in order for a provider token
var TokenEnvVars = []string{"IGPICKER_PROVIDER_TOKEN", "APIFY_TOKEN"}

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token under any name
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	token := lookupToken()
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		Name:         EnvironmentName,
		Token:        token,
		LastModified: time.Time{},
	}, nil
}

// List returns the environment credential if one is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve(EnvironmentName)
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	return lookupToken() != ""
}

func lookupToken() string {
	for _, key := range TokenEnvVars {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
