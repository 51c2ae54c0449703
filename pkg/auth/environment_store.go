package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	APIKeyEnv      = "XHS_TOKEN_API_KEY"
	ServerURLEnv   = "XHS_TOKEN_SERVER_URL"
	CookiesPathEnv = "XHS_COOKIES_PATH"
)

// EnvironmentStore exposes the XHS_* variables as a read-only profile
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment profile under whatever name is asked for
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}

	return &Credential{
		Name:        name,
		APIKey:      apiKey,
		ServerURL:   os.Getenv(ServerURLEnv),
		CookiesPath: os.Getenv(CookiesPathEnv),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	// oldest possible so stored profiles of the same name win
	cred.LastModified = time.Time{}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(APIKeyEnv) != ""
}
