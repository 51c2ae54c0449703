package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	cred := &Credential{
		Name:        "work",
		APIKey:      "sk-test-0123456789abcdef",
		ServerURL:   "https://tokens.example.com:8443",
		CookiesPath: "work-cookies.json",
	}

	if err := manager.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	if cred.LastModified.IsZero() {
		t.Error("LastModified should be set on store")
	}

	retrieved, err := manager.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.APIKey != cred.APIKey || retrieved.ServerURL != cred.ServerURL || retrieved.CookiesPath != cred.CookiesPath {
		t.Errorf("retrieved %+v, want %+v", retrieved, cred)
	}

	creds, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list credentials: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("Expected 1 credential, got %d", len(creds))
	}

	sanitized := Sanitize(cred)
	if sanitized.APIKey == cred.APIKey {
		t.Error("API key should be masked")
	}
	if sanitized.APIKey != "sk-t...cdef" {
		t.Errorf("unexpected mask %q", sanitized.APIKey)
	}
	if sanitized.Name != cred.Name {
		t.Error("Name should not be masked")
	}

	if err := manager.Delete("work"); err != nil {
		t.Fatalf("Failed to delete credential: %v", err)
	}
	if _, err := manager.Retrieve("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
	if err := manager.Delete("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound deleting twice, got %v", err)
	}
}

func TestStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := manager.Store(&Credential{Name: "x"}); err == nil {
		t.Error("expected error for missing API key")
	}

	cred := &Credential{APIKey: "key-without-name"}
	if err := manager.Store(cred); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if cred.Name != DefaultProfile {
		t.Errorf("expected default profile name, got %q", cred.Name)
	}
}

func TestStoreFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(broken, backup)

	if err := manager.Store(&Credential{Name: "a", APIKey: "k"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if backup.Count() != 1 || broken.Count() != 0 {
		t.Errorf("expected credential in backup store only")
	}

	backup.StoreError = errors.New("disk full")
	err := manager.Store(&Credential{Name: "b", APIKey: "k"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected last store error, got %v", err)
	}
}

func TestListPrefersNewest(t *testing.T) {
	old := NewMockStore()
	fresh := NewMockStore()
	old.Store(&Credential{Name: "p", APIKey: "old", LastModified: time.Now().Add(-time.Hour)})
	fresh.Store(&Credential{Name: "p", APIKey: "new", LastModified: time.Now()})
	fresh.Store(&Credential{Name: "a", APIKey: "k", LastModified: time.Now()})

	creds, err := NewManagerWithStores(old, fresh).List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(creds))
	}
	if creds[0].Name != "a" || creds[1].APIKey != "new" {
		t.Errorf("unexpected list %+v %+v", creds[0], creds[1])
	}
}

func TestRetrieveDefault(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	store := NewMockStore()
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	if _, err := manager.RetrieveDefault(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound, got %v", err)
	}

	store.Store(&Credential{Name: "older", APIKey: "1", LastModified: time.Now().Add(-time.Hour)})
	store.Store(&Credential{Name: "newer", APIKey: "2", LastModified: time.Now()})
	cred, err := manager.RetrieveDefault()
	if err != nil || cred.Name != "newer" {
		t.Errorf("expected newest profile, got %v, %v", cred, err)
	}

	store.Store(&Credential{Name: DefaultProfile, APIKey: "3", LastModified: time.Now().Add(-2 * time.Hour)})
	cred, _ = manager.RetrieveDefault()
	if cred.Name != DefaultProfile {
		t.Errorf("expected default profile, got %s", cred.Name)
	}

	t.Setenv(APIKeyEnv, "from-env")
	t.Setenv(ServerURLEnv, "https://env.example.com")
	cred, _ = manager.RetrieveDefault()
	if cred.APIKey != "from-env" || cred.ServerURL != "https://env.example.com" {
		t.Errorf("expected environment profile, got %+v", cred)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	env := NewEnvironmentStore()

	if env.Exists("") {
		t.Error("expected no environment credential")
	}
	if creds, _ := env.List(); len(creds) != 0 {
		t.Errorf("expected empty list, got %d", len(creds))
	}

	t.Setenv(APIKeyEnv, "k")
	t.Setenv(CookiesPathEnv, "/tmp/c.json")
	cred, err := env.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if cred.Name != "env" || cred.CookiesPath != "/tmp/c.json" {
		t.Errorf("unexpected credential %+v", cred)
	}
	if err := env.Store(cred); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := env.Delete("env"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.Retrieve("a"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound on empty store, got %v", err)
	}

	for _, name := range []string{"a", "b"} {
		if err := store.Store(&Credential{Name: name, APIKey: "secret-" + name}); err != nil {
			t.Fatalf("Failed to store %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if bytes.Contains(raw, []byte("secret-a")) {
		t.Error("API key stored in plain text")
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	reopened, _ := NewEncryptedFileStoreWithPassphrase(path, "correct horse battery staple")
	cred, err := reopened.Retrieve("b")
	if err != nil || cred.APIKey != "secret-b" {
		t.Errorf("expected secret-b, got %v, %v", cred, err)
	}
	if list, _ := reopened.List(); len(list) != 2 {
		t.Errorf("expected 2 credentials, got %d", len(list))
	}

	wrong, _ := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if _, err := wrong.Retrieve("a"); err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected decryption error with wrong passphrase, got %v", err)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("a") || !store.Exists("b") {
		t.Error("unexpected contents after delete")
	}
	if err := store.Delete("b"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file removed when last credential deleted")
	}
}

func TestEncryptedFileStoreRequiresPassphrase(t *testing.T) {
	if _, err := NewEncryptedFileStoreWithPassphrase(filepath.Join(t.TempDir(), "c.enc"), ""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}

func TestPassphraseFromEnvironment(t *testing.T) {
	t.Setenv(PassphraseEnv, "from-env")
	pass, err := loadPassphrase()
	if err != nil || pass != "from-env" {
		t.Errorf("expected env passphrase, got %q, %v", pass, err)
	}
}

func TestMaskString(t *testing.T) {
	tests := map[string]string{
		"":                 "********",
		"short":            "********",
		"12345678":         "********",
		"123456789":        "1234...6789",
		"abcdefghijklmnop": "abcd...mnop",
	}
	for in, want := range tests {
		if got := MaskString(in); got != want {
			t.Errorf("MaskString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCookieExportGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteCookieExportGuide(&buf, "my-cookies.json")
	out := buf.String()
	if !strings.Contains(out, "my-cookies.json") || !strings.Contains(out, "a1") {
		t.Errorf("guide missing path or a1 hint:\n%s", out)
	}

	buf.Reset()
	WriteQuickGuide(&buf, "c.json")
	if !strings.Contains(buf.String(), "c.json") {
		t.Error("quick guide missing path")
	}
}
