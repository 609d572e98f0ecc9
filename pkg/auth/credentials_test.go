package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Identifier:  "@Alice.bsky.social",
		AppPassword: "abcd-efgh-ijkl-mnop",
	}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("alice.bsky.social")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Identifier != "alice.bsky.social" {
		t.Errorf("Identifier should be normalized, got %s", retrieved.Identifier)
	}
	if retrieved.AppPassword != account.AppPassword {
		t.Errorf("AppPassword mismatch: got %s, want %s", retrieved.AppPassword, account.AppPassword)
	}
	if retrieved.LastModified.IsZero() {
		t.Error("LastModified should be set on store")
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	sanitized := SanitizeAccount(account)
	if sanitized.AppPassword == account.AppPassword {
		t.Error("AppPassword should be masked")
	}
	if sanitized.Identifier != account.Identifier {
		t.Error("Identifier should not be masked")
	}

	if err := manager.Delete("ALICE.bsky.social"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("alice.bsky.social"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Account{AppPassword: "x"}); err == nil {
		t.Error("Expected error for missing identifier")
	}
	if err := manager.Store(&Account{Identifier: "bob.test"}); err == nil {
		t.Error("Expected error for missing app password")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	if err := manager.Store(&Account{Identifier: "carol.test", AppPassword: "p"}); err != nil {
		t.Fatalf("Store should fall back: %v", err)
	}
	if !working.Exists("carol.test") {
		t.Error("Fallback store should hold the account")
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(envIdentifier, "env.bsky.social")
	t.Setenv(envAppPassword, "env-pass")

	mock := NewMockStore()
	_ = mock.Store(&Account{Identifier: "stored.test", AppPassword: "p", LastModified: time.Now()})
	manager := NewManagerWithStores(mock, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if account.Identifier != "env.bsky.social" {
		t.Errorf("Expected environment account, got %s", account.Identifier)
	}
}

func TestListOrdersByLastModified(t *testing.T) {
	mock := NewMockStore()
	now := time.Now()
	_ = mock.Store(&Account{Identifier: "old.test", AppPassword: "p", LastModified: now.Add(-time.Hour)})
	_ = mock.Store(&Account{Identifier: "new.test", AppPassword: "p", LastModified: now})
	manager := NewManagerWithStores(mock)

	accounts, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[0].Identifier != "new.test" {
		t.Errorf("Expected new.test first, got %v", accounts)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "creds.enc")
	t.Setenv("BSKYFOLLOW_PASSPHRASE", "test_passphrase_123")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := &Account{Identifier: "dave.test", AppPassword: "wxyz-wxyz-wxyz-wxyz"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("dave.test")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.AppPassword != account.AppPassword {
		t.Errorf("AppPassword mismatch after encryption/decryption")
	}

	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(fileContent, []byte("wxyz-wxyz")) {
		t.Error("File contains plaintext app password")
	}

	if err := store.Delete("dave.test"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Error("File should be removed with its last account")
	}
	if err := store.Delete("dave.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "creds.enc")

	t.Setenv("BSKYFOLLOW_PASSPHRASE", "first")
	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Identifier: "erin.test", AppPassword: "p"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BSKYFOLLOW_PASSPHRASE", "second")
	other, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("erin.test"); err == nil {
		t.Error("Expected decryption failure with a different passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(envIdentifier, "@Env.bsky.social")
	t.Setenv(envAppPassword, "env-pass")
	t.Setenv(envService, "https://pds.example")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Identifier != "env.bsky.social" {
		t.Errorf("Identifier mismatch: got %s", account.Identifier)
	}
	if account.Service != "https://pds.example" {
		t.Errorf("Service mismatch: got %s", account.Service)
	}
	if _, err := store.Retrieve("someone.else"); err == nil {
		t.Error("Expected not found for a different identifier")
	}
	if err := store.Store(&Account{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestIsAppPassword(t *testing.T) {
	if !IsAppPassword("abcd-ef12-ijkl-mn34") {
		t.Error("Expected app password shape to be accepted")
	}
	for _, p := range []string{"hunter2", "abcd-efgh-ijkl", "ABCD-efgh-ijkl-mnop", "abcd-efgh-ijkl-mnopq"} {
		if IsAppPassword(p) {
			t.Errorf("%q should not look like an app password", p)
		}
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = fmt.Errorf("injected error")
	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestKeyringStoreIndex(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Mock keyring should be available: %v", err)
	}

	for _, id := range []string{"zed.test", "amy.test"} {
		if err := store.Store(&Account{Identifier: id, AppPassword: "abcd-efgh-ijkl-mnop"}); err != nil {
			t.Fatalf("Store(%s) failed: %v", id, err)
		}
	}

	accounts, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Identifier != "amy.test" || accounts[1].Identifier != "zed.test" {
		t.Errorf("List should return both accounts sorted, got %v", accounts)
	}
	if !store.Exists("zed.test") {
		t.Error("Expected zed.test to exist")
	}

	if err := store.Delete("amy.test"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("amy.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	accounts, _ = store.List()
	if len(accounts) != 1 || accounts[0].Identifier != "zed.test" {
		t.Errorf("Index should drop deleted accounts, got %v", accounts)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "creds.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Identifier: "gil.test", AppPassword: "p"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	if err != nil {
		t.Fatalf("Passphrase file should exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Passphrase file mode = %v, want 0600", info.Mode().Perm())
	}

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "creds.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Retrieve("gil.test"); err != nil {
		t.Errorf("Reopened store should reuse the saved passphrase: %v", err)
	}
}
