package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "bskyfollow"
	keyringPrefix  = "account:"
	// keyringIndex lists stored identifiers, since keychains cannot be
	// enumerated through go-keyring
	keyringIndex = "index"
)

// KeyringStore keeps each account as a JSON secret in the system keychain
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore probes the keychain and returns a store if it is usable
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Identifier == "" {
		return ErrInvalidCredentials
	}
	secret, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := keyring.Set(keyringService, keyringPrefix+account.Identifier, string(secret)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.editIndex(func(ids map[string]bool) { ids[account.Identifier] = true })
}

func (k *KeyringStore) Retrieve(identifier string) (*Account, error) {
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}
	secret, err := keyring.Get(keyringService, keyringPrefix+identifier)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(secret), &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &account, nil
}

// List returns the indexed accounts that are still present in the keychain
func (k *KeyringStore) List() ([]*Account, error) {
	k.mu.Lock()
	ids, err := k.readIndex()
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		account, err := k.Retrieve(id)
		if errors.Is(err, ErrCredentialsNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, nil
}

func (k *KeyringStore) Delete(identifier string) error {
	if identifier == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	err := keyring.Delete(keyringService, keyringPrefix+identifier)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.editIndex(func(ids map[string]bool) { delete(ids, identifier) })
}

func (k *KeyringStore) Exists(identifier string) bool {
	if identifier == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+identifier)
	return err == nil
}

// readIndex returns the sorted identifiers. Callers hold mu.
func (k *KeyringStore) readIndex() ([]string, error) {
	raw, err := keyring.Get(keyringService, keyringIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// A damaged index only hides accounts from List.
		return nil, nil
	}
	sort.Strings(ids)
	return ids, nil
}

// editIndex applies fn to the identifier set and writes it back. Callers hold mu.
func (k *KeyringStore) editIndex(fn func(map[string]bool)) error {
	ids, err := k.readIndex()
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	fn(set)

	if len(set) == 0 {
		if err := keyring.Delete(keyringService, keyringIndex); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to clear keyring index: %w", err)
		}
		return nil
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringIndex, string(raw)); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
