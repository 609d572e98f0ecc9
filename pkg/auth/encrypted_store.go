package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseEnv overrides the generated vault passphrase
const PassphraseEnv = "BSKYFOLLOW_PASSPHRASE"

const (
	vaultVersion    = 2
	vaultSaltBytes  = 32
	vaultKeyBytes   = 32
	vaultIterations = 210000
)

// EncryptedFileStore keeps app passwords in a single AES-GCM sealed vault
// file. The key is derived from a passphrase with PBKDF2-SHA256; the
// passphrase comes from PassphraseEnv or a 0600 file next to the vault.
type EncryptedFileStore struct {
	path       string
	passphrase []byte

	mu sync.RWMutex
}

// vaultFile is the on-disk envelope. Only Sealed is secret.
type vaultFile struct {
	Version    int       `json:"version"`
	Salt       string    `json:"salt"`
	Iterations int       `json:"iterations"`
	Sealed     string    `json:"sealed"`
	Modified   time.Time `json:"modified"`
}

// vault is the decrypted content, keyed by identifier
type vault struct {
	salt       []byte
	iterations int
	accounts   map[string]Account
}

// NewEncryptedFileStore opens the vault at path, creating its directory
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	pass, err := vaultPassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Identifier == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		accounts[account.Identifier] = *account
		return nil
	})
}

func (e *EncryptedFileStore) Retrieve(identifier string) (*Account, error) {
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}
	v, err := e.open()
	if err != nil {
		return nil, err
	}
	account, ok := v.accounts[identifier]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns every account in the vault ordered by identifier
func (e *EncryptedFileStore) List() ([]*Account, error) {
	v, err := e.open()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(v.accounts))
	for id := range v.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		account := v.accounts[id]
		out = append(out, &account)
	}
	return out, nil
}

// Delete removes an account. Removing the last one deletes the vault file.
func (e *EncryptedFileStore) Delete(identifier string) error {
	if identifier == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		if _, ok := accounts[identifier]; !ok {
			return ErrCredentialsNotFound
		}
		delete(accounts, identifier)
		return nil
	})
}

func (e *EncryptedFileStore) Exists(identifier string) bool {
	_, err := e.Retrieve(identifier)
	return err == nil
}

func (e *EncryptedFileStore) open() (*vault, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.load()
}

func (e *EncryptedFileStore) update(fn func(map[string]Account) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.load()
	if err != nil {
		return err
	}
	if err := fn(v.accounts); err != nil {
		return err
	}
	if len(v.accounts) == 0 {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove vault: %w", err)
		}
		return nil
	}
	return e.save(v)
}

// load reads and unseals the vault. A missing file is an empty vault.
func (e *EncryptedFileStore) load() (*vault, error) {
	content, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return &vault{accounts: make(map[string]Account)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var f vaultFile
	if err := json.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(f.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault: %w", err)
	}
	if f.Iterations <= 0 {
		f.Iterations = vaultIterations
	}

	plain, err := unseal(sealed, e.key(salt, f.Iterations))
	if err != nil {
		return nil, fmt.Errorf("failed to unseal vault: %w", err)
	}

	v := &vault{salt: salt, iterations: f.Iterations}
	if err := json.Unmarshal(plain, &v.accounts); err != nil {
		return nil, fmt.Errorf("failed to parse vault accounts: %w", err)
	}
	if v.accounts == nil {
		v.accounts = make(map[string]Account)
	}
	return v, nil
}

// save seals v and replaces the vault file atomically
func (e *EncryptedFileStore) save(v *vault) error {
	if v.salt == nil {
		v.salt = make([]byte, vaultSaltBytes)
		if _, err := rand.Read(v.salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		v.iterations = vaultIterations
	}

	plain, err := json.Marshal(v.accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	sealed, err := seal(plain, e.key(v.salt, v.iterations))
	if err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:    vaultVersion,
		Salt:       base64.StdEncoding.EncodeToString(v.salt),
		Iterations: v.iterations,
		Sealed:     base64.StdEncoding.EncodeToString(sealed),
		Modified:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace vault: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) key(salt []byte, iterations int) []byte {
	return pbkdf2.Key(e.passphrase, salt, iterations, vaultKeyBytes, sha256.New)
}

// vaultPassphrase returns the env passphrase, or the one stored at file,
// generating and saving a random one on first use.
func vaultPassphrase(file string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}
	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return content, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := []byte(base64.RawURLEncoding.EncodeToString(raw))
	if err := os.WriteFile(file, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

// seal encrypts plain with AES-GCM, prefixing the nonce
func seal(plain, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func unseal(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("sealed data too short")
	}
	return gcm.Open(nil, sealed[:n], sealed[n:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
