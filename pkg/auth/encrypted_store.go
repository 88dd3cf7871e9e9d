package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize    = 32
	keySize     = 32
	iterations  = 100000
	vaultFormat = 2
)

// PassphraseEnv overrides the generated passphrase of the encrypted store
const PassphraseEnv = "ARTCOLLECTOR_PASSPHRASE"

// vaultFile is the on-disk envelope. Salt and Sealed are base64 in JSON.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore implements CredentialStore with every account sealed
// in one AES-GCM encrypted file
type EncryptedFileStore struct {
	fs         afero.Fs
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewEncryptedFileStore creates a store at filePath on the local disk
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	return NewEncryptedFileStoreFs(afero.NewOsFs(), filePath)
}

// NewEncryptedFileStoreFs creates a store at filePath on fs. The passphrase
// comes from PassphraseEnv, or a .passphrase file next to the store that is
// generated on first use.
func NewEncryptedFileStoreFs(fs afero.Fs, filePath string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := fs.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	store := &EncryptedFileStore{fs: fs, path: filePath}
	passphrase, err := store.loadPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	store.passphrase = passphrase
	return store, nil
}

// Store saves credentials to the encrypted file
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	accounts[account.Name] = *account
	return e.seal(accounts)
}

// Retrieve gets credentials from the encrypted file
func (e *EncryptedFileStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns all stored accounts, by name
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}

	result := make([]*Account, 0, len(accounts))
	for _, account := range accounts {
		acc := account
		result = append(result, &acc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes credentials, and the file with the last account
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, name)

	if len(accounts) == 0 {
		e.salt, e.key = nil, nil
		return e.fs.Remove(e.path)
	}
	return e.seal(accounts)
}

// Exists checks if credentials exist
func (e *EncryptedFileStore) Exists(name string) bool {
	account, err := e.Retrieve(name)
	return err == nil && account != nil
}

// open reads and decrypts the vault. A missing file is an empty vault.
func (e *EncryptedFileStore) open() (map[string]Account, error) {
	content, err := afero.ReadFile(e.fs, e.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var vault vaultFile
	if err := json.Unmarshal(content, &vault); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if vault.Version != vaultFormat {
		return nil, fmt.Errorf("unsupported credentials file version %d", vault.Version)
	}

	plaintext, err := decrypt(vault.Sealed, e.deriveKey(vault.Salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	accounts := make(map[string]Account)
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// seal encrypts accounts and replaces the vault through a temp file
func (e *EncryptedFileStore) seal(accounts map[string]Account) error {
	if e.salt == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		e.salt = salt
	}

	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := encrypt(plaintext, e.deriveKey(e.salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:  vaultFormat,
		Salt:     e.salt,
		Sealed:   sealed,
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := afero.WriteFile(e.fs, tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := e.fs.Rename(tmp, e.path); err != nil {
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// deriveKey runs PBKDF2 once per salt
func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	if e.key != nil && bytes.Equal(e.salt, salt) {
		return e.key
	}
	e.salt = append([]byte(nil), salt...)
	e.key = pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
	return e.key
}

func (e *EncryptedFileStore) loadPassphrase() ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}

	passphraseFile := filepath.Join(filepath.Dir(e.path), ".passphrase")
	if content, err := afero.ReadFile(e.fs, passphraseFile); err == nil && len(content) > 0 {
		return content, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := []byte(base64.URLEncoding.EncodeToString(b))
	if err := afero.WriteFile(e.fs, passphraseFile, passphrase, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
