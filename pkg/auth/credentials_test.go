package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"artcollector/pkg/config"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testAccount(name string) *Account {
	return &Account{
		Name:         name,
		TumblrAPIKey: "consumer_key_1234567890",
		TumblrToken:  "oauth_token_abcdefghij",
		MegaEmail:    "me@example.com",
		MegaPassword: "mega_password_secret",
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvTumblrAPIKey, EnvTumblrToken, EnvMegaEmail, EnvMegaPassword} {
		t.Setenv(name, "")
	}
}

func TestManagerLifecycle(t *testing.T) {
	manager, mockStore := NewMockManager()

	require.NoError(t, manager.Store(testAccount("default")))
	assert.Equal(t, 1, mockStore.Count())

	retrieved, err := manager.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "consumer_key_1234567890", retrieved.TumblrAPIKey)
	assert.False(t, retrieved.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("default"))
	_, err = manager.Retrieve("default")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, manager.Delete("default"), ErrCredentialsNotFound)
}

func TestManagerRejectsIncompleteAccounts(t *testing.T) {
	manager, _ := NewMockManager()

	tests := []struct {
		name    string
		account *Account
	}{
		{"no name", &Account{TumblrAPIKey: "k"}},
		{"no tumblr credentials", &Account{Name: "a", MegaEmail: "e", MegaPassword: "p"}},
		{"email without password", &Account{Name: "a", TumblrAPIKey: "k", MegaEmail: "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, manager.Store(tt.account), ErrInvalidCredentials)
		})
	}

	assert.NoError(t, manager.Store(&Account{Name: "tumblr-only", TumblrToken: "t"}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("keychain locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(failing, backup)

	require.NoError(t, manager.Store(testAccount("default")))
	assert.Equal(t, 0, failing.Count())
	assert.Equal(t, 1, backup.Count())

	backup.StoreError = errors.New("disk full")
	err := manager.Store(testAccount("other"))
	assert.ErrorContains(t, err, "disk full")
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	a := testAccount("default")
	a.LastModified = time.Now().Add(-time.Hour)
	require.NoError(t, older.Store(a))
	b := testAccount("default")
	b.TumblrToken = "rotated_token_0000000"
	b.LastModified = time.Now()
	require.NoError(t, newer.Store(b))
	require.NoError(t, newer.Store(testAccount("alt")))

	accounts, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alt", accounts[0].Name)
	assert.Equal(t, "rotated_token_0000000", accounts[1].TumblrToken)
}

func TestRetrieveDefault(t *testing.T) {
	clearEnv(t)
	store := NewMockStore()
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(testAccount("zeta")))
	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "zeta", account.Name)

	require.NoError(t, store.Store(testAccount(DefaultAccount)))
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultAccount, account.Name)

	t.Setenv(EnvTumblrAPIKey, "from_env")
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "from_env", account.TumblrAPIKey)
}

func TestAccountApply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tumblr.APIKey = "explicit"

	testAccount("default").Apply(cfg)

	assert.Equal(t, "explicit", cfg.Tumblr.APIKey)
	assert.Equal(t, "oauth_token_abcdefghij", cfg.Tumblr.Token)
	assert.Equal(t, "me@example.com", cfg.Archive.Email)
	assert.Equal(t, "mega_password_secret", cfg.Archive.Password)
	assert.NoError(t, cfg.ValidateCredentials())

	var nilAccount *Account
	assert.NotPanics(t, func() { nilAccount.Apply(cfg) })
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("default")
	sanitized := SanitizeAccount(account)

	assert.Equal(t, "cons...7890", sanitized.TumblrAPIKey)
	assert.Equal(t, "mega...cret", sanitized.MegaPassword)
	assert.Equal(t, account.MegaEmail, sanitized.MegaEmail)
	assert.Equal(t, "********", maskString("short"))
	assert.Empty(t, maskString(""))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("default")))
	require.NoError(t, store.Store(testAccount("alt")))

	retrieved, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "mega_password_secret", retrieved.MegaPassword)
	assert.True(t, store.Exists("alt"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("mega_password_secret")), "file holds plaintext password")
	assert.False(t, bytes.Contains(content, []byte("consumer_key")), "file holds plaintext API key")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	accounts, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, store.Delete("default"))
	require.NoError(t, store.Delete("alt"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with the last account")
	assert.ErrorIs(t, store.Delete("alt"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreOnMemFs(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	fs := afero.NewMemMapFs()

	store, err := NewEncryptedFileStoreFs(fs, "/cfg/credentials.enc")
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("b")))
	require.NoError(t, store.Store(testAccount("a")))

	exists, err := afero.Exists(fs, "/cfg/.passphrase")
	require.NoError(t, err)
	assert.True(t, exists)

	reopened, err := NewEncryptedFileStoreFs(fs, "/cfg/credentials.enc")
	require.NoError(t, err)
	accounts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].Name)
	assert.Equal(t, "b", accounts[1].Name)
}

func TestEncryptedFileStoreRejectsUnknownVersion(t *testing.T) {
	t.Setenv(PassphraseEnv, "pass")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/credentials.enc", []byte(`{"version":1,"salt":"","encrypted":""}`), 0600))

	store, err := NewEncryptedFileStoreFs(fs, "/credentials.enc")
	require.NoError(t, err)
	_, err = store.Retrieve("default")
	assert.ErrorContains(t, err, "unsupported credentials file version 1")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("default")))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("default")
	assert.ErrorContains(t, err, "failed to decrypt")
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	_, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	pass, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, pass)
}

func TestEnvironmentStore(t *testing.T) {
	clearEnv(t)
	store := NewEnvironmentStore()

	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(""))

	t.Setenv(EnvTumblrToken, "env_token")
	t.Setenv(EnvMegaEmail, "env@example.com")
	t.Setenv(EnvMegaPassword, "env_password")

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env", account.Name)
	assert.Equal(t, "env_token", account.TumblrToken)
	assert.Equal(t, "env@example.com", account.MegaEmail)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	assert.ErrorIs(t, store.Store(testAccount("x")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("default")))
	require.NoError(t, store.Store(testAccount("alt")))
	require.NoError(t, store.Store(testAccount("alt")))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alt", accounts[0].Name)
	assert.Equal(t, "default", accounts[1].Name)

	retrieved, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "oauth_token_abcdefghij", retrieved.TumblrToken)

	require.NoError(t, store.Delete("default"))
	assert.False(t, store.Exists("default"))
	_, err = store.Retrieve("default")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Delete("default"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestKeyringStoreUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	_, err := NewKeyringStore()
	assert.ErrorContains(t, err, "keyring not available")
	assert.False(t, IsKeyringAvailable())

	keyring.MockInit()
	assert.True(t, IsKeyringAvailable())
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = errors.New("injected error")

	_, err := store.List()
	assert.EqualError(t, err, "injected error")

	manager := NewManagerWithStores(store)
	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
