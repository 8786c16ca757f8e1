package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// EnvPassphrase overrides the generated passphrase of the encrypted store
const EnvPassphrase = "IGCRAWL_PASSPHRASE"

const (
	vaultVersion = 2
	saltSize     = 16
	keySize      = 32
	iterations   = 210000
)

// vault is the on-disk form of the token file. Sealed holds nonce || GCM
// ciphertext of the JSON token map; byte slices are base64 via encoding/json.
type vault struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore implements TokenStore on an AES-GCM encrypted file.
// The key is derived with PBKDF2 from IGCRAWL_PASSPHRASE or a generated
// passphrase kept next to the config.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// NewEncryptedFileStore creates an encrypted token file store
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	return NewEncryptedFileStoreWithPassphrase(path, "")
}

// NewEncryptedFileStoreWithPassphrase uses passphrase for the key. An empty
// passphrase falls back to the environment or the generated one.
func NewEncryptedFileStoreWithPassphrase(path, passphrase string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if passphrase == "" {
		var err error
		if passphrase, err = defaultPassphrase(); err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves the token to the encrypted file
func (e *EncryptedFileStore) Store(token *Token) error {
	if token == nil || token.Name == "" {
		return ErrInvalidToken
	}
	return e.update(func(tokens map[string]Token) error {
		tokens[token.Name] = *token
		return nil
	})
}

// Retrieve reads a token from the encrypted file
func (e *EncryptedFileStore) Retrieve(name string) (*Token, error) {
	if name == "" {
		return nil, ErrInvalidToken
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens, _, err := e.open()
	if err != nil {
		return nil, err
	}
	token, ok := tokens[name]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

// List returns all tokens in the file
func (e *EncryptedFileStore) List() ([]*Token, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens, _, err := e.open()
	if err != nil {
		return nil, err
	}

	out := make([]*Token, 0, len(tokens))
	for _, token := range tokens {
		token := token
		out = append(out, &token)
	}
	return out, nil
}

// Delete removes a token; the file goes away with the last one
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidToken
	}
	return e.update(func(tokens map[string]Token) error {
		if _, ok := tokens[name]; !ok {
			return ErrTokenNotFound
		}
		delete(tokens, name)
		return nil
	})
}

// Exists checks if a token is stored under name
func (e *EncryptedFileStore) Exists(name string) bool {
	token, err := e.Retrieve(name)
	return err == nil && token != nil
}

// update applies fn to the decrypted tokens and writes the result back
func (e *EncryptedFileStore) update(fn func(map[string]Token) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, salt, err := e.open()
	if err != nil {
		return err
	}
	if err := fn(tokens); err != nil {
		return err
	}

	if len(tokens) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove token file: %w", err)
		}
		return nil
	}
	return e.seal(tokens, salt)
}

// open decrypts the file. A missing file is an empty token set with no salt.
func (e *EncryptedFileStore) open() (map[string]Token, []byte, error) {
	tokens := make(map[string]Token)

	content, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return tokens, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var v vault
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if v.Version != vaultVersion {
		return nil, nil, fmt.Errorf("unsupported token file version %d", v.Version)
	}

	gcm, err := e.aead(v.Salt)
	if err != nil {
		return nil, nil, err
	}
	n := gcm.NonceSize()
	if len(v.Sealed) < n {
		return nil, nil, errors.New("token file is truncated")
	}
	plain, err := gcm.Open(nil, v.Sealed[:n], v.Sealed[n:], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt token file (wrong passphrase?): %w", err)
	}

	if err := json.Unmarshal(plain, &tokens); err != nil {
		return nil, nil, fmt.Errorf("failed to parse tokens: %w", err)
	}
	return tokens, v.Salt, nil
}

// seal encrypts tokens under salt, generating one for a new file, and
// replaces the file atomically
func (e *EncryptedFileStore) seal(tokens map[string]Token, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vault{
		Version:  vaultVersion,
		Salt:     salt,
		Sealed:   gcm.Seal(nonce, nonce, plain, nil),
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// defaultPassphrase reads IGCRAWL_PASSPHRASE, else the passphrase file in the
// config dir, creating it on first use
func defaultPassphrase() (string, error) {
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		return pass, nil
	}

	dir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	file := filepath.Join(dir, ".passphrase")

	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return string(content), nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := fmt.Sprintf("%x", raw)
	if err := os.WriteFile(file, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}
