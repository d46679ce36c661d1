package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

const (
	// Iterations is the PBKDF2 round count.
	Iterations = 480_000
	// KeySize is the derived key length, selecting AES-256.
	KeySize = 32
	// SaltSize is the length of the persisted salt.
	SaltSize = 16

	// EncryptedSuffix is appended to the plaintext path to name the encrypted blob.
	EncryptedSuffix = ".enc"
	// SaltFileName is the salt file kept next to the store.
	SaltFileName = ".vault_salt"
)

// ErrDecryptionFailed means the password is wrong or the blob was modified.
// It is never returned for missing or unreadable files.
var ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted vault")

// Blob is an encrypted store together with the salt its key was derived from.
type Blob struct {
	Salt       []byte
	Ciphertext []byte
}

// Vault encrypts and decrypts store bytes. It owns the salt file at saltPath.
type Vault struct {
	saltPath string
	random   io.Reader
}

// New returns a vault whose salt lives at saltPath.
func New(saltPath string) *Vault {
	return &Vault{saltPath: saltPath, random: rand.Reader}
}

// ForStore returns a vault using the conventional salt location for a store file.
func ForStore(storePath string) *Vault {
	return New(SaltPath(storePath))
}

// SaltPath is the salt file location for a store file.
func SaltPath(storePath string) string {
	return filepath.Join(filepath.Dir(storePath), SaltFileName)
}

// EncryptedPath is the blob location for a store file.
func EncryptedPath(storePath string) string {
	return storePath + EncryptedSuffix
}

// IsEncrypted reports whether an encrypted blob exists for the store file.
func IsEncrypted(storePath string) bool {
	info, err := os.Stat(EncryptedPath(storePath))
	return err == nil && info.Mode().IsRegular()
}

// DeriveKey stretches password and salt into a 32-byte key. The same inputs
// always produce the same key.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from password. The salt is
// generated and persisted on first use, then reused.
func (v *Vault) Encrypt(plaintext []byte, password string) (Blob, error) {
	salt, err := v.loadOrCreateSalt()
	if err != nil {
		return Blob{}, err
	}

	gcm, err := newGCM(DeriveKey(password, salt))
	if err != nil {
		return Blob{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(v.random, nonce); err != nil {
		return Blob{}, fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	return Blob{Salt: salt, Ciphertext: gcm.Seal(nonce, nonce, plaintext, nil)}, nil
}

// Decrypt opens a blob. Any authentication failure is ErrDecryptionFailed and
// no plaintext is returned.
func (v *Vault) Decrypt(blob Blob, password string) ([]byte, error) {
	if len(blob.Salt) != SaltSize {
		return nil, fmt.Errorf("%w: invalid salt length %d", ErrDecryptionFailed, len(blob.Salt))
	}

	gcm, err := newGCM(DeriveKey(password, blob.Salt))
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob.Ciphertext) < nonceSize+gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, sealed := blob.Ciphertext[:nonceSize], blob.Ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// EncryptFile encrypts the plaintext store into <storePath>.enc. The plaintext
// file is left in place; callers decide when to remove it.
func (v *Vault) EncryptFile(storePath, password string) error {
	plaintext, err := os.ReadFile(storePath)
	if err != nil {
		return fmt.Errorf("read plaintext store: %w", err)
	}

	blob, err := v.Encrypt(plaintext, password)
	if err != nil {
		return err
	}

	return WriteBlob(EncryptedPath(storePath), blob)
}

// DecryptFile returns the plaintext of <storePath>.enc.
func (v *Vault) DecryptFile(storePath, password string) ([]byte, error) {
	blob, err := v.ReadBlob(EncryptedPath(storePath))
	if err != nil {
		return nil, err
	}
	return v.Decrypt(blob, password)
}

// ReadBlob loads the blob at path together with the persisted salt.
func (v *Vault) ReadBlob(path string) (Blob, error) {
	salt, err := os.ReadFile(v.saltPath)
	if err != nil {
		return Blob{}, fmt.Errorf("read vault salt: %w", err)
	}

	encoded, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("read encrypted store: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return Blob{}, fmt.Errorf("%w: base64 decode: %v", ErrDecryptionFailed, err)
	}

	return Blob{Salt: salt, Ciphertext: ciphertext}, nil
}

// WriteBlob stores the ciphertext base64-encoded at path. The salt is persisted
// separately by Encrypt.
func WriteBlob(path string, blob Blob) error {
	encoded := base64.StdEncoding.EncodeToString(blob.Ciphertext)
	return endpoint.WriteFileAtomic(path, []byte(encoded), 0o600)
}

func (v *Vault) loadOrCreateSalt() ([]byte, error) {
	salt, err := os.ReadFile(v.saltPath)
	if err == nil {
		if len(salt) != SaltSize {
			return nil, fmt.Errorf("vault salt %s has invalid length %d", v.saltPath, len(salt))
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read vault salt: %w", err)
	}

	salt = make([]byte, SaltSize)
	if _, err := io.ReadFull(v.random, salt); err != nil {
		return nil, fmt.Errorf("rand salt: %w", err)
	}
	if err := endpoint.WriteFileAtomic(v.saltPath, salt, 0o600); err != nil {
		return nil, fmt.Errorf("persist vault salt: %w", err)
	}
	return salt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
