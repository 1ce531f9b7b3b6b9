// internal/config/crypto.go
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
)

// masterKeyItem is the keyring entry holding the hex-encoded AES key.
const masterKeyItem = "__master_key__"

// ErrCiphertext is returned by Decrypt for input it cannot open.
var ErrCiphertext = errors.New("invalid ciphertext")

var (
	masterKeyMu     sync.Mutex
	masterKeyCached []byte
)

// GetMasterKey retrieves or generates the master key in the keyring. The key
// is cached for the life of the process.
func GetMasterKey() ([]byte, error) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()
	if masterKeyCached != nil {
		return masterKeyCached, nil
	}

	ks, err := NewKeyringStore()
	if err != nil {
		return nil, err
	}

	if keyHex, err := ks.GetPassword(masterKeyItem); err == nil {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decode master key: %w", err)
		}
		masterKeyCached = key
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := ks.SetPassword(masterKeyItem, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	masterKeyCached = key
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts a string using AES-GCM. The nonce is prepended to the
// sealed bytes and the whole is hex encoded.
func Encrypt(plainText string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plainText), nil)), nil
}

// Decrypt reverses Encrypt.
func Decrypt(cipherTextHex string, key []byte) (string, error) {
	cipherText, err := hex.DecodeString(cipherTextHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(cipherText) < nonceSize {
		return "", fmt.Errorf("%w: too short", ErrCiphertext)
	}

	nonce, sealed := cipherText[:nonceSize], cipherText[nonceSize:]
	plainText, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plainText), nil
}

// sealPasswords encrypts in-memory profile passwords into their persisted
// fields.
func (c *Config) sealPasswords(key []byte) {
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Password != "" {
			if encrypted, err := Encrypt(p.Password, key); err == nil {
				p.EncryptedPassword = encrypted
			}
		}
		if p.SSHPassword != "" {
			if encrypted, err := Encrypt(p.SSHPassword, key); err == nil {
				p.EncryptedSSHPassword = encrypted
			}
		}
	}
}

// openPasswords decrypts persisted profile passwords. Entries that fail to
// decrypt are left empty.
func (c *Config) openPasswords(key []byte) {
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.EncryptedPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedPassword, key); err == nil {
				p.Password = decrypted
			}
		}
		if p.EncryptedSSHPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedSSHPassword, key); err == nil {
				p.SSHPassword = decrypted
			}
		}
	}
}
