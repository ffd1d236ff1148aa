// Package crypto implements the authenticated encryption used for credential
// values: AES-256-GCM with a fresh random 16-byte IV per call and a detached
// 16-byte authentication tag.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/semmy-space/vlt/internal/vaulterr"
)

const (
	KeySize = 32 // AES-256
	IVSize  = 16
	TagSize = 16
)

// randReader is the entropy source for keys and IVs; tests swap it out.
var randReader io.Reader = rand.Reader

// EncryptedRecord is one encrypted credential value as stored in a vault file.
// Byte slices are base64-encoded by encoding/json.
type EncryptedRecord struct {
	Ciphertext []byte `json:"data"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"authTag"`
}

// GenerateKey returns a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return nil, vaulterr.Wrap(vaulterr.KeyGenerationFailed, err, "failed to generate key")
	}
	return key, nil
}

// IsValidKey reports whether key has the length required by Encrypt and Decrypt.
func IsValidKey(key []byte) bool {
	return len(key) == KeySize
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if !IsValidKey(key) {
		return nil, vaulterr.Newf(vaulterr.InvalidKeyLength,
			"key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}

// Encrypt seals plaintext under key. Every call draws a new IV, so encrypting
// the same plaintext twice yields different records.
func Encrypt(plaintext string, key []byte) (EncryptedRecord, error) {
	gcm, err := newGCM(key)
	if err != nil {
		if vaulterr.HasCode(err, vaulterr.InvalidKeyLength) {
			return EncryptedRecord{}, err
		}
		return EncryptedRecord{}, vaulterr.Wrap(vaulterr.EncryptionFailed, err, "failed to create cipher")
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return EncryptedRecord{}, vaulterr.Wrap(vaulterr.EncryptionFailed, err, "failed to generate IV")
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - TagSize

	return EncryptedRecord{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}, nil
}

// Decrypt verifies the record's tag and returns the plaintext. A tag mismatch,
// caused by a wrong key or modified data, fails with TamperedData and releases
// no plaintext.
func Decrypt(rec EncryptedRecord, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		if vaulterr.HasCode(err, vaulterr.InvalidKeyLength) {
			return "", err
		}
		return "", vaulterr.Wrap(vaulterr.DecryptionFailed, err, "failed to create cipher")
	}

	if len(rec.IV) != IVSize {
		return "", vaulterr.Newf(vaulterr.DecryptionFailed, "IV must be %d bytes, got %d", IVSize, len(rec.IV))
	}
	if len(rec.AuthTag) != TagSize {
		return "", vaulterr.Newf(vaulterr.DecryptionFailed, "auth tag must be %d bytes, got %d", TagSize, len(rec.AuthTag))
	}

	sealed := make([]byte, 0, len(rec.Ciphertext)+TagSize)
	sealed = append(sealed, rec.Ciphertext...)
	sealed = append(sealed, rec.AuthTag...)

	plaintext, err := gcm.Open(nil, rec.IV, sealed, nil)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.TamperedData, err, "authentication failed: wrong key or corrupted data")
	}

	return string(plaintext), nil
}

// Wipe zeroes key material in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
