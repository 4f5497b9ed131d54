package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealBlob encrypts plaintext under key with a random nonce, binding aad.
// The nonce is prepended to the returned blob.
func sealBlob(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: aead init: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// openBlob reverses sealBlob. Any tampering with the blob or a wrong key
// fails authentication.
func openBlob(key, blob, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: aead init: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("vault: ciphertext too short")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("vault: aead open: %w", err)
	}
	return plaintext, nil
}

// newDataKey generates a fresh per-record data encryption key.
func newDataKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("vault: data key: %w", err)
	}
	return key, nil
}

// deriveKey derives a record-scoped key from master material via HKDF. The
// derived key exists only in memory for the duration of the call chain.
func deriveKey(master []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("vault: key derivation: %w", err)
	}
	return key, nil
}

// checksum returns the hex sha256 of the stored form of the content.
func checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
