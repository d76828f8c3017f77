// Package clientcrypto seals the locally stored bearer token with a passphrase.
package clientcrypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Params
const (
	KeyLen  = 32
	SaltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

// tokenAAD binds sealed blobs to their purpose.
var tokenAAD = []byte("flasheng/token/v1")

// ErrOpen is returned for a wrong passphrase or a tampered blob.
var ErrOpen = errors.New("clientcrypto: cannot open sealed data")

// Rand returns n cryptographically secure random bytes.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveKey derives a sealing key from passphrase and salt using Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeyLen)
}

// Seal encrypts plaintext with XChaCha20-Poly1305; output is nonce||ciphertext.
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func Open(key, sealed, aad []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("clientcrypto: sealed data too short")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	pt, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}

// SealToken encrypts token under a key derived from passphrase and a fresh salt.
func SealToken(passphrase, token string) (sealed, salt []byte, err error) {
	if passphrase == "" {
		return nil, nil, errors.New("clientcrypto: empty passphrase")
	}
	salt, err = Rand(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	sealed, err = Seal(DeriveKey([]byte(passphrase), salt), []byte(token), tokenAAD)
	if err != nil {
		return nil, nil, err
	}
	return sealed, salt, nil
}

// OpenToken decrypts a token sealed by SealToken.
func OpenToken(passphrase string, sealed, salt []byte) (string, error) {
	pt, err := Open(DeriveKey([]byte(passphrase), salt), sealed, tokenAAD)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
