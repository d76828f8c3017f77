package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/and161185/flasheng/internal/crypto/clientcrypto"
	"github.com/and161185/flasheng/internal/errs"
)

type tokenFile struct {
	AccessToken string     `json:"access_token,omitempty"`
	Sealed      []byte     `json:"sealed,omitempty"`
	Salt        []byte     `json:"salt,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// File keeps the token in <dir>/token.json, sealed when a passphrase is set.
type File struct {
	mu         sync.Mutex
	dir        string
	passphrase string
	s          settings
}

// NewFile creates a file store rooted at dir.
func NewFile(dir, passphrase string, opts ...Option) *File {
	return &File{dir: dir, passphrase: passphrase, s: apply(opts)}
}

// Path is the token file location.
func (f *File) Path() string { return filepath.Join(f.dir, "token.json") }

// Save replaces the stored token.
func (f *File) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tf := tokenFile{}
	if exp, ok := Expiry(token); ok {
		tf.ExpiresAt = &exp
	}
	if f.passphrase != "" {
		sealed, salt, err := clientcrypto.SealToken(f.passphrase, token)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		tf.Sealed, tf.Salt = sealed, salt
	} else {
		tf.AccessToken = token
	}

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	fh, err := os.OpenFile(f.Path(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer fh.Close()
	enc := json.NewEncoder(fh)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

// Load returns the stored token.
func (f *File) Load(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", errs.ErrNoToken
	}
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", fmt.Errorf("token file: %w", err)
	}
	if tf.ExpiresAt != nil && !f.s.now().Before(*tf.ExpiresAt) {
		return "", errs.ErrNoToken
	}

	tok := tf.AccessToken
	if len(tf.Sealed) > 0 {
		if f.passphrase == "" {
			return "", errors.New("token file is sealed; passphrase required")
		}
		tok, err = clientcrypto.OpenToken(f.passphrase, tf.Sealed, tf.Salt)
		if err != nil {
			return "", fmt.Errorf("open token: %w", err)
		}
	}
	if tok == "" {
		return "", errs.ErrNoToken
	}
	return tok, nil
}

// Clear removes the token file. Clearing an absent token is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
