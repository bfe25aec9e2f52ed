package sessions

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
)

var _ KV = (*SealedKV)(nil)

// SealedKV encrypts values with XChaCha20-Poly1305 before handing them to the wrapped KV.
// The namespace and key are bound as associated data, so a value copied to another slot fails to open.
type SealedKV struct {
	next KV
	aead cipher.AEAD
}

// NewSealedKV derives a 256-bit key from secret with HKDF-SHA256.
func NewSealedKV(next KV, secret string) (*SealedKV, error) {
	if secret == "" {
		return nil, fmt.Errorf("sealed kv: secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("planter session kv")), key); err != nil {
		return nil, fmt.Errorf("sealed kv: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed kv: %w", err)
	}
	return &SealedKV{next: next, aead: aead}, nil
}

func associatedData(namespace, key string) []byte {
	return []byte(namespace + "\x00" + key)
}

// Get returns apperrors.ErrStateCorruption when a stored value cannot be opened.
func (s *SealedKV) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	raw, ok, err := s.next.Get(ctx, namespace, key)
	if err != nil || !ok {
		return "", ok, err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", false, apperrors.Wrapf(apperrors.ErrStateCorruption, "open %s", key)
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, associatedData(namespace, key))
	if err != nil {
		return "", false, apperrors.Wrapf(apperrors.ErrStateCorruption, "open %s", key)
	}
	return string(plain), true, nil
}

func (s *SealedKV) Set(ctx context.Context, namespace, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed kv: nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), associatedData(namespace, key))
	return s.next.Set(ctx, namespace, key, base64.RawURLEncoding.EncodeToString(sealed))
}

func (s *SealedKV) Delete(ctx context.Context, namespace string, keys ...string) error {
	return s.next.Delete(ctx, namespace, keys...)
}
