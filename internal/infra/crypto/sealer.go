package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/k-luch/chatguard-bot/internal/domain"
)

// Sealer cifra y descifra payloads del audit log. XChaCha20-Poly1305 con
// framing nonce || ciphertext. El fallo de autenticación sale como
// domain.ErrDecryption, nunca como basura plausible.
type Sealer struct {
	aead cipher.AEAD
}

// New construye el sealer a partir de la clave inyectada (32 bytes).
func New(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	// nonce único por cifrado bajo la misma clave
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealer nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: payload demasiado corto", domain.ErrDecryption)
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	ciphertext := sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// clave equivocada o entrada manipulada
		return nil, errors.Join(domain.ErrDecryption, err)
	}
	return plaintext, nil
}
