package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownVersion     = errors.New("unknown ciphertext version")
)

// sealedV1 prefixes every ciphertext: version byte, GCM nonce, sealed data.
const sealedV1 byte = 1

const keyInfo = "staffledger/data-at-rest/v1"

// Service seals small values (national ids, TOTP secrets) with AES-256-GCM
// under a key derived from DATA_ENCRYPTION_KEY. Without a key it passes values
// through unchanged so development databases stay readable.
type Service struct {
	aead cipher.AEAD
}

func New(secret string) (*Service, error) {
	if secret == "" {
		return &Service{}, nil
	}
	material := decodeSecret(secret)
	if len(material) < 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must carry at least 32 bytes, got %d", len(material))
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	size := s.aead.NonceSize()
	out := make([]byte, 1+size, 1+size+len(plain)+s.aead.Overhead())
	out[0] = sealedV1
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out[1:], plain, out[:1]), nil
}

func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	size := s.aead.NonceSize()
	if len(sealed) < 1+size+s.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	if sealed[0] != sealedV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, sealed[0])
	}
	return s.aead.Open(nil, sealed[1:1+size], sealed[1+size:], sealed[:1])
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(value []byte) (string, error) {
	plain, err := s.Decrypt(value)
	return string(plain), err
}

// decodeSecret accepts hex, padded or raw base64, or the literal bytes.
func decodeSecret(raw string) []byte {
	if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) >= 32 {
		return decoded
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil && len(decoded) >= 32 {
			return decoded
		}
	}
	return []byte(raw)
}
