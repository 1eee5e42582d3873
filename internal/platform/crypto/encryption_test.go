package crypto

import (
	"bytes"
	"errors"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptRoundTrip(t *testing.T) {
	svc, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected service to be configured")
	}

	sealed, err := svc.EncryptString("ABCDE1234F")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("ABCDE1234F")) {
		t.Fatal("ciphertext contains the plain value")
	}
	plain, err := svc.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "ABCDE1234F" {
		t.Fatalf("expected round trip, got %q", plain)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	svc, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := svc.EncryptString("same")
	b, _ := svc.EncryptString("same")
	if bytes.Equal(a, b) {
		t.Fatal("expected different ciphertexts for the same value")
	}
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sealed, _ := svc.EncryptString("plain")
	if string(sealed) != "plain" {
		t.Fatalf("expected pass-through, got %q", sealed)
	}
}

func TestRejectsShortKeyAndCiphertext(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short key")
	}
	svc, _ := New(testKey)
	if _, err := svc.Decrypt([]byte{1, 2, 3}); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestDecryptRejectsTamperingAndUnknownVersion(t *testing.T) {
	svc, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sealed, err := svc.EncryptString("ABCDE1234F")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if sealed[0] != sealedV1 {
		t.Fatalf("expected version prefix, got %d", sealed[0])
	}

	flipped := bytes.Clone(sealed)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := svc.Decrypt(flipped); err == nil {
		t.Fatal("expected authentication failure")
	}

	relabelled := bytes.Clone(sealed)
	relabelled[0] = 9
	if _, err := svc.Decrypt(relabelled); !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestKeysFromDifferentSecretsDoNotInteroperate(t *testing.T) {
	a, _ := New(testKey)
	b, _ := New("fedcba9876543210fedcba9876543210")
	sealed, _ := a.EncryptString("secret")
	if _, err := b.DecryptString(sealed); err == nil {
		t.Fatal("expected decrypt with another key to fail")
	}
}
