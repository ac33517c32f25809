package crypto

import (
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	enc, err := NewEncryptor("test-passphrase", 1)
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	sealed, err := enc.Seal("broker-key-abc123")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, "ENC[v1]:") {
		t.Errorf("expected ENC[v1]: prefix, got %q", sealed)
	}

	plain, err := enc.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "broker-key-abc123" {
		t.Errorf("round trip mismatch: got %q", plain)
	}
}

func TestSealProducesUniqueCiphertexts(t *testing.T) {
	enc, _ := NewEncryptor("test-passphrase", 1)
	a, _ := enc.Seal("same")
	b, _ := enc.Seal("same")
	if a == b {
		t.Error("two seals of the same plaintext should differ (random nonce)")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	enc1, _ := NewEncryptor("passphrase-one", 1)
	enc2, _ := NewEncryptor("passphrase-two", 1)

	sealed, _ := enc1.Seal("secret")
	if _, err := enc2.Open(sealed); err != ErrDecryptionFailed {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenRejectsMalformedInput(t *testing.T) {
	enc, _ := NewEncryptor("test-passphrase", 1)
	for _, in := range []string{"", "plaintext", "ENC[v1]", "ENC[v1]:not-base64!!"} {
		if _, err := enc.Open(in); err == nil {
			t.Errorf("Open(%q) should fail", in)
		}
	}
}

func TestNewEncryptorEmptyKey(t *testing.T) {
	if _, err := NewEncryptor("", 1); err != ErrEmptyKey {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	enc, _ := NewEncryptor("test-passphrase", 3)
	sealed, _ := enc.Seal("x")
	if v := ParseVersion(sealed); v != 3 {
		t.Errorf("ParseVersion = %d, want 3", v)
	}
	if v := ParseVersion("garbage"); v != 0 {
		t.Errorf("ParseVersion(garbage) = %d, want 0", v)
	}
}

func TestIsSealed(t *testing.T) {
	if IsSealed("plain-key") {
		t.Error("plain value reported as sealed")
	}
	enc, _ := NewEncryptor("test-passphrase", 1)
	sealed, _ := enc.Seal("x")
	if !IsSealed(sealed) {
		t.Error("sealed value not recognized")
	}
}
