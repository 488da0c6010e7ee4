package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("test-secret")

	k1, err := DeriveKey(secret, PurposeSession)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k2, _ := DeriveKey(secret, PurposeSession)
	if !bytes.Equal(k1, k2) {
		t.Error("same secret and purpose should derive the same key")
	}

	k3, _ := DeriveKey(secret, PurposeOAuthState)
	if bytes.Equal(k1, k3) {
		t.Error("different purposes should derive different keys")
	}
	if len(k1) != 32 {
		t.Errorf("key length = %d, want 32", len(k1))
	}
}

func TestDeriveKey_Errors(t *testing.T) {
	if _, err := DeriveKey(nil, PurposeSession); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := DeriveKey([]byte("s"), "  "); err == nil {
		t.Error("expected error for empty purpose")
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("test-secret"), PurposeTokenAtRest)
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := s.SealString("garmin-access-token", []byte("user:42"))
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}
	got, err := s.OpenString(sealed, []byte("user:42"))
	if err != nil {
		t.Fatalf("OpenString() error = %v", err)
	}
	if got != "garmin-access-token" {
		t.Errorf("OpenString() = %q, want garmin-access-token", got)
	}

	again, _ := s.SealString("garmin-access-token", []byte("user:42"))
	if again == sealed {
		t.Error("sealing twice should use fresh nonces")
	}
}

func TestSealer_Tamper(t *testing.T) {
	s, _ := NewSealer([]byte("test-secret"), PurposeOAuthState)
	other, _ := NewSealer([]byte("test-secret"), PurposeTokenAtRest)

	sealed, _ := s.SealString("payload", nil)

	tests := []struct {
		name    string
		sealer  *Sealer
		input   string
		context []byte
	}{
		{"wrong purpose", other, sealed, nil},
		{"wrong additional data", s, sealed, []byte("x")},
		{"truncated", s, sealed[:10], nil},
		{"not base64", s, "%%%", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sealer.OpenString(tt.input, tt.context); !errors.Is(err, ErrOpen) {
				t.Errorf("OpenString() error = %v, want ErrOpen", err)
			}
		})
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken() error = %v", err)
	}
	b, _ := RandomToken(32)
	if a == b {
		t.Error("tokens should differ")
	}
	if len(a) != 43 {
		t.Errorf("len = %d, want 43", len(a))
	}
}
