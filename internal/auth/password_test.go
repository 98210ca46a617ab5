package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "password123", false},
		{"empty password", "", false},
		{"max length password", strings.Repeat("a", MaxPasswordBytes), false},
		{"too long password", strings.Repeat("a", MaxPasswordBytes+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("Hash() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && hash == "" {
				t.Error("Hash() returned empty hash")
			}
			if !tt.wantErr && strings.Contains(hash, tt.password) && tt.password != "" {
				t.Error("Hash() leaked plaintext into digest")
			}
		})
	}
}

func TestHash_DifferentSalts(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash1, _ := h.Hash("testpassword")
	hash2, _ := h.Hash("testpassword")

	if hash1 == hash2 {
		t.Error("Hash() should produce different hashes for same password")
	}
}

func TestNewPasswordHasher_DefaultCost(t *testing.T) {
	h := NewPasswordHasher(0)
	if h.Cost != DefaultCost {
		t.Fatalf("Cost = %d, want %d", h.Cost, DefaultCost)
	}
	hash, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != 12 {
		t.Errorf("bcrypt.Cost() = %d, %v; want 12", cost, err)
	}
}

func TestVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	password := "testpassword123"
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"correct password", hash, password, true},
		{"wrong password", hash, "wrongpassword", false},
		{"empty password", hash, "", false},
		{"invalid hash", "invalidhash", password, false},
		{"dummy hash never matches", dummyHash, password, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Verify(tt.hash, tt.password); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDummyHashIsWellFormed(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(dummyHash))
	if err != nil {
		t.Fatalf("dummy hash rejected by bcrypt: %v", err)
	}
	if cost != DefaultCost {
		t.Errorf("dummy hash cost = %d, want %d", cost, DefaultCost)
	}
}
