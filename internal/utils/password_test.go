package utils_test

import (
	"strings"
	"testing"

	"github.com/iliyamo/kronos/internal/utils"
)

// cheapArgon2 keeps tests fast; production uses DefaultArgon2Params.
var cheapArgon2 = utils.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashers(t *testing.T) {
	tests := []struct {
		name   string
		hasher utils.Hasher
		prefix string
	}{
		{"bcrypt", utils.BcryptHasher{Cost: 4}, "$2a$"},
		{"argon2id", utils.Argon2Hasher{Params: cheapArgon2}, "$argon2id$v=19$m=1024,t=1,p=1$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := tt.hasher.Hash("correct horse")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			if !strings.HasPrefix(hash, tt.prefix) {
				t.Errorf("hash %q lacks prefix %q", hash, tt.prefix)
			}
			if !tt.hasher.Verify(hash, "correct horse") {
				t.Error("Verify rejected the right password")
			}
			if tt.hasher.Verify(hash, "battery staple") {
				t.Error("Verify accepted a wrong password")
			}
			// VerifyPassword picks the algorithm from the hash itself.
			if !utils.VerifyPassword(hash, "correct horse") {
				t.Error("VerifyPassword rejected the right password")
			}
			if utils.VerifyPassword(hash, "battery staple") {
				t.Error("VerifyPassword accepted a wrong password")
			}
		})
	}
}

func TestArgon2SaltsDiffer(t *testing.T) {
	h := utils.Argon2Hasher{Params: cheapArgon2}
	a, _ := h.Hash("pw")
	b, _ := h.Hash("pw")
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=1024,t=1,p=1$only-five",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
	} {
		if utils.VerifyPassword(hash, "pw") {
			t.Errorf("VerifyPassword(%q) = true", hash)
		}
	}
}

func TestNewHasher(t *testing.T) {
	if h, err := utils.NewHasher("bcrypt", 4); err != nil || h == nil {
		t.Errorf("bcrypt: %v, %v", h, err)
	}
	if h, err := utils.NewHasher("argon2id", 0); err != nil {
		t.Errorf("argon2id: %v", err)
	} else if _, ok := h.(utils.Argon2Hasher); !ok {
		t.Errorf("argon2id returned %T", h)
	}
	if _, err := utils.NewHasher("md5", 0); err == nil {
		t.Error("expected error for unknown hasher")
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := utils.HashPassword("pw", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !utils.VerifyPassword(hash, "pw") {
		t.Error("VerifyPassword rejected HashPassword output")
	}
}
