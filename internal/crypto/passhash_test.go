package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// cheap keeps the tests fast; production hashes use DefaultParams.
var cheap = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("admin123", cheap)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", h)
	}
	h2, _ := HashPassword("admin123", cheap)
	if h == h2 {
		t.Fatalf("salts must differ between hashes")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("correct horse battery staple", cheap)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword("correct horse battery staple", h)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword(correct) = %v, %v", ok, err)
	}
	if ok, _ := VerifyPassword("wrong", h); ok {
		t.Fatalf("VerifyPassword: expected false for wrong password")
	}
	if ok, _ := VerifyPassword("", h); ok {
		t.Fatalf("VerifyPassword: expected false for empty password")
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=19$m=x$a$b", "$argon2id$v=19$m=1024,t=1,p=1$!!$AA"} {
		if _, err := VerifyPassword("x", enc); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%q: err=%v, want ErrMalformedHash", enc, err)
		}
	}
}
