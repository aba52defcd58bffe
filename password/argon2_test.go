package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	// Small costs keep the suite fast; production parameters are validated
	// separately.
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := h.Verify("correct-horse", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("correct secret rejected")
	}

	ok, err = h.Verify("wrong-horse", encoded)
	if err != nil {
		t.Fatalf("verify mismatch: %v", err)
	}
	if ok {
		t.Fatal("wrong secret accepted")
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same secret are identical")
	}
}

func TestHashRejectsEmptySecret(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerifyRejectsMalformedPHC(t *testing.T) {
	h := newTestHasher(t)

	malformed := []string{
		"",
		"plain-text",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	}
	for _, enc := range malformed {
		if _, err := h.Verify("secret", enc); err == nil {
			t.Errorf("expected parse error for %q", enc)
		}
	}
}

func TestVerifyDummyBurnsWithoutPanic(t *testing.T) {
	h := newTestHasher(t)
	h.VerifyDummy("anything")
	h.VerifyDummy("")
}

func TestNeedsRehash(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	need, err := h.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("needs rehash: %v", err)
	}
	if need {
		t.Fatal("fresh hash flagged for rehash")
	}

	stronger := testConfig()
	stronger.Time = 2
	h2, err := NewHasher(stronger)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	need, err = h2.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("needs rehash: %v", err)
	}
	if !need {
		t.Fatal("weaker hash not flagged under stronger config")
	}
}

func TestNewHasherValidatesConfig(t *testing.T) {
	bad := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range bad {
		if _, err := NewHasher(cfg); err == nil {
			t.Errorf("config %d accepted: %+v", i, cfg)
		}
	}
}
