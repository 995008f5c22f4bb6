package resolver

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)
	hash, err := v.Hash("correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Verify("correct horse battery staple", hash) {
		t.Fatal("verifier rejected the plaintext it was computed from")
	}
	if v.Verify("correct horse battery", hash) {
		t.Fatal("verifier accepted a different plaintext")
	}
}

func TestVerifierIsRandomized(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)
	first, err := v.Hash("same input")
	if err != nil {
		t.Fatal(err)
	}
	second, err := v.Hash("same input")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two hashes of the same plaintext must differ")
	}
	if !v.Verify("same input", first) || !v.Verify("same input", second) {
		t.Fatal("both verifiers must accept the original plaintext")
	}
}

func TestSentinelNeverVerifies(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)
	for _, plaintext := range []string{"", "*", NoPasswordSentinel, "password", "hunter2"} {
		if v.Verify(plaintext, NoPasswordSentinel) {
			t.Fatalf("sentinel verified plaintext %q", plaintext)
		}
	}
}

func TestSentinelUnreachableFromHash(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)
	for _, plaintext := range []string{"*", "", "a"} {
		hash, err := v.Hash(plaintext)
		if err != nil {
			t.Fatal(err)
		}
		if hash == NoPasswordSentinel {
			t.Fatalf("hash of %q collided with the sentinel", plaintext)
		}
		if !strings.HasPrefix(hash, "$2") {
			t.Fatalf("unexpected verifier shape %q", hash)
		}
	}
}

func TestMalformedVerifierFailsClosed(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)
	for _, verifier := range []string{"", "not-a-hash", "$2a$garbage"} {
		if v.Verify("anything", verifier) {
			t.Fatalf("malformed verifier %q verified a plaintext", verifier)
		}
	}
}
