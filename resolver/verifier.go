package resolver

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// NoPasswordSentinel is stored in place of a verifier for accounts
// provisioned through a federated provider. bcrypt never produces it
// (valid hashes start with $2), so those accounts cannot be logged
// into with a password.
const NoPasswordSentinel = "*"

type (
	// Verifier turns plaintext secrets into one-way verifiers and
	// checks candidates against them. bcrypt salts every hash, two
	// calls on the same plaintext yield different verifiers.
	Verifier struct {
		cost int
	}
)

func NewVerifier() *Verifier {
	return &Verifier{cost: bcrypt.DefaultCost}
}

// NewVerifierWithCost exists so tests can run at bcrypt.MinCost
// instead of paying the deliberately slow default on every case.
func NewVerifierWithCost(cost int) *Verifier {
	return &Verifier{cost: cost}
}

func (v *Verifier) Hash(plaintext string) (string, error) {
	buf, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", fmt.Errorf("unable to compute verifier, cause %w", err)
	}
	return string(buf), nil
}

// Verify reports whether plaintext matches the stored verifier.
// The sentinel and any malformed verifier fail closed. bcrypt compares
// in constant time.
func (v *Verifier) Verify(plaintext, verifier string) bool {
	if verifier == NoPasswordSentinel {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(plaintext)) == nil
}
