package resolver

import (
	"errors"
	"fmt"
)

type (
	// Reason classifies why an attempt did not authenticate.
	Reason string

	// Rejection is the terminal failure of one authentication attempt.
	// UnknownIdentity and CredentialMismatch must be presented to end
	// users identically; the distinct reasons exist for logs only.
	Rejection struct {
		Reason Reason
		cause  error
	}
)

const (
	UnknownIdentity       = Reason("unknown-identity")
	CredentialMismatch    = Reason("credential-mismatch")
	IdentityAlreadyExists = Reason("identity-already-exists")
	StoreUnavailable      = Reason("store-unavailable")
	VerifierFailure       = Reason("verifier-failure")
)

func (r Rejection) Error() string {
	if r.cause != nil {
		return fmt.Sprintf("attempt rejected: %v, cause %v", r.Reason, r.cause)
	}
	return fmt.Sprintf("attempt rejected: %v", r.Reason)
}

func (r Rejection) Unwrap() error { return r.cause }

// Fault reports whether the rejection is an operator-facing fault
// rather than a bad credential from the user.
func (r Rejection) Fault() bool {
	return r.Reason == StoreUnavailable || r.Reason == VerifierFailure
}

func reject(reason Reason, cause error) error {
	return Rejection{Reason: reason, cause: cause}
}

// RejectedWith reports whether err is a rejection carrying the given reason.
func RejectedWith(err error, reason Reason) bool {
	var r Rejection
	return errors.As(err, &r) && r.Reason == reason
}
