package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/avelar/confidant/credstore"
	"github.com/avelar/confidant/internal/logutil"
)

type (
	// Identity is the outcome of a successful attempt: which account
	// the request now acts as, with enough attributes to render a page
	// without a second store lookup.
	Identity struct {
		Email     string `json:"email"`
		Secret    string `json:"secret"`
		Federated bool   `json:"federated"`
	}

	// Intent distinguishes a login form submission from a registration
	// form submission; both arrive as (email, plaintext).
	Intent byte

	// R runs the per-attempt state machine over an injected store and
	// verifier. It holds no per-attempt state, one value serves every
	// concurrent request.
	R struct {
		store        *credstore.Store
		verifier     *Verifier
		storeTimeout time.Duration
	}
)

const (
	IntentLogin = Intent(iota)
	IntentRegister

	defaultStoreTimeout = 5 * time.Second
)

func New(store *credstore.Store, verifier *Verifier) *R {
	return &R{store: store, verifier: verifier, storeTimeout: defaultStoreTimeout}
}

// ResolveLocal authenticates an (email, plaintext) pair. With
// IntentLogin the account must exist and the plaintext must verify;
// with IntentRegister the account must not exist and is provisioned
// with a fresh verifier. Uniqueness under concurrent registration is
// the store's unique constraint, not a read-then-write here.
func (r *R) ResolveLocal(ctx context.Context, email, plaintext string, intent Intent) (*Identity, error) {
	acc, err := r.lookup(ctx, email)
	var notfound credstore.AccountNotFound
	switch {
	case err == nil:
		if intent == IntentRegister {
			return nil, reject(IdentityAlreadyExists, nil)
		}
		if !r.verifier.Verify(plaintext, acc.Verifier) {
			return nil, reject(CredentialMismatch, nil)
		}
		return &Identity{Email: acc.Email, Secret: acc.Secret}, nil
	case errors.As(err, &notfound):
		if intent == IntentLogin {
			return nil, reject(UnknownIdentity, nil)
		}
		return r.provisionLocal(ctx, email, plaintext)
	default:
		return nil, r.storeFault(ctx, "lookup", err)
	}
}

// ResolveFederated authenticates an email already vouched for by the
// named provider. No password check happens: the email is the sole
// join key, even against accounts that hold a local verifier. Unseen
// emails are provisioned with the no-password sentinel.
func (r *R) ResolveFederated(ctx context.Context, email, provider string) (*Identity, error) {
	acc, err := r.lookup(ctx, email)
	var notfound credstore.AccountNotFound
	switch {
	case err == nil:
		return &Identity{Email: acc.Email, Secret: acc.Secret, Federated: true}, nil
	case errors.As(err, &notfound):
	default:
		return nil, r.storeFault(ctx, "lookup", err)
	}
	acc, err = r.insert(ctx, email, NoPasswordSentinel)
	var dup credstore.DuplicateEmail
	if errors.As(err, &dup) {
		// lost a race against another attempt for the same email,
		// the account exists now and that is all a federated login needs
		acc, err = r.lookup(ctx, email)
	}
	if err != nil {
		return nil, r.storeFault(ctx, "provision", err)
	}
	logger := logutil.GetOrDefault(ctx)
	logger.Info().
		Str("email", email).
		Str("provider", provider).
		Msg("Provisioned federated-only account")
	return &Identity{Email: acc.Email, Secret: acc.Secret, Federated: true}, nil
}

func (r *R) provisionLocal(ctx context.Context, email, plaintext string) (*Identity, error) {
	verifier, err := r.verifier.Hash(plaintext)
	if err != nil {
		logutil.GetOrDefault(ctx).Error().Err(err).Msg("Verifier computation failed")
		return nil, reject(VerifierFailure, err)
	}
	acc, err := r.insert(ctx, email, verifier)
	var dup credstore.DuplicateEmail
	if errors.As(err, &dup) {
		return nil, reject(IdentityAlreadyExists, err)
	}
	if err != nil {
		return nil, r.storeFault(ctx, "provision", err)
	}
	return &Identity{Email: acc.Email, Secret: acc.Secret}, nil
}

func (r *R) lookup(ctx context.Context, email string) (*credstore.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.store.FindByEmail(ctx, email)
}

func (r *R) insert(ctx context.Context, email, verifier string) (*credstore.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.store.Insert(ctx, email, verifier, "")
}

func (r *R) storeFault(ctx context.Context, op string, err error) error {
	logutil.GetOrDefault(ctx).Error().Err(err).
		Str("op", op).
		Msg("Credential store unavailable")
	return reject(StoreUnavailable, err)
}
