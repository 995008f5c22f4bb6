// Package resolver decides whether and as whom an authentication
// attempt becomes a logged-in identity.
//
// There are only two doors in: ResolveLocal, fed by an email and a
// plaintext password typed in a form, and ResolveFederated, fed by an
// email that some external identity provider already vouched for.
// Whatever happens behind those doors ends in exactly one of two
// places: an Identity snapshot, or a Rejection explaining (to us, not
// to the caller's users) why not.
//
// A word on the federated join rule: a federated attempt matches an
// existing account purely by email. If alice@x.com registered with a
// password and later shows up through Google, she gets her password
// account, password untouched. That is a deliberate policy, not an
// accident; if you want separate identities per provider, this is the
// package to change.
//
// Accounts provisioned through a provider get the sentinel "*" where
// a password verifier would go. bcrypt output always starts with $2,
// so no password under the sun hashes to "*", and the verifier fails
// closed on anything that is not a well-formed hash. Federated-only
// accounts therefore have no working password at all.
package resolver
