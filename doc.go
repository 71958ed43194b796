// Package provision keeps a canonical user record in sync with a pluggable
// external identity provider and drives stateless registration and
// password-reset flows with short-lived signed tokens.
//
// The canonical store is the system of record for management and audit; the
// identity provider resolved from a user's source owns everything relevant
// to authentication. Every operation that touches both stores mutates the
// external side first, so a canonical success always implies the external
// store is at least as current.
package provision
