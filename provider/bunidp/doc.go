// Package bunidp is the built-in identity provider: external identities
// stored in a bun-managed table with bcrypt-hashed credentials. It backs
// the default-idp-<domain> source when no external provider is configured.
package bunidp
