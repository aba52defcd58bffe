// Package authcore implements the authentication and session lifecycle core of the
// claimpoint item registry: credential validation, paired access/refresh JWT issuance,
// Redis-backed session persistence, token revocation, and capability-based authorization.
//
// The package is designed for concurrent server workloads: Engine methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the request
// strategies ([Engine.AuthenticateAccess], [Engine.AuthenticateRefresh]), and value types
// ([Identity], [TokenPair], [RefreshGrant]). The routing layer, its controllers, and the
// user database stay outside; the core reaches them only through [UserProvider].
//
// # What this package must NOT do
//
//   - Retry or mask store failures as authentication failures — infrastructure errors
//     propagate wrapped, auth rejections are sentinel errors.
//   - Leak which pipeline step rejected a request; callers collapse every identity
//     failure into one generic response.
//   - Perform I/O during construction (Builder is allocation-only until Build).
//
// # Performance contract
//
// AuthenticateAccess is the hot path: one token parse, one revocation EXISTS, one user
// lookup. Login and Refresh additionally pay one argon2 verification each; argon2 work
// runs on the calling goroutine and is bounded by the configured parameters.
package authcore
