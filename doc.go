// Package auth implements a multi-tenant partner authentication core:
// password credential storage, signed single-use tokens for email
// validation, password set/reset and impersonation, and session cookie
// materialization.
//
// Partners are scoped to a Directory (tenant/realm). Each directory owns
// the secrets used to sign its tokens and cookies, the per-action token
// lifetimes, and the mail templates used for notifications. A token minted
// under one directory never verifies under another.
//
// Set-password and impersonation tokens are single-use without a
// revocation store: the signing key is extended with a salt derived from
// the partner state that redeeming the token mutates, so a redeemed token
// no longer verifies.
package auth
