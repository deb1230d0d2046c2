// Package auth signs and verifies the bearer tokens that guard the
// control API.
//
// Tokens are HS256 JWTs signed with the shared api.auth.jwt_secret. The
// lighting desk (or any other controller) presents one as
// "Authorization: Bearer <token>" on every request that changes the show.
// Tokens are checked by signature and expiry only; there is no user
// database and no revocation list, so keep the TTL to the length of a show.
package auth
