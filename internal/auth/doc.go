// Package auth provides bearer token authentication for the devicehub API.
//
// Tokens are HS256 JWTs carrying a subject and a role. Viewers may read
// devices and subscribe to events; admins may also mutate them. The
// role-permission mapping is static.
package auth
