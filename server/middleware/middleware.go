// Package middleware provides the Gin middleware stack used by the portal
// auth service: panic recovery, request IDs, CORS, request logging, and
// bearer-token authentication.
package middleware
