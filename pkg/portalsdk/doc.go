// Package portalsdk is a typed client for the Helioscope user portal API.
//
// It covers the authenticated user's identity and login info, the token
// lifecycle (list, detail, create, delete), the append-only token change
// history with cursor pagination, and platform service discovery.
//
// Every response body is validated against its schema before being returned;
// a body that fails validation raises *ValidationError rather than a
// partially-populated value. Failed HTTP calls raise *APIError carrying the
// status code and a user-facing message.
//
// The client performs no caching itself. The querycache package layers
// staleness windows, prefix invalidation, and request coalescing on top.
package portalsdk
