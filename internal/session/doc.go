// Package session implements the authenticated multi-origin HTTP client.
//
// A Manager keeps one Session per origin (scheme + host). Sessions are
// established transparently: when Fetch finds no valid session it logs in
// with the configured credentials.Provider, records the JSESSIONID and
// INGRESSCOOKIE cookies from the response and replays the caller's request
// with those cookies attached.
//
// # Session lifecycle
//
//	NoSession -> Authenticating -> Active -> (Expired | Unauthorized) -> NoSession
//
// A session is valid while it carries a JSESSIONID and was touched less than
// the TTL (5 minutes by default) ago. Validity is checked lazily on every
// request; the background sweep started by Start only reclaims memory and
// storage.
//
// # CSRF-protected requests
//
// CSRFFetch fetches a fresh token from /csrf-token before every protected
// request, sends it in the b6p-csrf-token header and records any rotated
// token from the response. Failures are retried in a bounded loop:
//   - 401/403 responses clear the session and notify the observer
//   - HTTP errors, missing tokens and transport failures clear the session
//     and wait RetryDelay
//   - cancellation and timeouts end the loop immediately
//   - session-consistency errors are returned unchanged
//
// # Persistence
//
// The session map is written through to a kvstore.Store on every mutation
// and loaded again by Init.
package session
