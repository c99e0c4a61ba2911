package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"scriptsync/pkg/logging"
)

// maxCSRFTokenSize bounds how much of the /csrf-token body is read.
const maxCSRFTokenSize = 4 << 10

// CSRFFetch sends a CSRF-protected request. A fresh token is fetched from the
// origin before every attempt. Failed attempts are retried up to retries
// times; see the package documentation for which failures qualify.
func (m *Manager) CSRFFetch(ctx context.Context, target string, opts RequestOptions, retries int) (*http.Response, error) {
	u, origin, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	target = u.String()
	requestID := uuid.NewString()

	for attempt := 1; ; attempt++ {
		resp, err := m.csrfAttempt(ctx, target, origin, opts)
		if err == nil {
			if attempt > 1 {
				logging.Debug("CSRF", "Request %s to %s succeeded on attempt %d", requestID, target, attempt)
			}
			return resp, nil
		}

		switch {
		case IsTimeout(err):
			return nil, &RequestTimeoutError{URL: target, Err: err}
		case isSessionConsistency(err):
			return nil, err
		case !IsUnauthorized(err) && !isRetryable(err):
			return nil, err
		case retries <= 0:
			logging.Warn("CSRF", "Request %s to %s gave up after %d attempts: %v", requestID, target, attempt, err)
			return nil, &RetryAttemptsExhaustedError{URL: target, Attempts: attempt, Err: err}
		}

		if IsUnauthorized(err) {
			m.metrics.retry("unauthorized")
			if err := m.ClearSession(ctx, origin); err != nil {
				return nil, err
			}
			m.notifier.Notify(ctx, fmt.Sprintf("Session for %s was rejected by the server, signing in again", origin))
		} else {
			m.metrics.retry("error")
			logging.Debug("CSRF", "Request %s to %s failed on attempt %d, resetting session: %v", requestID, target, attempt, err)
			if err := m.resetSession(ctx, origin); err != nil {
				return nil, err
			}
			if err := m.sleep(ctx, m.retryDelay); err != nil {
				return nil, &RequestTimeoutError{URL: target, Err: err}
			}
		}
		retries--
	}
}

// csrfAttempt performs one token fetch plus the protected request.
func (m *Manager) csrfAttempt(ctx context.Context, target, origin string, opts RequestOptions) (*http.Response, error) {
	if _, err := m.store.PutIfAbsent(ctx, Session{Origin: origin, Fresh: true, LastTouched: m.now()}); err != nil {
		return nil, err
	}

	// TODO: skip the token round trip while LastCSRFToken is still fresh once the
	// server's token rotation rules are confirmed.
	token, err := m.fetchCSRFToken(ctx, origin)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, &CSRFTokenNotFoundError{Origin: origin}
	}

	header := opts.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	setCSRFHeader(header, token)
	opts.Header = header

	resp, err := m.Fetch(ctx, target, opts)
	if err != nil {
		return nil, err
	}

	if rotated := CSRFTokenFromHeader(resp.Header); rotated != "" && rotated != token {
		if _, err := m.store.Update(ctx, origin, func(s *Session) { s.LastCSRFToken = rotated }); err != nil {
			drainAndClose(resp)
			return nil, err
		}
	}
	return resp, nil
}

// fetchCSRFToken retrieves a token from the origin and records it on the session.
func (m *Manager) fetchCSRFToken(ctx context.Context, origin string) (string, error) {
	tokenURL := origin + CSRFTokenPath
	resp, err := m.Fetch(ctx, tokenURL, RequestOptions{Method: http.MethodGet})
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPResponseError{
			Method:     http.MethodGet,
			URL:        tokenURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSRFTokenSize))
	if err != nil {
		return "", fmt.Errorf("failed to read CSRF token: %w", err)
	}
	token := strings.TrimSpace(string(body))

	if _, err := m.store.Update(ctx, origin, func(s *Session) { s.LastCSRFToken = token }); err != nil {
		return "", err
	}
	logging.Debug("CSRF", "Fetched token %s for %s", logging.TruncateSecret(token), origin)
	return token, nil
}

// resetSession forgets the token and drops the session so the next attempt starts clean.
func (m *Manager) resetSession(ctx context.Context, origin string) error {
	if _, err := m.store.Update(ctx, origin, func(s *Session) { s.LastCSRFToken = "" }); err != nil {
		return err
	}
	_, err := m.store.Delete(ctx, origin)
	return err
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
