package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var (
	// ErrNotFound indicates no cached credential exists for the identity.
	// Callers treat it as a normal branch, not a failure.
	ErrNotFound = errors.New("no cached credential")

	// ErrMalformedToken indicates an ID token that could not be decoded or
	// lacks the claims needed to derive a storage identity.
	ErrMalformedToken = errors.New("malformed id token")

	// ErrStateMismatch indicates the callback carried a state parameter that
	// does not match the one generated at flow start.
	ErrStateMismatch = errors.New("state mismatch in callback")

	// ErrTimeout indicates the user did not complete the browser login
	// before the listener deadline.
	ErrTimeout = errors.New("timed out waiting for callback")

	// ErrStoreUnavailable indicates the credential store backend failed.
	// The facade treats it like ErrNotFound so the user can re-authorize.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// AuthorizationError is a denial delivered by the provider on the redirect,
// e.g. error=access_denied when the user cancels the consent screen.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// TokenExchangeError is a rejected authorization-code exchange. It carries
// the HTTP status and the provider error code so a human can diagnose it.
type TokenExchangeError struct {
	StatusCode   int
	ProviderCode string
	Description  string
	Err          error
}

func (e *TokenExchangeError) Error() string {
	msg := "token exchange failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.ProviderCode != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ProviderCode)
	}
	if e.Description != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Description)
	}
	if e.ProviderCode == "" && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// RefreshError is a rejected refresh-token grant, typically an expired or
// revoked refresh token. The facade falls back to interactive login on it.
type RefreshError struct {
	StatusCode   int
	ProviderCode string
	Description  string
	Err          error
}

func (e *RefreshError) Error() string {
	msg := "token refresh failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.ProviderCode != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ProviderCode)
	}
	if e.ProviderCode == "" && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RefreshError) Unwrap() error { return e.Err }

func newExchangeError(err error) *TokenExchangeError {
	out := &TokenExchangeError{Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			out.StatusCode = re.Response.StatusCode
		}
		out.ProviderCode = re.ErrorCode
		out.Description = re.ErrorDescription
	}
	return out
}

func newRefreshError(err error) *RefreshError {
	out := &RefreshError{Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			out.StatusCode = re.Response.StatusCode
		}
		out.ProviderCode = re.ErrorCode
		out.Description = re.ErrorDescription
	}
	return out
}
