package driven

import (
	"errors"
	"fmt"
)

// ErrNoCredential is returned when neither a session-scoped token nor the
// process-wide default is available. It always propagates to the caller.
var ErrNoCredential = errors.New("no personal access token available: set AZPANEL_PAT or provide a session token")

// AuthError reports a 401 from any surface. By the time it is returned the
// session-scoped credential has been invalidated, so the next resolution
// falls back to the process default.
type AuthError struct{}

func (*AuthError) Error() string {
	return "personal access token is invalid or has expired"
}

// NotFoundError reports a 404 from a surface where the resource was
// expected to exist. Org, when set, points at the most common cause: a
// misconfigured organization name.
type NotFoundError struct {
	Resource string
	Org      string
}

func (e *NotFoundError) Error() string {
	if e.Org != "" {
		return fmt.Sprintf("%s not found (404): check that organization %q is correct", e.Resource, e.Org)
	}
	return fmt.Sprintf("%s not found (404)", e.Resource)
}

// RemoteError reports a non-2xx terminal response after retries were
// exhausted by the surface caller's own policy.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote service returned status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("remote service returned status %d", e.Status)
}

// NetworkError reports a connectivity-class failure: either retry
// exhaustion or a fast-failed name-resolution error. Hint, when set,
// describes the likely misconfiguration.
type NetworkError struct {
	URL      string
	Attempts int
	Hint     string
	Err      error
}

func (e *NetworkError) Error() string {
	msg := fmt.Sprintf("request to %s failed after %d attempt(s)", e.URL, e.Attempts)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthFailure reports whether err is an AuthError or ErrNoCredential,
// the two failures that must always bubble to the top unmodified.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) || errors.Is(err, ErrNoCredential)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}
