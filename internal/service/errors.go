package service

import (
	"errors"

	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
)

// Failure classes shared across the launch surfaces. Responses built from
// these never distinguish an unknown consumer key from a bad signature, and
// never explain why permission was denied beyond "not permitted".
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPermissionDenied     = errors.New("not permitted")
	ErrNotFound             = errors.New("not found")
	ErrUpstreamUnavailable  = errors.New("upstream service unavailable")

	// ErrTokenInvalid mirrors the token store sentinel so handlers only
	// need the service package.
	ErrTokenInvalid = tokenstore.ErrTokenInvalid
)
