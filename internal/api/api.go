// Package api holds the HTTP wire types shared by the server and the
// remote client, and the mapping between domain errors and status codes.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hammamikhairi/badbar/internal/domain"
)

// Routes.
const (
	PathAnonymous = "/v1/auth/anonymous"
	PathPrincipal = "/v1/auth/principals/"
	PathDocuments = "/v1/collections/%s/documents"
	PathWatch     = "/v1/collections/%s/watch"
	PathHealth    = "/healthz"
	PathMetrics   = "/metrics"
)

// Watch query parameters.
const (
	ParamField = "field"
	ParamOp    = "op"
	ParamValue = "value"
)

// MessageSnapshot is the type of a watch message carrying a full result set.
const MessageSnapshot = "snapshot"

// AnonymousResponse is the body of a successful anonymous sign-in.
type AnonymousResponse struct {
	UID string `json:"uid"`
}

// CreateResponse is the body of a successful document creation.
type CreateResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WatchMessage is one frame on a watch socket.
type WatchMessage struct {
	Type    string          `json:"type"`
	Recipes []domain.Recipe `json:"recipes"`
}

// Snapshot wraps snap in a watch message. A nil snapshot is sent as [].
func Snapshot(snap domain.Snapshot) WatchMessage {
	recipes := []domain.Recipe(snap)
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return WatchMessage{Type: MessageSnapshot, Recipes: recipes}
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeUnsupportedQuery = "UNSUPPORTED_QUERY"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeClosed           = "CLOSED"
	CodeInternal         = "INTERNAL"
)

var codeErrors = map[string]error{
	CodeUnsupportedQuery: domain.ErrUnsupportedQuery,
	CodeInvalidRequest:   domain.ErrInvalidRecipe,
	CodeUnauthenticated:  domain.ErrUnauthenticated,
	CodeForbidden:        domain.ErrForbidden,
	CodeNotFound:         domain.ErrNotFound,
	CodeClosed:           domain.ErrClosed,
}

// Status maps an error to an HTTP status and a stable error code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedQuery):
		return http.StatusBadRequest, CodeUnsupportedQuery
	case errors.Is(err, domain.ErrInvalidRecipe):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrClosed):
		return http.StatusServiceUnavailable, CodeClosed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Error rebuilds a domain error from a response. The code decides the
// sentinel; bodies without a known code (proxies, gin's own 404) fall back
// to the status, except 400 which is ambiguous without a code.
func Error(status int, code, msg string) error {
	sentinel, ok := codeErrors[code]
	if !ok {
		switch status {
		case http.StatusUnauthorized:
			sentinel = domain.ErrUnauthenticated
		case http.StatusForbidden:
			sentinel = domain.ErrForbidden
		case http.StatusNotFound:
			sentinel = domain.ErrNotFound
		case http.StatusServiceUnavailable:
			sentinel = domain.ErrClosed
		default:
			if msg == "" {
				msg = http.StatusText(status)
			}
			return fmt.Errorf("server returned %d: %s", status, msg)
		}
	}
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}
