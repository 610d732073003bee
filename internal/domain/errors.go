package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnsupportedQuery = errors.New("unsupported query")
	ErrInvalidRecipe    = errors.New("invalid recipe")
	ErrUnauthenticated  = errors.New("not signed in")
	ErrForbidden        = errors.New("forbidden")
	ErrDraftIncomplete  = errors.New("recipe needs a name and instructions")
	ErrNotImage         = errors.New("file is not an image")
	ErrClosed           = errors.New("store is closed")
)
