// Package apperr defines the error taxonomy shared by the store, auth, and
// API layers. Handlers map these to HTTP statuses in one place; anything not
// in the taxonomy is an infrastructure failure and surfaces as a 500 with
// detail withheld.
package apperr

import "errors"

var (
	ErrValidation        = errors.New("invalid input")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrPrincipalNotFound = errors.New("account not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)
