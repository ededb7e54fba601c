package apperr

import "errors"

var (
	ErrConfig       = errors.New("config")
	ErrTransport    = errors.New("transport")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrIO           = errors.New("io")
	ErrBusy         = errors.New("busy")
	ErrCancelled    = errors.New("cancelled")
	ErrIndexing     = errors.New("indexing")
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
)

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Retryable reports whether err should be retried by the embedding loop:
// rate-limited or transient transport failures, never config/auth errors.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransport)
}
