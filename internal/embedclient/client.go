package embedclient

import (
	"context"
	"sync/atomic"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

// Client is the provider-agnostic text->vector capability (spec.md §4.1,
// Design Notes: "duck-typed embedding clients" re-architected as a single
// explicit capability with distinct concrete implementations selected at
// config time).
type Client interface {
	ID() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// dimensioned is embedded by every concrete provider so the advertised
// dimension can be discovered lazily on first successful call, per
// spec.md §4.1.
type dimensioned struct {
	configured int32
	observed   atomic.Int32
}

func newDimensioned(configured int) *dimensioned {
	d := &dimensioned{configured: int32(configured)}
	d.observed.Store(int32(configured))
	return d
}

func (d *dimensioned) Dimension() int {
	return int(d.observed.Load())
}

// observe updates the advertised dimension if the vector returned by a
// successful call differs from what's currently advertised. The caller
// (Index Engine) is responsible for detecting the mismatch against the
// store's schema before writing rows — this client has no opinion on
// whether the change is acceptable.
func (d *dimensioned) observe(n int) {
	if n > 0 {
		d.observed.Store(int32(n))
	}
}

// classifyHTTPStatus maps a provider's HTTP status code to the error
// taxonomy in spec.md §7.
func classifyHTTPStatus(status int, hasAuth bool) error {
	switch {
	case status == 401 || status == 403:
		if hasAuth {
			return apperr.ErrUnauthorized
		}
		return apperr.ErrTransport
	case status == 429:
		return apperr.ErrRateLimited
	case status >= 500:
		return apperr.ErrTransport
	default:
		return nil
	}
}
