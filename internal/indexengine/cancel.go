package indexengine

import "sync/atomic"

// CancelToken is the cooperative cancellation handle described in
// spec.md §5: checked at batch boundaries and before each embedding call,
// never forcibly interrupting in-flight work.
type CancelToken struct {
	cancelled atomic.Bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

func (c *CancelToken) IsCancelled() bool {
	if c == nil {
		return false
	}
	return c.cancelled.Load()
}

func (c *CancelToken) Cancel() {
	c.cancelled.Store(true)
}

func (c *CancelToken) Reset() {
	c.cancelled.Store(false)
}
