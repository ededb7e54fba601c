package indexengine

import "testing"

func TestCancelTokenLifecycle(t *testing.T) {
	c := NewCancelToken()
	if c.IsCancelled() {
		t.Error("new token should not start cancelled")
	}
	c.Cancel()
	if !c.IsCancelled() {
		t.Error("expected IsCancelled true after Cancel")
	}
	c.Reset()
	if c.IsCancelled() {
		t.Error("expected IsCancelled false after Reset")
	}
}

func TestNilCancelTokenIsNeverCancelled(t *testing.T) {
	var c *CancelToken
	if c.IsCancelled() {
		t.Error("nil token must report not-cancelled")
	}
}
