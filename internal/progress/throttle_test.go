package progress

import (
	"testing"
	"time"
)

func TestThrottleAllowsFirstCallThenRateLimits(t *testing.T) {
	th := NewThrottle(500 * time.Millisecond)
	base := time.Now()
	if !th.Allow(base) {
		t.Error("first call should be allowed")
	}
	if th.Allow(base.Add(100 * time.Millisecond)) {
		t.Error("call within the interval should be throttled")
	}
	if !th.Allow(base.Add(600 * time.Millisecond)) {
		t.Error("call past the interval should be allowed")
	}
}
