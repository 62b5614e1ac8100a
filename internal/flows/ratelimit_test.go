package flows

import (
	"testing"
	"time"
)

func TestApplyRateLimitNilDetailsKeepsPrev(t *testing.T) {
	remaining := 2
	prev := RateLimitState{Limited: true, RemainingAttempts: &remaining, Message: "locked"}

	got := ApplyRateLimit(prev, nil)
	if !got.Limited || got.Message != "locked" {
		t.Fatalf("expected prev preserved, got %+v", got)
	}
	if got.RemainingAttempts == nil || *got.RemainingAttempts != 2 {
		t.Fatalf("expected remaining attempts preserved, got %+v", got.RemainingAttempts)
	}
}

func TestApplyRateLimitAllClear(t *testing.T) {
	prev := RateLimitState{Limited: true, Message: "locked"}

	got := ApplyRateLimit(prev, &RateLimitDetails{RateLimited: false})
	if got.Limited || got.Message != "" || got.RemainingAttempts != nil || got.LockoutEndsAt != nil {
		t.Fatalf("expected an all-clear state, got %+v", got)
	}
}

func TestApplyRateLimitCopiesPointers(t *testing.T) {
	remaining := 0
	ends := time.Date(2025, 3, 14, 9, 36, 53, 0, time.UTC)
	details := &RateLimitDetails{
		RateLimited:       true,
		RemainingAttempts: &remaining,
		LockoutEndsAt:     &ends,
		Message:           "too many attempts",
	}

	got := ApplyRateLimit(RateLimitState{}, details)

	remaining = 99
	ends = ends.Add(time.Hour)

	if *got.RemainingAttempts != 0 {
		t.Fatalf("expected remaining attempts decoupled from the source, got %d", *got.RemainingAttempts)
	}
	if !got.LockoutEndsAt.Equal(time.Date(2025, 3, 14, 9, 36, 53, 0, time.UTC)) {
		t.Fatalf("expected lockout time decoupled from the source, got %v", got.LockoutEndsAt)
	}
}

func TestRateLimitStateClone(t *testing.T) {
	remaining := 1
	ends := time.Date(2025, 3, 14, 9, 36, 53, 0, time.UTC)
	state := RateLimitState{
		Limited:           true,
		RemainingAttempts: &remaining,
		LockoutEndsAt:     &ends,
		Message:           "locked",
	}

	clone := state.Clone()
	*clone.RemainingAttempts = 99
	*clone.LockoutEndsAt = ends.Add(time.Hour)

	if *state.RemainingAttempts != 1 {
		t.Fatalf("expected the original untouched, got %d", *state.RemainingAttempts)
	}
	if !state.LockoutEndsAt.Equal(ends) {
		t.Fatalf("expected the original untouched, got %v", state.LockoutEndsAt)
	}
}

func TestBlocked(t *testing.T) {
	if Blocked(RateLimitState{}) {
		t.Fatal("expected the zero state unblocked")
	}
	remaining := 1
	if Blocked(RateLimitState{RemainingAttempts: &remaining}) {
		t.Fatal("expected a countdown without a lockout unblocked")
	}
	if !Blocked(RateLimitState{Limited: true}) {
		t.Fatal("expected a limited state blocked")
	}
}
