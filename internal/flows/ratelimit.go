package flows

import "time"

// RateLimitDetails is the decoded `details` object of the error envelope.
type RateLimitDetails struct {
	RateLimited       bool
	RemainingAttempts *int
	LockoutEndsAt     *time.Time
	Message           string
}

// RateLimitState is the tracker's view of the server-enforced attempt cap.
// It is a pure function of server responses: no client-side timer ever
// unlocks it — only a method switch, a flow restart, or the start of a fresh
// attempt cycle clears it, and the server remains authoritative on the next
// submission.
type RateLimitState struct {
	Limited           bool
	RemainingAttempts *int
	LockoutEndsAt     *time.Time
	Message           string
}

// ApplyRateLimit folds one server response into the tracker state.
// A nil details leaves prev untouched (the error carried no rate-limit
// metadata); details with RateLimited=false is an explicit all-clear.
func ApplyRateLimit(prev RateLimitState, details *RateLimitDetails) RateLimitState {
	if details == nil {
		return prev
	}
	if !details.RateLimited {
		return RateLimitState{}
	}
	return RateLimitState{
		Limited:           true,
		RemainingAttempts: cloneIntPtr(details.RemainingAttempts),
		LockoutEndsAt:     cloneTimePtr(details.LockoutEndsAt),
		Message:           details.Message,
	}
}

// Blocked reports whether the tracker currently refuses submissions.
func Blocked(s RateLimitState) bool {
	return s.Limited
}

// Clone returns a deep copy; the pointer fields are duplicated so readers
// can never alias the tracker's own state.
func (s RateLimitState) Clone() RateLimitState {
	return RateLimitState{
		Limited:           s.Limited,
		RemainingAttempts: cloneIntPtr(s.RemainingAttempts),
		LockoutEndsAt:     cloneTimePtr(s.LockoutEndsAt),
		Message:           s.Message,
	}
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
