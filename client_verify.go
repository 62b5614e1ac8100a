package authflow

import (
	"context"
	"time"

	"github.com/Keralin/authflow/internal/api"
	"github.com/Keralin/authflow/internal/flows"
)

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Verify submits one code against the pending challenge. Supplying a method
// other than the currently selected one switches the machine over first,
// which discards tracked rate-limit state for the old method. On success the
// challenge is consumed and the machine lands in completed; on failure the
// challenge stays pending so the caller may retry.
func (c *Client) Verify(ctx context.Context, attempt VerificationAttempt) (*User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricVerifyLatency, time.Since(start)) }()
	}

	challenge := c.store.Challenge()
	if c.state != flows.StateTwoFactorVerify || challenge == nil {
		return nil, ErrNoChallenge
	}

	c.switchMethodLocked(attempt.Method)

	transport, err := c.transportClient(ctx)
	if err != nil {
		return nil, err
	}

	outcome, err := flows.RunCompleteChallenge(ctx, flows.CompleteInput{
		Challenge: *challenge,
		Method:    attempt.Method,
		Code:      attempt.Code,
		Rate:      c.rate,
	}, c.completeDeps(transport))
	c.rate = outcome.Rate
	if err != nil {
		return nil, err
	}

	c.store.SetUser(*outcome.User)
	c.state = flows.StateCompleted
	return c.store.User(), nil
}

// VerifyTOTP describes the verifytotp operation and its observable behavior.
//
// VerifyTOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) VerifyTOTP(ctx context.Context, code string) (*User, error) {
	return c.Verify(ctx, VerificationAttempt{Method: MethodTOTP, Code: code})
}

// VerifyBackupCode describes the verifybackupcode operation and its observable behavior.
//
// VerifyBackupCode may return an error when input validation, dependency calls, or security checks fail.
// VerifyBackupCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) VerifyBackupCode(ctx context.Context, code string) (*User, error) {
	return c.Verify(ctx, VerificationAttempt{Method: MethodBackup, Code: code})
}

// SelectMethod describes the selectmethod operation and its observable behavior.
//
// SelectMethod may return an error when input validation, dependency calls, or security checks fail.
// SelectMethod does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// SelectMethod is local-only. Switching away from a method discards its
// tracked rate-limit state; the server remains authoritative on the next
// submission.
func (c *Client) SelectMethod(method VerificationMethod) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchMethodLocked(method)
}

// Method describes the method operation and its observable behavior.
//
// Method may return an error when input validation, dependency calls, or security checks fail.
// Method does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Method() VerificationMethod {
	if c == nil {
		return MethodTOTP
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// RateLimit describes the ratelimit operation and its observable behavior.
//
// RateLimit may return an error when input validation, dependency calls, or security checks fail.
// RateLimit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RateLimit() RateLimitState {
	if c == nil {
		return RateLimitState{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate.Clone()
}

// switchMethodLocked flips the selected second factor. A no-op unless the
// method actually changes. Callers hold c.mu.
func (c *Client) switchMethodLocked(method flows.VerificationMethod) {
	if method == c.method {
		return
	}
	c.method = method
	c.rate = flows.RateLimitState{}
	c.metricInc(MetricMethodSwitched)
}

func (c *Client) completeDeps(transport *api.Client) flows.CompleteDeps {
	return flows.CompleteDeps{
		TOTPDigits:       c.config.Flow.TOTPDigits,
		BackupCodeLength: c.config.Flow.BackupCodeLength,
		PostComplete:     transport.CompleteTwoFactor,
		RateDetails:      api.RateDetailsFrom,
		IsRejected:       api.IsRejected,
		MetricInc:        c.metricIncInt,
		EmitAudit:        c.emitAudit,
		Metrics: flows.CompleteMetrics{
			ChallengeCompleted:      int(MetricChallengeCompleted),
			VerificationFailure:     int(MetricVerificationFailure),
			VerificationRateLimited: int(MetricVerificationRateLimited),
			CodeFormatRejected:      int(MetricCodeFormatRejected),
			RateLimitHit:            int(MetricRateLimitHit),
			BackendError:            int(MetricBackendError),
		},
		Events: flows.CompleteEvents{
			ChallengeCompleted: auditEventChallengeCompleted,
			VerificationFailed: auditEventVerificationFailed,
			RateLimited:        auditEventRateLimited,
		},
		Errors: flows.CompleteErrors{
			ClientNotReady:     ErrClientNotReady,
			TOTPCodeFormat:     ErrTOTPCodeFormat,
			BackupCodeFormat:   ErrBackupCodeFormat,
			RateLimited:        ErrRateLimited,
			VerificationFailed: ErrVerificationFailed,
			ChallengeMalformed: ErrChallengeMalformed,
			BackendUnavailable: ErrBackendUnavailable,
		},
	}
}
