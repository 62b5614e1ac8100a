package flows

import (
	"context"
	"fmt"

	"github.com/Keralin/authflow/session"
)

// VerificationMethod selects the second factor used to complete a challenge.
type VerificationMethod uint8

const (
	MethodTOTP VerificationMethod = iota
	MethodBackup
)

func (m VerificationMethod) String() string {
	switch m {
	case MethodTOTP:
		return "totp"
	case MethodBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// CompleteInput is one verification attempt against a pending challenge.
// Rate is the tracker state as of the previous attempt; the flow clears it at
// the start of the new cycle (after the client-side gate) and folds the
// server's answer back in.
type CompleteInput struct {
	Challenge session.Challenge
	Method    VerificationMethod
	Code      string
	Rate      RateLimitState
}

// CompleteOutcome carries the attempt result. User is non-nil only on
// success; Rate is the tracker state after the attempt.
type CompleteOutcome struct {
	User *session.User
	Rate RateLimitState
}

// CompleteMetrics carries metric IDs needed by the completion flow.
type CompleteMetrics struct {
	ChallengeCompleted      int
	VerificationFailure     int
	VerificationRateLimited int
	CodeFormatRejected      int
	RateLimitHit            int
	BackendError            int
}

// CompleteEvents carries audit event names used by the completion flow.
type CompleteEvents struct {
	ChallengeCompleted string
	VerificationFailed string
	RateLimited        string
}

// CompleteErrors carries host-level sentinel errors used by the completion flow.
type CompleteErrors struct {
	ClientNotReady     error
	TOTPCodeFormat     error
	BackupCodeFormat   error
	RateLimited        error
	VerificationFailed error
	ChallengeMalformed error
	BackendUnavailable error
}

// CompleteDeps captures challenge-completion dependencies.
type CompleteDeps struct {
	TOTPDigits       int
	BackupCodeLength int

	PostComplete func(ctx context.Context, tempToken string, userID int64, method VerificationMethod, code string) (*session.User, error)

	RateDetails func(error) *RateLimitDetails
	IsRejected  func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, method string, err error, metadata func() map[string]string)

	Metrics CompleteMetrics
	Events  CompleteEvents
	Errors  CompleteErrors
}

// RunCompleteChallenge submits exactly one verification code for a pending
// challenge. Order per attempt: format validation (no network on failure),
// client-side rate gate, tracker reset for the fresh cycle, submission,
// tracker update from the response.
func RunCompleteChallenge(ctx context.Context, in CompleteInput, deps CompleteDeps) (CompleteOutcome, error) {
	normalizeCompleteDeps(&deps)

	if deps.PostComplete == nil {
		return CompleteOutcome{Rate: in.Rate}, deps.Errors.ClientNotReady
	}

	code, err := prepareCode(in.Method, in.Code, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.CodeFormatRejected)
		return CompleteOutcome{Rate: in.Rate}, err
	}

	if Blocked(in.Rate) {
		deps.MetricInc(deps.Metrics.RateLimitHit)
		return CompleteOutcome{Rate: in.Rate}, deps.Errors.RateLimited
	}

	// Fresh attempt cycle: prior tracker state is cleared before submission.
	rate := RateLimitState{}

	user, postErr := deps.PostComplete(ctx, in.Challenge.TempToken, in.Challenge.UserID, in.Method, code)
	if postErr != nil {
		return completeFailure(ctx, in, rate, postErr, deps)
	}

	if user == nil {
		return CompleteOutcome{Rate: rate}, deps.Errors.ChallengeMalformed
	}

	resolved := *user
	deps.MetricInc(deps.Metrics.ChallengeCompleted)
	deps.EmitAudit(ctx, deps.Events.ChallengeCompleted, true, resolved.ID, in.Method.String(), nil, nil)
	return CompleteOutcome{User: &resolved, Rate: RateLimitState{}}, nil
}

func prepareCode(method VerificationMethod, code string, deps CompleteDeps) (string, error) {
	switch method {
	case MethodTOTP:
		code = NormalizeTOTPCode(code)
		if !ValidTOTPCode(code, deps.TOTPDigits) {
			return "", deps.Errors.TOTPCodeFormat
		}
	case MethodBackup:
		code = CanonicalizeBackupCode(code)
		if !ValidBackupCode(code, deps.BackupCodeLength) {
			return "", deps.Errors.BackupCodeFormat
		}
	default:
		return "", deps.Errors.ClientNotReady
	}
	return code, nil
}

func completeFailure(ctx context.Context, in CompleteInput, rate RateLimitState, err error, deps CompleteDeps) (CompleteOutcome, error) {
	details := deps.RateDetails(err)
	rate = ApplyRateLimit(rate, details)

	if rate.Limited {
		deps.MetricInc(deps.Metrics.VerificationRateLimited)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.RateLimited, err)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, in.Challenge.UserID, in.Method.String(), wrapped, func() map[string]string {
			md := map[string]string{}
			if rate.RemainingAttempts != nil {
				md["remaining_attempts"] = fmt.Sprintf("%d", *rate.RemainingAttempts)
			}
			if rate.LockoutEndsAt != nil {
				md["lockout_ends_at"] = rate.LockoutEndsAt.String()
			}
			return md
		})
		return CompleteOutcome{Rate: rate}, wrapped
	}

	if deps.IsRejected(err) {
		deps.MetricInc(deps.Metrics.VerificationFailure)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.VerificationFailed, err)
		deps.EmitAudit(ctx, deps.Events.VerificationFailed, false, in.Challenge.UserID, in.Method.String(), wrapped, nil)
		return CompleteOutcome{Rate: rate}, wrapped
	}

	deps.MetricInc(deps.Metrics.BackendError)
	return CompleteOutcome{Rate: rate}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
}

func normalizeCompleteDeps(deps *CompleteDeps) {
	if deps.TOTPDigits <= 0 {
		deps.TOTPDigits = 6
	}
	if deps.BackupCodeLength <= 0 {
		deps.BackupCodeLength = 8
	}
	if deps.RateDetails == nil {
		deps.RateDetails = func(error) *RateLimitDetails { return nil }
	}
	if deps.IsRejected == nil {
		deps.IsRejected = func(error) bool { return false }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, int64, string, error, func() map[string]string) {}
	}
}
