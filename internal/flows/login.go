package flows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Keralin/authflow/session"
)

// ChallengeState is the login machine state: credentials, 2fa-verify, completed.
type ChallengeState uint8

const (
	StateCredentials ChallengeState = iota
	StateTwoFactorVerify
	StateCompleted
)

func (s ChallengeState) String() string {
	switch s {
	case StateCredentials:
		return "credentials"
	case StateTwoFactorVerify:
		return "2fa-verify"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// LoginResponse is the flow-local decoding of POST /auth/login/.
type LoginResponse struct {
	Requires2FA          bool
	TempToken            string
	UserID               int64
	User                 *session.User
	BackupCodesAvailable bool
}

// LoginOutcome carries the machine transition produced by one login attempt.
// Exactly one of User/Challenge is set on success.
type LoginOutcome struct {
	User      *session.User
	Challenge *session.Challenge
	Rate      RateLimitState
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	LoginRateLimited   int
	ChallengeIssued    int
	ChallengeMalformed int
	BackendError       int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSucceeded     string
	LoginFailed        string
	LoginRateLimited   string
	ChallengeIssued    string
	ChallengeMalformed string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	ClientNotReady      error
	CredentialsRequired error
	InvalidCredentials  error
	ChallengeMalformed  error
	RateLimited         error
	BackendUnavailable  error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now func() time.Time

	PostLogin func(ctx context.Context, email, password string) (LoginResponse, error)

	// RateDetails extracts rate-limit metadata from a transport error, nil
	// when the error carries none. IsRejected classifies a server-side
	// credential rejection as opposed to a transport failure.
	RateDetails func(error) *RateLimitDetails
	IsRejected  func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, method string, err error, metadata func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin performs the credentials step and interprets the verifier response.
// Outcomes:
//   - completed session (requires_2fa false, user present),
//   - pending challenge (requires_2fa true, temp_token and user_id present),
//   - ChallengeMalformed (requires_2fa true with either field missing, or a
//     success response without a user) — the machine stays in credentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (LoginOutcome, error) {
	normalizeLoginDeps(&deps)

	if deps.PostLogin == nil {
		return LoginOutcome{}, deps.Errors.ClientNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginOutcome{}, deps.Errors.CredentialsRequired
	}

	resp, err := deps.PostLogin(ctx, email, password)
	if err != nil {
		return loginFailure(ctx, email, err, deps)
	}

	if resp.Requires2FA {
		if resp.TempToken == "" || resp.UserID == 0 {
			deps.MetricInc(deps.Metrics.ChallengeMalformed)
			deps.EmitAudit(ctx, deps.Events.ChallengeMalformed, false, resp.UserID, "", deps.Errors.ChallengeMalformed, func() map[string]string {
				return map[string]string{
					"has_temp_token": fmt.Sprintf("%t", resp.TempToken != ""),
					"has_user_id":    fmt.Sprintf("%t", resp.UserID != 0),
				}
			})
			return LoginOutcome{}, deps.Errors.ChallengeMalformed
		}

		challenge := session.Challenge{
			TempToken:            resp.TempToken,
			UserID:               resp.UserID,
			BackupCodesAvailable: resp.BackupCodesAvailable,
			IssuedAt:             deps.Now(),
		}
		deps.MetricInc(deps.Metrics.ChallengeIssued)
		deps.EmitAudit(ctx, deps.Events.ChallengeIssued, true, resp.UserID, "", nil, func() map[string]string {
			return map[string]string{
				"backup_codes_available": fmt.Sprintf("%t", resp.BackupCodesAvailable),
			}
		})
		return LoginOutcome{Challenge: &challenge}, nil
	}

	if resp.User == nil {
		deps.MetricInc(deps.Metrics.ChallengeMalformed)
		deps.EmitAudit(ctx, deps.Events.ChallengeMalformed, false, 0, "", deps.Errors.ChallengeMalformed, nil)
		return LoginOutcome{}, deps.Errors.ChallengeMalformed
	}

	user := *resp.User
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSucceeded, true, user.ID, "", nil, nil)
	return LoginOutcome{User: &user}, nil
}

func loginFailure(ctx context.Context, email string, err error, deps LoginDeps) (LoginOutcome, error) {
	details := deps.RateDetails(err)
	rate := ApplyRateLimit(RateLimitState{}, details)

	if rate.Limited {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.RateLimited, err)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, 0, "", wrapped, func() map[string]string {
			return map[string]string{"email": email}
		})
		return LoginOutcome{Rate: rate}, wrapped
	}

	if deps.IsRejected(err) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.InvalidCredentials, err)
		deps.EmitAudit(ctx, deps.Events.LoginFailed, false, 0, "", wrapped, func() map[string]string {
			return map[string]string{"email": email}
		})
		return LoginOutcome{Rate: rate}, wrapped
	}

	deps.MetricInc(deps.Metrics.BackendError)
	return LoginOutcome{Rate: rate}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
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
