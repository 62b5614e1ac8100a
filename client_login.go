package authflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Keralin/authflow/internal/api"
	"github.com/Keralin/authflow/internal/flows"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Login always restarts the machine: any pending challenge, rate-limit state,
// and settings transients from a previous attempt are discarded before the
// credentials are submitted.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricLoginLatency, time.Since(start)) }()
	}

	transport, err := c.transportClient(ctx)
	if err != nil {
		return nil, err
	}

	c.restartLocked()

	outcome, err := flows.RunLogin(ctx, email, password, c.loginDeps(transport))
	c.rate = outcome.Rate
	if err != nil {
		return nil, err
	}

	if outcome.Challenge != nil {
		c.store.SetChallenge(*outcome.Challenge)
		c.state = flows.StateTwoFactorVerify
		c.method = flows.MethodTOTP
		return &LoginResult{
			RequiresTwoFactor:    true,
			BackupCodesAvailable: outcome.Challenge.BackupCodesAvailable,
		}, nil
	}

	c.store.SetUser(*outcome.User)
	c.state = flows.StateCompleted
	return &LoginResult{User: c.store.User()}, nil
}

// CancelChallenge describes the cancelchallenge operation and its observable behavior.
//
// CancelChallenge may return an error when input validation, dependency calls, or security checks fail.
// CancelChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// CancelChallenge walks the back-edge from 2fa-verify to credentials. It is
// purely local: the abandoned temp token is left to expire server-side. A
// completed session is never downgraded; rate-limit state is cleared either
// way.
func (c *Client) CancelChallenge() {
	if c == nil || c.store == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = flows.RateLimitState{}

	challenge := c.store.Challenge()
	if c.state != flows.StateTwoFactorVerify && challenge == nil {
		return
	}

	var userID int64
	if challenge != nil {
		userID = challenge.UserID
	}

	c.store.ClearChallenge()
	c.state = flows.StateCredentials
	c.method = flows.MethodTOTP

	c.metricInc(MetricChallengeCancelled)
	c.emitAudit(context.Background(), auditEventChallengeCancelled, true, userID, "", nil, nil)
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout is idempotent: local state is cleared unconditionally, and a server
// that already dropped the session (401) counts as success. Without a
// completed session there is nothing to tell the server, so no request is
// made.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user := c.store.User()

	defer c.restartLocked()

	if user == nil {
		return nil
	}

	transport, err := c.transportClient(ctx)
	if err != nil {
		return err
	}

	if err := transport.Logout(ctx); err != nil {
		if !api.IsUnauthorized(err) {
			c.metricInc(MetricBackendError)
			wrapped := fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			c.emitAudit(ctx, auditEventLogout, false, user.ID, "", wrapped, nil)
			return wrapped
		}
	}

	c.metricInc(MetricLogout)
	c.emitAudit(ctx, auditEventLogout, true, user.ID, "", nil, nil)
	return nil
}

// restartLocked rewinds every machine to its initial stage. Callers hold c.mu.
func (c *Client) restartLocked() {
	c.store.Reset()
	c.state = flows.StateCredentials
	c.method = flows.MethodTOTP
	c.rate = flows.RateLimitState{}
	c.stage = flows.StageStatus
	c.setup = nil
	c.pendingBackupCodes = nil
}

// State describes the state operation and its observable behavior.
//
// State may return an error when input validation, dependency calls, or security checks fail.
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) State() ChallengeState {
	if c == nil {
		return StateCredentials
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Challenge describes the challenge operation and its observable behavior.
//
// Challenge may return an error when input validation, dependency calls, or security checks fail.
// Challenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Challenge() *LoginChallenge {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Challenge()
}

// CurrentUser describes the currentuser operation and its observable behavior.
//
// CurrentUser may return an error when input validation, dependency calls, or security checks fail.
// CurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) CurrentUser() *User {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.User()
}

func (c *Client) loginDeps(transport *api.Client) flows.LoginDeps {
	return flows.LoginDeps{
		PostLogin:   transport.Login,
		RateDetails: api.RateDetailsFrom,
		IsRejected:  api.IsRejected,
		MetricInc:   c.metricIncInt,
		EmitAudit:   c.emitAudit,
		Metrics: flows.LoginMetrics{
			LoginSuccess:       int(MetricLoginSuccess),
			LoginFailure:       int(MetricLoginFailure),
			LoginRateLimited:   int(MetricLoginRateLimited),
			ChallengeIssued:    int(MetricChallengeIssued),
			ChallengeMalformed: int(MetricChallengeMalformed),
			BackendError:       int(MetricBackendError),
		},
		Events: flows.LoginEvents{
			LoginSucceeded:     auditEventLoginSucceeded,
			LoginFailed:        auditEventLoginFailed,
			LoginRateLimited:   auditEventLoginRateLimited,
			ChallengeIssued:    auditEventChallengeIssued,
			ChallengeMalformed: auditEventChallengeMalformed,
		},
		Errors: flows.LoginErrors{
			ClientNotReady:      ErrClientNotReady,
			CredentialsRequired: ErrCredentialsRequired,
			InvalidCredentials:  ErrInvalidCredentials,
			ChallengeMalformed:  ErrChallengeMalformed,
			RateLimited:         ErrRateLimited,
			BackendUnavailable:  ErrBackendUnavailable,
		},
	}
}
