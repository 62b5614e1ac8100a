package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/Keralin/authflow/internal/api"
	"github.com/Keralin/authflow/internal/flows"
	"github.com/Keralin/authflow/session"
)

// TwoFactorStatus describes the twofactorstatus operation and its observable behavior.
//
// TwoFactorStatus may return an error when input validation, dependency calls, or security checks fail.
// TwoFactorStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// TwoFactorStatus is usable from any settings stage and never advances it.
func (c *Client) TwoFactorStatus(ctx context.Context) (TwoFactorStatus, error) {
	if err := c.ready(); err != nil {
		return TwoFactorStatus{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricSettingsLatency, time.Since(start)) }()
	}

	if _, err := c.sessionUserLocked(); err != nil {
		return TwoFactorStatus{}, err
	}

	return c.fetchStatusLocked(ctx)
}

// StartSetup describes the startsetup operation and its observable behavior.
//
// StartSetup may return an error when input validation, dependency calls, or security checks fail.
// StartSetup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// StartSetup is only valid from the status stage. The server mints a fresh
// secret on every call, so material from an abandoned setup is worthless.
func (c *Client) StartSetup(ctx context.Context) (*TwoFactorSetup, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricSettingsLatency, time.Since(start)) }()
	}

	user, err := c.sessionUserLocked()
	if err != nil {
		return nil, err
	}
	if c.stage != flows.StageStatus {
		return nil, ErrSettingsStage
	}

	transport, err := c.transportClient(ctx)
	if err != nil {
		return nil, err
	}

	setup, err := flows.RunStartSetup(ctx, user.ID, c.settingsDeps(transport))
	if err != nil {
		return nil, c.settingsFailLocked(err)
	}

	c.setup = &setup
	c.stage = flows.StageSetup

	out := setup
	return &out, nil
}

// ProceedToVerification describes the proceedtoverification operation and its observable behavior.
//
// ProceedToVerification may return an error when input validation, dependency calls, or security checks fail.
// ProceedToVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// ProceedToVerification is the local setup → verify transition: the user has
// scanned the QR code and is ready to type the first code.
func (c *Client) ProceedToVerification() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sessionUserLocked(); err != nil {
		return err
	}
	if c.stage != flows.StageSetup {
		return ErrSettingsStage
	}

	c.stage = flows.StageVerify
	return nil
}

// EnableTwoFactor describes the enabletwofactor operation and its observable behavior.
//
// EnableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// EnableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// EnableTwoFactor is only valid from the verify stage. On success the backup
// codes are returned exactly once and also held for PendingBackupCodes until
// FinishSetup; on rejection the stage stays at verify so the caller may retry.
func (c *Client) EnableTwoFactor(ctx context.Context, code string) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricSettingsLatency, time.Since(start)) }()
	}

	user, err := c.sessionUserLocked()
	if err != nil {
		return nil, err
	}
	if c.stage != flows.StageVerify {
		return nil, ErrSettingsStage
	}

	transport, err := c.transportClient(ctx)
	if err != nil {
		return nil, err
	}

	codes, err := flows.RunEnable(ctx, user.ID, code, c.settingsDeps(transport))
	if err != nil {
		return nil, c.settingsFailLocked(err)
	}

	c.pendingBackupCodes = append([]string(nil), codes...)
	c.stage = flows.StageBackupCodes
	return codes, nil
}

// PendingBackupCodes describes the pendingbackupcodes operation and its observable behavior.
//
// PendingBackupCodes may return an error when input validation, dependency calls, or security checks fail.
// PendingBackupCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// PendingBackupCodes is non-nil only while the orchestrator sits in
// backup-codes; the material is unrecoverable after FinishSetup.
func (c *Client) PendingBackupCodes() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != flows.StageBackupCodes || len(c.pendingBackupCodes) == 0 {
		return nil
	}
	return append([]string(nil), c.pendingBackupCodes...)
}

// FinishSetup describes the finishsetup operation and its observable behavior.
//
// FinishSetup may return an error when input validation, dependency calls, or security checks fail.
// FinishSetup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// FinishSetup zeroes the setup transients (secret, QR material, backup codes)
// before anything else; even a failed status refetch cannot resurrect them.
func (c *Client) FinishSetup(ctx context.Context) (TwoFactorStatus, error) {
	if err := c.ready(); err != nil {
		return TwoFactorStatus{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricSettingsLatency, time.Since(start)) }()
	}

	if _, err := c.sessionUserLocked(); err != nil {
		return TwoFactorStatus{}, err
	}
	if c.stage != flows.StageBackupCodes {
		return TwoFactorStatus{}, ErrSettingsStage
	}

	c.toStatusLocked()
	return c.fetchStatusLocked(ctx)
}

// StartDisable describes the startdisable operation and its observable behavior.
//
// StartDisable may return an error when input validation, dependency calls, or security checks fail.
// StartDisable does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// StartDisable opens the confirmation stage; no network call is made until
// DisableTwoFactor submits the credentials.
func (c *Client) StartDisable() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sessionUserLocked(); err != nil {
		return err
	}
	if c.stage != flows.StageStatus {
		return ErrSettingsStage
	}

	c.stage = flows.StageDisableConfirm
	return nil
}

// CancelDisable describes the canceldisable operation and its observable behavior.
//
// CancelDisable may return an error when input validation, dependency calls, or security checks fail.
// CancelDisable does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) CancelDisable() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != flows.StageDisableConfirm {
		return
	}
	c.toStatusLocked()
}

// DisableTwoFactor describes the disabletwofactor operation and its observable behavior.
//
// DisableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// DisableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// DisableTwoFactor is only valid from disable-confirm. On success the
// orchestrator returns to status and refreshes the cached server view; on
// failure it stays in disable-confirm with the enveloped server message.
func (c *Client) DisableTwoFactor(ctx context.Context, req DisableTwoFactorRequest) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil && c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricSettingsLatency, time.Since(start)) }()
	}

	user, err := c.sessionUserLocked()
	if err != nil {
		return err
	}
	if c.stage != flows.StageDisableConfirm {
		return ErrSettingsStage
	}

	transport, err := c.transportClient(ctx)
	if err != nil {
		return err
	}

	if err := flows.RunDisable(ctx, user.ID, req, c.settingsDeps(transport)); err != nil {
		return c.settingsFailLocked(err)
	}

	c.toStatusLocked()

	// The disable already succeeded; the refreshed status is advisory and a
	// refetch failure is not this operation's error.
	_, _ = c.fetchStatusLocked(ctx)
	return nil
}

// SettingsStage describes the settingsstage operation and its observable behavior.
//
// SettingsStage may return an error when input validation, dependency calls, or security checks fail.
// SettingsStage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) SettingsStage() SettingsStage {
	if c == nil {
		return StageStatus
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Setup describes the setup operation and its observable behavior.
//
// Setup may return an error when input validation, dependency calls, or security checks fail.
// Setup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Setup returns a copy of the pending provisioning material while the
// orchestrator sits in setup or verify, nil otherwise.
func (c *Client) Setup() *TwoFactorSetup {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setup == nil || (c.stage != flows.StageSetup && c.stage != flows.StageVerify) {
		return nil
	}
	out := *c.setup
	return &out
}

// sessionUserLocked vets the completed-session requirement shared by every
// settings operation. Callers hold c.mu.
func (c *Client) sessionUserLocked() (*session.User, error) {
	user := c.store.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// toStatusLocked returns the orchestrator to its resting stage. Transient
// provisioning material never survives the transition. Callers hold c.mu.
func (c *Client) toStatusLocked() {
	c.stage = flows.StageStatus
	c.setup = nil
	c.pendingBackupCodes = nil
}

// settingsFailLocked folds a settings-flow failure into client state: a
// server-side 401 means the session is gone, so the whole machine restarts.
// Callers hold c.mu.
func (c *Client) settingsFailLocked(err error) error {
	if errors.Is(err, ErrNotAuthenticated) {
		c.restartLocked()
	}
	return err
}

func (c *Client) fetchStatusLocked(ctx context.Context) (TwoFactorStatus, error) {
	transport, err := c.transportClient(ctx)
	if err != nil {
		return TwoFactorStatus{}, err
	}

	status, err := flows.RunFetchStatus(ctx, c.settingsDeps(transport))
	if err != nil {
		return TwoFactorStatus{}, c.settingsFailLocked(err)
	}
	return status, nil
}

func (c *Client) settingsDeps(transport *api.Client) flows.SettingsDeps {
	return flows.SettingsDeps{
		TOTPDigits:       c.config.Flow.TOTPDigits,
		BackupCodeLength: c.config.Flow.BackupCodeLength,
		FetchStatus:      transport.TwoFactorStatus,
		PostSetup:        transport.SetupTwoFactor,
		PostEnable:       transport.EnableTwoFactor,
		PostDisable:      transport.DisableTwoFactor,
		RateDetails:      api.RateDetailsFrom,
		IsUnauthorized:   api.IsUnauthorized,
		IsRejected:       api.IsRejected,
		MetricInc:        c.metricIncInt,
		EmitAudit:        c.emitAudit,
		Metrics: flows.SettingsMetrics{
			StatusFetched:      int(MetricStatusFetched),
			SetupStarted:       int(MetricSetupStarted),
			Enabled:            int(MetricTwoFactorEnabled),
			EnableFailed:       int(MetricTwoFactorEnableFailed),
			Disabled:           int(MetricTwoFactorDisabled),
			DisableFailed:      int(MetricTwoFactorDisableFailed),
			BackupCodesShown:   int(MetricBackupCodesShown),
			CodeFormatRejected: int(MetricCodeFormatRejected),
			RateLimited:        int(MetricVerificationRateLimited),
			BackendError:       int(MetricBackendError),
		},
		Events: flows.SettingsEvents{
			SetupStarted:     auditEventSetupStarted,
			Enabled:          auditEventTwoFactorEnabled,
			EnableFailed:     auditEventTwoFactorEnableFailed,
			Disabled:         auditEventTwoFactorDisabled,
			DisableFailed:    auditEventTwoFactorDisableFailed,
			BackupCodesShown: auditEventBackupCodesShown,
			RateLimited:      auditEventRateLimited,
		},
		Errors: flows.SettingsErrors{
			ClientNotReady:       ErrClientNotReady,
			NotAuthenticated:     ErrNotAuthenticated,
			TOTPCodeFormat:       ErrTOTPCodeFormat,
			BackupCodeFormat:     ErrBackupCodeFormat,
			PasswordRequired:     ErrPasswordRequired,
			SecondFactorRequired: ErrSecondFactorRequired,
			RateLimited:          ErrRateLimited,
			VerificationFailed:   ErrVerificationFailed,
			BackendUnavailable:   ErrBackendUnavailable,
		},
	}
}
