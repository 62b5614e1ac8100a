package authflow

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSucceeded         = "login_succeeded"
	auditEventLoginFailed            = "login_failed"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventChallengeIssued        = "challenge_issued"
	auditEventChallengeMalformed     = "challenge_malformed"
	auditEventChallengeCompleted     = "challenge_completed"
	auditEventChallengeCancelled     = "challenge_cancelled"
	auditEventVerificationFailed     = "verification_failed"
	auditEventRateLimited            = "rate_limited"
	auditEventSetupStarted           = "setup_started"
	auditEventTwoFactorEnabled       = "two_factor_enabled"
	auditEventTwoFactorEnableFailed  = "two_factor_enable_failed"
	auditEventTwoFactorDisabled      = "two_factor_disabled"
	auditEventTwoFactorDisableFailed = "two_factor_disable_failed"
	auditEventBackupCodesShown       = "backup_codes_shown"
	auditEventLogout                 = "logout"
)

// AuditErrorCode defines a public type used by authflow APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrCredentialsRequired  AuditErrorCode = "credentials_required"
	auditErrChallengeMalformed   AuditErrorCode = "challenge_malformed"
	auditErrNoChallenge          AuditErrorCode = "no_challenge"
	auditErrCodeFormat           AuditErrorCode = "code_format"
	auditErrVerificationFailed   AuditErrorCode = "verification_failed"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrNotAuthenticated     AuditErrorCode = "not_authenticated"
	auditErrSettingsStage        AuditErrorCode = "settings_stage"
	auditErrPasswordRequired     AuditErrorCode = "password_required"
	auditErrSecondFactorRequired AuditErrorCode = "second_factor_required"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrNotReady             AuditErrorCode = "client_not_ready"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	method string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		RequestID: requestIDFromContext(ctx),
		Method:    method,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrCredentialsRequired):
		return auditErrCredentialsRequired
	case errors.Is(err, ErrChallengeMalformed):
		return auditErrChallengeMalformed
	case errors.Is(err, ErrNoChallenge):
		return auditErrNoChallenge
	case errors.Is(err, ErrTOTPCodeFormat),
		errors.Is(err, ErrBackupCodeFormat):
		return auditErrCodeFormat
	case errors.Is(err, ErrVerificationFailed):
		return auditErrVerificationFailed
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrSettingsStage):
		return auditErrSettingsStage
	case errors.Is(err, ErrPasswordRequired):
		return auditErrPasswordRequired
	case errors.Is(err, ErrSecondFactorRequired):
		return auditErrSecondFactorRequired
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrClientNotReady):
		return auditErrNotReady
	default:
		return auditErrInternal
	}
}
