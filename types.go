package authflow

import (
	"io"

	"github.com/Keralin/authflow/internal/api"
	internalaudit "github.com/Keralin/authflow/internal/audit"
	"github.com/Keralin/authflow/internal/flows"
	internalmetrics "github.com/Keralin/authflow/internal/metrics"
	"github.com/Keralin/authflow/session"
)

// User is the resolved identity carried by a completed login session.
//
//	Docs: docs/login_flow.md
type User = session.User

// LoginChallenge is a pending two-factor challenge issued by the credentials
// step. It is consumed exactly once by a successful verification and
// discarded on cancel.
//
//	Docs: docs/login_flow.md
type LoginChallenge = session.Challenge

// ChallengeState identifies the login machine state.
//
//	Docs: docs/login_flow.md
type ChallengeState = flows.ChallengeState

const (
	// StateCredentials is an exported constant or variable used by the authentication flow client.
	StateCredentials = ChallengeState(flows.StateCredentials)
	// StateTwoFactorVerify is an exported constant or variable used by the authentication flow client.
	StateTwoFactorVerify = ChallengeState(flows.StateTwoFactorVerify)
	// StateCompleted is an exported constant or variable used by the authentication flow client.
	StateCompleted = ChallengeState(flows.StateCompleted)
)

// VerificationMethod selects the second factor used to complete a challenge.
//
//	Docs: docs/login_flow.md
type VerificationMethod = flows.VerificationMethod

const (
	// MethodTOTP is an exported constant or variable used by the authentication flow client.
	MethodTOTP = VerificationMethod(flows.MethodTOTP)
	// MethodBackup is an exported constant or variable used by the authentication flow client.
	MethodBackup = VerificationMethod(flows.MethodBackup)
)

// VerificationAttempt is one second-factor submission. It is transient:
// format-validated client-side before any network call and never persisted.
type VerificationAttempt struct {
	Method VerificationMethod
	Code   string
}

// LoginResult is returned by [Client.Login]. Either User is set (the
// credentials step completed the session directly) or RequiresTwoFactor is
// true and a challenge is pending.
type LoginResult struct {
	User                 *User
	RequiresTwoFactor    bool
	BackupCodesAvailable bool
}

// RateLimitState is the tracker's view of the server-enforced attempt cap.
// It is updated only from server responses; no client-side timer ever clears
// it.
//
//	Docs: docs/rate_limiting.md
type RateLimitState = flows.RateLimitState

// RateLimitDetails is the decoded details object of the backend error
// envelope.
//
//	Docs: docs/rate_limiting.md
type RateLimitDetails = flows.RateLimitDetails

// SettingsStage identifies the two-factor settings machine stage.
//
//	Docs: docs/settings.md
type SettingsStage = flows.SettingsStage

const (
	// StageStatus is an exported constant or variable used by the authentication flow client.
	StageStatus = SettingsStage(flows.StageStatus)
	// StageSetup is an exported constant or variable used by the authentication flow client.
	StageSetup = SettingsStage(flows.StageSetup)
	// StageVerify is an exported constant or variable used by the authentication flow client.
	StageVerify = SettingsStage(flows.StageVerify)
	// StageBackupCodes is an exported constant or variable used by the authentication flow client.
	StageBackupCodes = SettingsStage(flows.StageBackupCodes)
	// StageDisableConfirm is an exported constant or variable used by the authentication flow client.
	StageDisableConfirm = SettingsStage(flows.StageDisableConfirm)
)

// TwoFactorStatus is the server-reported state of the account's second
// factor.
//
//	Docs: docs/settings.md
type TwoFactorStatus = flows.TwoFactorStatus

// TwoFactorSetup is the provisioning material returned by [Client.StartSetup]:
// the base32 secret, the otpauth:// URI, and a PNG data URL of the QR code.
//
//	Docs: docs/settings.md
type TwoFactorSetup = flows.TwoFactorSetup

// DisableTwoFactorRequest is the input for [Client.DisableTwoFactor].
// Password is required; exactly one of TOTPCode/BackupCode must be set.
//
//	Docs: docs/settings.md
type DisableTwoFactorRequest = flows.DisableInput

// APIError is a decoded non-2xx backend answer. The operation's returned
// error wraps a public sentinel and carries the *APIError for errors.As, so
// callers can read the enveloped server message and status code.
type APIError = api.Error

// AuditEvent is a structured audit record emitted by the client.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the client’s audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
//
//	Docs: docs/metrics.md
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication flow client.
	MetricLoginSuccess = MetricID(internalmetrics.MetricLoginSuccess)
	// MetricLoginFailure is an exported constant or variable used by the authentication flow client.
	MetricLoginFailure = MetricID(internalmetrics.MetricLoginFailure)
	// MetricLoginRateLimited is an exported constant or variable used by the authentication flow client.
	MetricLoginRateLimited = MetricID(internalmetrics.MetricLoginRateLimited)
	// MetricChallengeIssued is an exported constant or variable used by the authentication flow client.
	MetricChallengeIssued = MetricID(internalmetrics.MetricChallengeIssued)
	// MetricChallengeCompleted is an exported constant or variable used by the authentication flow client.
	MetricChallengeCompleted = MetricID(internalmetrics.MetricChallengeCompleted)
	// MetricChallengeCancelled is an exported constant or variable used by the authentication flow client.
	MetricChallengeCancelled = MetricID(internalmetrics.MetricChallengeCancelled)
	// MetricChallengeMalformed is an exported constant or variable used by the authentication flow client.
	MetricChallengeMalformed = MetricID(internalmetrics.MetricChallengeMalformed)
	// MetricVerificationFailure is an exported constant or variable used by the authentication flow client.
	MetricVerificationFailure = MetricID(internalmetrics.MetricVerificationFailure)
	// MetricVerificationRateLimited is an exported constant or variable used by the authentication flow client.
	MetricVerificationRateLimited = MetricID(internalmetrics.MetricVerificationRateLimited)
	// MetricCodeFormatRejected is an exported constant or variable used by the authentication flow client.
	MetricCodeFormatRejected = MetricID(internalmetrics.MetricCodeFormatRejected)
	// MetricMethodSwitched is an exported constant or variable used by the authentication flow client.
	MetricMethodSwitched = MetricID(internalmetrics.MetricMethodSwitched)
	// MetricRateLimitHit is an exported constant or variable used by the authentication flow client.
	MetricRateLimitHit = MetricID(internalmetrics.MetricRateLimitHit)
	// MetricLogout is an exported constant or variable used by the authentication flow client.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricStatusFetched is an exported constant or variable used by the authentication flow client.
	MetricStatusFetched = MetricID(internalmetrics.MetricStatusFetched)
	// MetricSetupStarted is an exported constant or variable used by the authentication flow client.
	MetricSetupStarted = MetricID(internalmetrics.MetricSetupStarted)
	// MetricTwoFactorEnabled is an exported constant or variable used by the authentication flow client.
	MetricTwoFactorEnabled = MetricID(internalmetrics.MetricTwoFactorEnabled)
	// MetricTwoFactorEnableFailed is an exported constant or variable used by the authentication flow client.
	MetricTwoFactorEnableFailed = MetricID(internalmetrics.MetricTwoFactorEnableFailed)
	// MetricTwoFactorDisabled is an exported constant or variable used by the authentication flow client.
	MetricTwoFactorDisabled = MetricID(internalmetrics.MetricTwoFactorDisabled)
	// MetricTwoFactorDisableFailed is an exported constant or variable used by the authentication flow client.
	MetricTwoFactorDisableFailed = MetricID(internalmetrics.MetricTwoFactorDisableFailed)
	// MetricBackupCodesShown is an exported constant or variable used by the authentication flow client.
	MetricBackupCodesShown = MetricID(internalmetrics.MetricBackupCodesShown)
	// MetricBackendError is an exported constant or variable used by the authentication flow client.
	MetricBackendError = MetricID(internalmetrics.MetricBackendError)
	// MetricLoginLatency is an exported constant or variable used by the authentication flow client.
	MetricLoginLatency = MetricID(internalmetrics.MetricLoginLatency)
	// MetricVerifyLatency is an exported constant or variable used by the authentication flow client.
	MetricVerifyLatency = MetricID(internalmetrics.MetricVerifyLatency)
	// MetricSettingsLatency is an exported constant or variable used by the authentication flow client.
	MetricSettingsLatency = MetricID(internalmetrics.MetricSettingsLatency)
)

// Metrics holds atomic counters and optional latency histograms.
//
//	Docs: docs/metrics.md
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
//
//	Docs: docs/metrics.md
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
//
//	Docs: docs/metrics.md
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
