package internaldefs

import (
	"github.com/Keralin/authflow"
)

// CounterDef defines a public type used by authflow APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authflow APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication flow client.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Password logins that established a session directly."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Rejected password logins."},
	{ID: authflow.MetricLoginRateLimited, Name: "authflow_login_rate_limited_total", Help: "Rate-limited password logins."},
	{ID: authflow.MetricChallengeIssued, Name: "authflow_challenge_issued_total", Help: "Logins that entered the two-factor verification state."},
	{ID: authflow.MetricChallengeCompleted, Name: "authflow_challenge_completed_total", Help: "Challenges consumed by a successful verification."},
	{ID: authflow.MetricChallengeCancelled, Name: "authflow_challenge_cancelled_total", Help: "Challenges abandoned back to the credentials state."},
	{ID: authflow.MetricChallengeMalformed, Name: "authflow_challenge_malformed_total", Help: "Two-factor login responses missing challenge material."},
	{ID: authflow.MetricVerificationFailure, Name: "authflow_verification_failure_total", Help: "Server-rejected verification codes."},
	{ID: authflow.MetricVerificationRateLimited, Name: "authflow_verification_rate_limited_total", Help: "Rate-limited verification attempts."},
	{ID: authflow.MetricCodeFormatRejected, Name: "authflow_code_format_rejected_total", Help: "Codes rejected client-side before any network call."},
	{ID: authflow.MetricMethodSwitched, Name: "authflow_method_switched_total", Help: "Verification method switches within one challenge."},
	{ID: authflow.MetricRateLimitHit, Name: "authflow_rate_limit_hit_total", Help: "Submissions refused by the client-side rate gate."},
	{ID: authflow.MetricLogout, Name: "authflow_logout_total", Help: "Logout operations."},
	{ID: authflow.MetricStatusFetched, Name: "authflow_status_fetched_total", Help: "Two-factor status fetches."},
	{ID: authflow.MetricSetupStarted, Name: "authflow_setup_started_total", Help: "Two-factor setup flows started."},
	{ID: authflow.MetricTwoFactorEnabled, Name: "authflow_two_factor_enabled_total", Help: "Successful two-factor enable operations."},
	{ID: authflow.MetricTwoFactorEnableFailed, Name: "authflow_two_factor_enable_failed_total", Help: "Rejected two-factor enable operations."},
	{ID: authflow.MetricTwoFactorDisabled, Name: "authflow_two_factor_disabled_total", Help: "Successful two-factor disable operations."},
	{ID: authflow.MetricTwoFactorDisableFailed, Name: "authflow_two_factor_disable_failed_total", Help: "Rejected two-factor disable operations."},
	{ID: authflow.MetricBackupCodesShown, Name: "authflow_backup_codes_shown_total", Help: "Backup-code sets surfaced to the caller."},
	{ID: authflow.MetricBackendError, Name: "authflow_backend_error_total", Help: "Transport failures with no decodable response."},
}

// HistogramDefs is an exported constant or variable used by the authentication flow client.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricLoginLatency, Name: "authflow_login_latency_seconds", Help: "Login round-trip latency histogram."},
	{ID: authflow.MetricVerifyLatency, Name: "authflow_verify_latency_seconds", Help: "Challenge-completion round-trip latency histogram."},
	{ID: authflow.MetricSettingsLatency, Name: "authflow_settings_latency_seconds", Help: "Settings endpoint round-trip latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication flow client.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication flow client.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
