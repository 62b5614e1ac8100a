package metrics

// MetricID addresses one counter or histogram slot.
type MetricID uint16

const (
	// MetricLoginSuccess counts password logins that established a session directly.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected password logins.
	MetricLoginFailure
	// MetricLoginRateLimited counts password logins rejected with rate-limit details.
	MetricLoginRateLimited
	// MetricChallengeIssued counts logins that entered the 2fa-verify state.
	MetricChallengeIssued
	// MetricChallengeCompleted counts challenges consumed by a successful verification.
	MetricChallengeCompleted
	// MetricChallengeCancelled counts back-edges from 2fa-verify to credentials.
	MetricChallengeCancelled
	// MetricChallengeMalformed counts requires_2fa responses missing temp_token or user_id.
	MetricChallengeMalformed
	// MetricVerificationFailure counts server-rejected verification codes.
	MetricVerificationFailure
	// MetricVerificationRateLimited counts verification attempts rejected with rate-limit details.
	MetricVerificationRateLimited
	// MetricCodeFormatRejected counts codes rejected client-side before any network call.
	MetricCodeFormatRejected
	// MetricMethodSwitched counts TOTP<->backup method switches within one challenge.
	MetricMethodSwitched
	// MetricRateLimitHit counts submissions refused by the client-side rate gate.
	MetricRateLimitHit
	// MetricLogout counts logout operations.
	MetricLogout
	// MetricStatusFetched counts two-factor status fetches.
	MetricStatusFetched
	// MetricSetupStarted counts setup flows started.
	MetricSetupStarted
	// MetricTwoFactorEnabled counts successful enable operations.
	MetricTwoFactorEnabled
	// MetricTwoFactorEnableFailed counts rejected enable operations.
	MetricTwoFactorEnableFailed
	// MetricTwoFactorDisabled counts successful disable operations.
	MetricTwoFactorDisabled
	// MetricTwoFactorDisableFailed counts rejected disable operations.
	MetricTwoFactorDisableFailed
	// MetricBackupCodesShown counts backup-code sets surfaced to the caller.
	MetricBackupCodesShown
	// MetricBackendError counts transport-level failures (no response decoded).
	MetricBackendError
	// MetricLoginLatency is the login round-trip latency histogram.
	MetricLoginLatency
	// MetricVerifyLatency is the challenge-completion round-trip latency histogram.
	MetricVerifyLatency
	// MetricSettingsLatency is the settings-endpoint round-trip latency histogram.
	MetricSettingsLatency
	metricIDCount
)

// Count reports the number of defined metric IDs.
func Count() int {
	return int(metricIDCount)
}
