package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettingsStage is the two-factor settings machine stage.
type SettingsStage uint8

const (
	StageStatus SettingsStage = iota
	StageSetup
	StageVerify
	StageBackupCodes
	StageDisableConfirm
)

func (s SettingsStage) String() string {
	switch s {
	case StageStatus:
		return "status"
	case StageSetup:
		return "setup"
	case StageVerify:
		return "verify"
	case StageBackupCodes:
		return "backup-codes"
	case StageDisableConfirm:
		return "disable-confirm"
	default:
		return "unknown"
	}
}

// TwoFactorStatus is the server-reported state of the account's second factor.
type TwoFactorStatus struct {
	Enabled           bool
	BackupTokensCount int
	LastUsedAt        *time.Time
}

// TwoFactorSetup is the provisioning material returned by the setup endpoint.
// QRCodeImage is a data:image/png;base64 URL ready for direct display.
type TwoFactorSetup struct {
	SecretKey   string
	QRCodeURI   string
	QRCodeImage string
}

// DisableInput carries the disable confirmation. Exactly one of
// TOTPCode/BackupCode accompanies the password.
type DisableInput struct {
	Password   string
	TOTPCode   string
	BackupCode string
}

// SettingsMetrics carries metric IDs needed by the settings flows.
type SettingsMetrics struct {
	StatusFetched      int
	SetupStarted       int
	Enabled            int
	EnableFailed       int
	Disabled           int
	DisableFailed      int
	BackupCodesShown   int
	CodeFormatRejected int
	RateLimited        int
	BackendError       int
}

// SettingsEvents carries audit event names used by the settings flows.
type SettingsEvents struct {
	SetupStarted     string
	Enabled          string
	EnableFailed     string
	Disabled         string
	DisableFailed    string
	BackupCodesShown string
	RateLimited      string
}

// SettingsErrors carries host-level sentinel errors used by the settings flows.
type SettingsErrors struct {
	ClientNotReady       error
	NotAuthenticated     error
	TOTPCodeFormat       error
	BackupCodeFormat     error
	PasswordRequired     error
	SecondFactorRequired error
	RateLimited          error
	VerificationFailed   error
	BackendUnavailable   error
}

// SettingsDeps captures settings-flow dependencies. One deps value serves all
// four Run functions; stage bookkeeping stays with the caller.
type SettingsDeps struct {
	TOTPDigits       int
	BackupCodeLength int

	FetchStatus func(ctx context.Context) (TwoFactorStatus, error)
	PostSetup   func(ctx context.Context) (TwoFactorSetup, error)
	PostEnable  func(ctx context.Context, totpCode string) ([]string, error)
	PostDisable func(ctx context.Context, password, totpCode, backupCode string) error

	// RateDetails extracts rate-limit metadata from a transport error.
	// IsUnauthorized recognizes a server-side session rejection;
	// IsRejected any other server-side refusal (as opposed to a transport
	// failure).
	RateDetails    func(error) *RateLimitDetails
	IsUnauthorized func(error) bool
	IsRejected     func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, method string, err error, metadata func() map[string]string)

	Metrics SettingsMetrics
	Events  SettingsEvents
	Errors  SettingsErrors
}

// RunFetchStatus reads the account's two-factor status. It never advances the
// settings stage and carries no rate-limit semantics: a 401 means the session
// is gone, anything else is a backend failure.
func RunFetchStatus(ctx context.Context, deps SettingsDeps) (TwoFactorStatus, error) {
	normalizeSettingsDeps(&deps)

	if deps.FetchStatus == nil {
		return TwoFactorStatus{}, deps.Errors.ClientNotReady
	}

	status, err := deps.FetchStatus(ctx)
	if err != nil {
		if deps.IsUnauthorized(err) {
			return TwoFactorStatus{}, fmt.Errorf("%w: %w", deps.Errors.NotAuthenticated, err)
		}
		deps.MetricInc(deps.Metrics.BackendError)
		return TwoFactorStatus{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.StatusFetched)
	return status, nil
}

// RunStartSetup requests fresh provisioning material (secret, otpauth URI,
// QR image). The server regenerates the secret on every call, so material
// from an abandoned setup is worthless.
func RunStartSetup(ctx context.Context, userID int64, deps SettingsDeps) (TwoFactorSetup, error) {
	normalizeSettingsDeps(&deps)

	if deps.PostSetup == nil {
		return TwoFactorSetup{}, deps.Errors.ClientNotReady
	}

	setup, err := deps.PostSetup(ctx)
	if err != nil {
		if deps.IsUnauthorized(err) {
			return TwoFactorSetup{}, fmt.Errorf("%w: %w", deps.Errors.NotAuthenticated, err)
		}
		deps.MetricInc(deps.Metrics.BackendError)
		return TwoFactorSetup{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.SetupStarted)
	deps.EmitAudit(ctx, deps.Events.SetupStarted, true, userID, "", nil, nil)
	return setup, nil
}

// RunEnable submits the first TOTP code against the pending setup secret.
// On success the server activates the factor and mints backup codes, returned
// exactly once here. Format validation runs before any network call.
func RunEnable(ctx context.Context, userID int64, code string, deps SettingsDeps) ([]string, error) {
	normalizeSettingsDeps(&deps)

	if deps.PostEnable == nil {
		return nil, deps.Errors.ClientNotReady
	}

	code = NormalizeTOTPCode(code)
	if !ValidTOTPCode(code, deps.TOTPDigits) {
		deps.MetricInc(deps.Metrics.CodeFormatRejected)
		return nil, deps.Errors.TOTPCodeFormat
	}

	codes, err := deps.PostEnable(ctx, code)
	if err != nil {
		return nil, settingsSubmitFailure(ctx, userID, "totp", err, deps, deps.Metrics.EnableFailed, deps.Events.EnableFailed)
	}

	out := make([]string, len(codes))
	copy(out, codes)

	deps.MetricInc(deps.Metrics.Enabled)
	deps.EmitAudit(ctx, deps.Events.Enabled, true, userID, "totp", nil, nil)
	deps.MetricInc(deps.Metrics.BackupCodesShown)
	deps.EmitAudit(ctx, deps.Events.BackupCodesShown, true, userID, "", nil, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(len(out))}
	})
	return out, nil
}

// RunDisable confirms deactivation with the account password plus exactly one
// second factor. All input checks run before any network call.
func RunDisable(ctx context.Context, userID int64, in DisableInput, deps SettingsDeps) error {
	normalizeSettingsDeps(&deps)

	if deps.PostDisable == nil {
		return deps.Errors.ClientNotReady
	}

	if in.Password == "" {
		return deps.Errors.PasswordRequired
	}

	hasTOTP := strings.TrimSpace(in.TOTPCode) != ""
	hasBackup := strings.TrimSpace(in.BackupCode) != ""
	if hasTOTP == hasBackup {
		return deps.Errors.SecondFactorRequired
	}

	method := "totp"
	totpCode := ""
	backupCode := ""
	if hasTOTP {
		totpCode = NormalizeTOTPCode(in.TOTPCode)
		if !ValidTOTPCode(totpCode, deps.TOTPDigits) {
			deps.MetricInc(deps.Metrics.CodeFormatRejected)
			return deps.Errors.TOTPCodeFormat
		}
	} else {
		method = "backup"
		backupCode = CanonicalizeBackupCode(in.BackupCode)
		if !ValidBackupCode(backupCode, deps.BackupCodeLength) {
			deps.MetricInc(deps.Metrics.CodeFormatRejected)
			return deps.Errors.BackupCodeFormat
		}
	}

	if err := deps.PostDisable(ctx, in.Password, totpCode, backupCode); err != nil {
		return settingsSubmitFailure(ctx, userID, method, err, deps, deps.Metrics.DisableFailed, deps.Events.DisableFailed)
	}

	deps.MetricInc(deps.Metrics.Disabled)
	deps.EmitAudit(ctx, deps.Events.Disabled, true, userID, method, nil, nil)
	return nil
}

func settingsSubmitFailure(ctx context.Context, userID int64, method string, err error, deps SettingsDeps, failMetric int, failEvent string) error {
	details := deps.RateDetails(err)
	if details != nil && details.RateLimited {
		deps.MetricInc(deps.Metrics.RateLimited)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.RateLimited, err)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, userID, method, wrapped, nil)
		return wrapped
	}

	if deps.IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", deps.Errors.NotAuthenticated, err)
	}

	if deps.IsRejected(err) {
		deps.MetricInc(failMetric)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.VerificationFailed, err)
		deps.EmitAudit(ctx, failEvent, false, userID, method, wrapped, nil)
		return wrapped
	}

	deps.MetricInc(deps.Metrics.BackendError)
	return fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
}

func normalizeSettingsDeps(deps *SettingsDeps) {
	if deps.TOTPDigits <= 0 {
		deps.TOTPDigits = 6
	}
	if deps.BackupCodeLength <= 0 {
		deps.BackupCodeLength = 8
	}
	if deps.RateDetails == nil {
		deps.RateDetails = func(error) *RateLimitDetails { return nil }
	}
	if deps.IsUnauthorized == nil {
		deps.IsUnauthorized = func(error) bool { return false }
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
