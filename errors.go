package authflow

import "errors"

var (
	// ErrClientNotReady is an exported constant or variable used by the authentication flow client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrBuilderReused is an exported constant or variable used by the authentication flow client.
	ErrBuilderReused = errors.New("builder already used")
	// ErrCredentialsRequired is an exported constant or variable used by the authentication flow client.
	ErrCredentialsRequired = errors.New("email and password required")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication flow client.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrChallengeMalformed is an exported constant or variable used by the authentication flow client.
	ErrChallengeMalformed = errors.New("invalid 2fa response")
	// ErrNoChallenge is an exported constant or variable used by the authentication flow client.
	ErrNoChallenge = errors.New("no pending 2fa challenge")
	// ErrTOTPCodeFormat is an exported constant or variable used by the authentication flow client.
	ErrTOTPCodeFormat = errors.New("totp code format invalid")
	// ErrBackupCodeFormat is an exported constant or variable used by the authentication flow client.
	ErrBackupCodeFormat = errors.New("backup code format invalid")
	// ErrVerificationFailed is an exported constant or variable used by the authentication flow client.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrRateLimited is an exported constant or variable used by the authentication flow client.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication flow client.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNotAuthenticated is an exported constant or variable used by the authentication flow client.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSettingsStage is an exported constant or variable used by the authentication flow client.
	ErrSettingsStage = errors.New("operation not allowed in current settings stage")
	// ErrPasswordRequired is an exported constant or variable used by the authentication flow client.
	ErrPasswordRequired = errors.New("password required")
	// ErrSecondFactorRequired is an exported constant or variable used by the authentication flow client.
	ErrSecondFactorRequired = errors.New("exactly one second factor required")
)
