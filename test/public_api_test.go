package test

import (
	"context"
	"testing"

	"github.com/Keralin/authflow"
	otelexport "github.com/Keralin/authflow/metrics/export/otel"
	"github.com/Keralin/authflow/metrics/export/prometheus"
	"go.opentelemetry.io/otel/metric"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authflow.New

	var _ *authflow.Client
	var _ authflow.Config
	var _ authflow.LoginResult
	var _ authflow.LoginChallenge
	var _ authflow.User
	var _ authflow.VerificationAttempt
	var _ authflow.RateLimitState
	var _ authflow.TwoFactorStatus
	var _ authflow.TwoFactorSetup
	var _ authflow.DisableTwoFactorRequest
	var _ authflow.AuditSink
	var _ authflow.MetricsSnapshot

	var _ error = authflow.ErrClientNotReady
	var _ error = authflow.ErrBuilderReused
	var _ error = authflow.ErrCredentialsRequired
	var _ error = authflow.ErrInvalidCredentials
	var _ error = authflow.ErrChallengeMalformed
	var _ error = authflow.ErrNoChallenge
	var _ error = authflow.ErrTOTPCodeFormat
	var _ error = authflow.ErrBackupCodeFormat
	var _ error = authflow.ErrVerificationFailed
	var _ error = authflow.ErrRateLimited
	var _ error = authflow.ErrBackendUnavailable
	var _ error = authflow.ErrNotAuthenticated
	var _ error = authflow.ErrSettingsStage
	var _ error = authflow.ErrPasswordRequired
	var _ error = authflow.ErrSecondFactorRequired

	var _ func(*authflow.Client) *prometheus.PrometheusExporter = prometheus.NewPrometheusExporter
	var _ func(metric.Meter, *authflow.Client) (*otelexport.OTelExporter, error) = otelexport.NewOTelExporter

	var _ func(*authflow.Client, context.Context, string, string) (*authflow.LoginResult, error) = (*authflow.Client).Login
	var _ func(*authflow.Client, context.Context, authflow.VerificationAttempt) (*authflow.User, error) = (*authflow.Client).Verify
	var _ func(*authflow.Client, context.Context, string) (*authflow.User, error) = (*authflow.Client).VerifyTOTP
	var _ func(*authflow.Client, context.Context, string) (*authflow.User, error) = (*authflow.Client).VerifyBackupCode
	var _ func(*authflow.Client, context.Context) error = (*authflow.Client).Logout
	var _ func(*authflow.Client, context.Context) (authflow.TwoFactorStatus, error) = (*authflow.Client).TwoFactorStatus
	var _ func(*authflow.Client, context.Context) (*authflow.TwoFactorSetup, error) = (*authflow.Client).StartSetup
	var _ func(*authflow.Client, context.Context, string) ([]string, error) = (*authflow.Client).EnableTwoFactor
	var _ func(*authflow.Client, context.Context) (authflow.TwoFactorStatus, error) = (*authflow.Client).FinishSetup
	var _ func(*authflow.Client, context.Context, authflow.DisableTwoFactorRequest) error = (*authflow.Client).DisableTwoFactor
}
