//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/Keralin/authflow"
	"github.com/Keralin/authflow/authtest"
)

const (
	integrationEmail    = "carol@example.com"
	integrationUsername = "carol"
	integrationPassword = "integration-password-123"
)

func newIntegrationClient(t *testing.T, opts ...authtest.Option) (*authflow.Client, *authtest.Server, func()) {
	t.Helper()

	srv := authtest.NewServer(opts...)

	client, err := authflow.New().
		WithBaseURL(srv.URL()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		srv.Close()
		t.Fatalf("client build failed: %v", err)
	}

	return client, srv, func() {
		client.Close()
		srv.Close()
	}
}

func mintTOTP(t *testing.T, secret string) string {
	t.Helper()

	code, err := authtest.TOTPCode(secret, time.Now())
	if err != nil {
		t.Fatalf("mint totp code failed: %v", err)
	}
	return code
}
