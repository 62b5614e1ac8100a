package authflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Keralin/authflow/authtest"
)

const (
	testEmail    = "alice@example.com"
	testUsername = "alice"
	testPassword = "correct-password-123"
)

func newTestBackend(t *testing.T, opts ...authtest.Option) *authtest.Server {
	t.Helper()

	srv := authtest.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *authtest.Server) *Client {
	t.Helper()

	client, err := New().
		WithBaseURL(srv.URL()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func seedPasswordUser(t *testing.T, srv *authtest.Server) authtest.Account {
	t.Helper()

	acct, err := srv.SeedAccount(testEmail, testUsername, testPassword)
	if err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	return acct
}

func seedTwoFactorUser(t *testing.T, srv *authtest.Server) (authtest.Account, []string) {
	t.Helper()

	acct, codes, err := srv.SeedTwoFactorAccount(testEmail, testUsername, testPassword)
	if err != nil {
		t.Fatalf("seed two-factor account failed: %v", err)
	}
	return acct, codes
}

func totpNow(t *testing.T, secret string) string {
	t.Helper()

	code, err := authtest.TOTPCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate TOTP code failed: %v", err)
	}
	return code
}

func TestLoginCompletesWithoutSecondFactor(t *testing.T) {
	srv := newTestBackend(t)
	acct := seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	result, err := client.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.RequiresTwoFactor {
		t.Fatal("expected direct completion for an account without a second factor")
	}
	if result.User == nil || result.User.ID != acct.ID {
		t.Fatalf("expected user %d in result, got %+v", acct.ID, result.User)
	}
	if got := client.State(); got != StateCompleted {
		t.Fatalf("expected state completed, got %v", got)
	}
	if user := client.CurrentUser(); user == nil || user.Email != testEmail {
		t.Fatalf("expected current user %q, got %+v", testEmail, user)
	}
	if client.Challenge() != nil {
		t.Fatal("expected no pending challenge after direct completion")
	}
	if got := srv.ActiveSessions(); got != 1 {
		t.Fatalf("expected one server session, got %d", got)
	}
}

func TestLoginIssuesChallengeForTwoFactorAccount(t *testing.T) {
	srv := newTestBackend(t)
	acct, _ := seedTwoFactorUser(t, srv)
	client := newTestClient(t, srv)

	result, err := client.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.RequiresTwoFactor {
		t.Fatal("expected a pending challenge for a two-factor account")
	}
	if !result.BackupCodesAvailable {
		t.Fatal("expected backup codes to be reported as available")
	}
	if result.User != nil {
		t.Fatalf("expected no user before verification, got %+v", result.User)
	}
	if got := client.State(); got != StateTwoFactorVerify {
		t.Fatalf("expected state 2fa-verify, got %v", got)
	}
	challenge := client.Challenge()
	if challenge == nil {
		t.Fatal("expected a stored challenge")
	}
	if challenge.UserID != acct.ID {
		t.Fatalf("expected challenge for user %d, got %d", acct.ID, challenge.UserID)
	}
	if challenge.TempToken == "" {
		t.Fatal("expected a temp token in the stored challenge")
	}
	if client.CurrentUser() != nil {
		t.Fatal("expected no session while the challenge is pending")
	}
	if got := srv.ActiveSessions(); got != 0 {
		t.Fatalf("expected no server session yet, got %d", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	_, err := client.Login(context.Background(), testEmail, "not-the-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected state credentials after a rejection, got %v", got)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected the enveloped server error to be preserved, got %v", err)
	}
	if apiErr.StatusCode != 401 {
		t.Fatalf("expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Invalid email or password." {
		t.Fatalf("unexpected server message %q", apiErr.Message)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	_, err := client.Login(context.Background(), "nobody@example.com", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginEmptyCredentialsMakeNoRequest(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	// Any request reaching the server would trip the injected failure.
	srv.FailNext("/auth/login/", 500, "boom")
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), "", testPassword); !errors.Is(err, ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired for empty email, got %v", err)
	}
	if _, err := client.Login(context.Background(), testEmail, ""); !errors.Is(err, ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired for empty password, got %v", err)
	}
	if _, err := client.Login(context.Background(), "   ", testPassword); !errors.Is(err, ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired for blank email, got %v", err)
	}
}

func TestLoginBackendFailure(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	srv.FailNext("/auth/login/", 500, "internal error")
	client := newTestClient(t, srv)

	_, err := client.Login(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected state credentials, got %v", got)
	}

	// The injected failure is one-shot; the retry goes through.
	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestLoginLockoutSurfacesRateLimit(t *testing.T) {
	srv := newTestBackend(t, authtest.WithAttemptLimit(2, time.Minute, 10*time.Minute))
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, "wrong-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials on first failure, got %v", err)
	}

	_, err := client.Login(context.Background(), testEmail, "wrong-2")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited once the attempt budget is spent, got %v", err)
	}

	rate := client.RateLimit()
	if !rate.Limited {
		t.Fatal("expected the tracker to be limited")
	}
	if rate.RemainingAttempts == nil || *rate.RemainingAttempts != 0 {
		t.Fatalf("expected zero remaining attempts, got %v", rate.RemainingAttempts)
	}
	if rate.LockoutEndsAt == nil || !rate.LockoutEndsAt.After(time.Now()) {
		t.Fatalf("expected a future lockout deadline, got %v", rate.LockoutEndsAt)
	}
	if rate.Message == "" {
		t.Fatal("expected the server's rate-limit message to be captured")
	}

	// The server stays authoritative: even the correct password is refused
	// while the lockout holds.
	if _, err := client.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited with correct password during lockout, got %v", err)
	}
}

func TestLoginRestartsPendingChallenge(t *testing.T) {
	srv := newTestBackend(t)
	_, _ = seedTwoFactorUser(t, srv)
	bobAcct, err := srv.SeedAccount("bob@example.com", "bob", testPassword)
	if err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	if client.Challenge() == nil {
		t.Fatal("expected a pending challenge")
	}

	result, err := client.Login(context.Background(), "bob@example.com", testPassword)
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if result.User == nil || result.User.ID != bobAcct.ID {
		t.Fatalf("expected bob's session, got %+v", result.User)
	}
	if client.Challenge() != nil {
		t.Fatal("expected the stale challenge to be discarded")
	}
	if got := client.State(); got != StateCompleted {
		t.Fatalf("expected state completed, got %v", got)
	}
}

func TestCancelChallengeReturnsToCredentials(t *testing.T) {
	srv := newTestBackend(t)
	seedTwoFactorUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	client.CancelChallenge()

	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected state credentials after cancel, got %v", got)
	}
	if client.Challenge() != nil {
		t.Fatal("expected the challenge to be dropped")
	}
	if client.RateLimit().Limited {
		t.Fatal("expected rate-limit state to be cleared")
	}

	// A fresh login mints a fresh challenge; the abandoned token expires
	// server-side.
	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("fresh login failed: %v", err)
	}
	if got := srv.IssuedChallenges(); got != 2 {
		t.Fatalf("expected two issued challenges, got %d", got)
	}
}

func TestCancelChallengeKeepsCompletedSession(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	client.CancelChallenge()

	if got := client.State(); got != StateCompleted {
		t.Fatalf("expected completed session to survive cancel, got %v", got)
	}
	if client.CurrentUser() == nil {
		t.Fatal("expected the session to be retained")
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected state credentials after logout, got %v", got)
	}
	if client.CurrentUser() != nil {
		t.Fatal("expected no current user after logout")
	}
	if got := srv.ActiveSessions(); got != 0 {
		t.Fatalf("expected the server session to be dropped, got %d", got)
	}
}

func TestLogoutWithoutSessionMakesNoRequest(t *testing.T) {
	srv := newTestBackend(t)
	// Any request reaching the server would trip the injected failure.
	srv.FailNext("/auth/logout/", 500, "boom")
	client := newTestClient(t, srv)

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("expected logout without a session to be a local no-op, got %v", err)
	}
}

func TestLogoutToleratesMissingServerSession(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	srv.DropSessions()

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("expected logout to tolerate an already-dropped session, got %v", err)
	}
	if client.CurrentUser() != nil {
		t.Fatal("expected local state to be cleared")
	}
}

func TestLogoutBackendFailureStillClearsLocalState(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)
	client := newTestClient(t, srv)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	srv.FailNext("/auth/logout/", 500, "internal error")

	err := client.Logout(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if client.CurrentUser() != nil {
		t.Fatal("expected local session to be dropped despite the failure")
	}
	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected state credentials, got %v", got)
	}
}

func TestBuilderRequiresBaseURL(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected Build to fail without a base URL")
	}
}

func TestBuilderRejectsReuse(t *testing.T) {
	srv := newTestBackend(t)

	builder := New().WithBaseURL(srv.URL())
	client, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := builder.Build(); !errors.Is(err, ErrBuilderReused) {
		t.Fatalf("expected ErrBuilderReused, got %v", err)
	}
}

func TestZeroValueClientNotReady(t *testing.T) {
	var client Client

	if _, err := client.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady from Login, got %v", err)
	}
	if _, err := client.VerifyTOTP(context.Background(), "123456"); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady from VerifyTOTP, got %v", err)
	}
	if err := client.Logout(context.Background()); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady from Logout, got %v", err)
	}
	if _, err := client.TwoFactorStatus(context.Background()); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady from TwoFactorStatus, got %v", err)
	}

	// Accessors and local transitions stay inert.
	client.CancelChallenge()
	if got := client.State(); got != StateCredentials {
		t.Fatalf("expected zero-value state credentials, got %v", got)
	}
	if client.Challenge() != nil || client.CurrentUser() != nil {
		t.Fatal("expected zero-value accessors to return nil")
	}
}
