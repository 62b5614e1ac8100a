//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Keralin/authflow"
)

func TestVerifyRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	client, srv, cleanup := newIntegrationClient(t)
	defer cleanup()

	acct, _, err := srv.SeedTwoFactorAccount(integrationEmail, integrationUsername, integrationPassword)
	if err != nil {
		t.Fatalf("seed two-factor account failed: %v", err)
	}

	result, err := client.Login(ctx, integrationEmail, integrationPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.RequiresTwoFactor {
		t.Fatal("expected a pending challenge")
	}

	code := mintTOTP(t, acct.TOTPSecret)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := client.VerifyTOTP(ctx, code)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, authflow.ErrNoChallenge):
		default:
			t.Fatalf("unexpected verify error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}

	if got := client.State(); got != authflow.StateCompleted {
		t.Fatalf("expected completed state, got %v", got)
	}
	if user := client.CurrentUser(); user == nil || user.Email != integrationEmail {
		t.Fatalf("expected current user %q, got %+v", integrationEmail, user)
	}
}
