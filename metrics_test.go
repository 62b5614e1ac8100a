package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricChallengeCompleted)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricChallengeCompleted); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricLoginLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricLoginLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	m.Observe(MetricLoginSuccess, 12*time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("expected no histogram slot for a counter ID")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected counter untouched by Observe, got %d", got)
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricLoginLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected MetricLoginSuccess=1 got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected MetricLoginFailure=2 got %d", snap.Counters[MetricLoginFailure])
	}
	if len(snap.Histograms[MetricLoginLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricLoginLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricLoginLatency][0])
	}
}

func TestMetricsSnapshotIsDeepCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricLogout)
	m.Observe(MetricVerifyLatency, 7*time.Millisecond)

	first := m.Snapshot()
	first.Counters[MetricLogout] = 999
	first.Histograms[MetricVerifyLatency][1] = 999

	second := m.Snapshot()
	if got := second.Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected recorder unaffected by snapshot mutation, got %d", got)
	}
	if got := second.Histograms[MetricVerifyLatency][1]; got != 1 {
		t.Fatalf("expected histogram unaffected by snapshot mutation, got %d", got)
	}
}

func TestClientJourneyIncrementsCounters(t *testing.T) {
	srv := newTestBackend(t)
	acct, _ := seedTwoFactorUser(t, srv)
	client := newTestClient(t, srv)

	ctx := context.Background()

	if _, err := client.Login(ctx, testEmail, "not-the-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := client.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := client.VerifyTOTP(ctx, "000000"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if _, err := client.VerifyTOTP(ctx, totpNow(t, acct.TOTPSecret)); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	counters := client.MetricsSnapshot().Counters
	wants := map[MetricID]uint64{
		MetricLoginFailure:        1,
		MetricChallengeIssued:     1,
		MetricVerificationFailure: 1,
		MetricChallengeCompleted:  1,
		MetricLogout:              1,
		MetricLoginSuccess:        0,
	}
	for id, want := range wants {
		if got := counters[id]; got != want {
			t.Fatalf("counter %d: expected %d, got %d", id, want, got)
		}
	}
}

func TestClientLatencyHistogramsRecorded(t *testing.T) {
	srv := newTestBackend(t)
	acct, _ := seedTwoFactorUser(t, srv)

	client, err := New().
		WithBaseURL(srv.URL()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	ctx := context.Background()
	if _, err := client.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := client.VerifyTOTP(ctx, totpNow(t, acct.TOTPSecret)); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if _, err := client.TwoFactorStatus(ctx); err != nil {
		t.Fatalf("status fetch failed: %v", err)
	}

	snap := client.MetricsSnapshot()
	for _, id := range []MetricID{MetricLoginLatency, MetricVerifyLatency, MetricSettingsLatency} {
		buckets := snap.Histograms[id]
		if len(buckets) != 8 {
			t.Fatalf("histogram %d: expected 8 buckets, got %d", id, len(buckets))
		}
		var total uint64
		for _, v := range buckets {
			total += v
		}
		if total == 0 {
			t.Fatalf("histogram %d: expected at least one observation", id)
		}
	}
}

func TestClientMetricsDisabledSnapshotEmpty(t *testing.T) {
	srv := newTestBackend(t)
	seedPasswordUser(t, srv)

	client, err := New().
		WithBaseURL(srv.URL()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	snap := client.MetricsSnapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("expected empty counters with metrics disabled, got %d entries", len(snap.Counters))
	}
	if len(snap.Histograms) != 0 {
		t.Fatalf("expected empty histograms with metrics disabled, got %d entries", len(snap.Histograms))
	}
}
