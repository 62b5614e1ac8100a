package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Keralin/authflow"
	"github.com/Keralin/authflow/authtest"
)

const seedPassword = "load-password-123"

type targetAccount struct {
	email      string
	password   string
	totpSecret string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 256, "accounts to seed per pool (in-process backend only)")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase")
		baseURL     = flag.String("base-url", "", "backend base URL; if empty, AUTHFLOW_BASE_URL env or an in-process backend is used")
		email       = flag.String("email", "", "account email when targeting an external backend")
		password    = flag.String("password", "", "account password when targeting an external backend")
		totpSecret  = flag.String("totp-secret", "", "base32 TOTP secret of the external account; enables the 2fa-journey phase")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	url := *baseURL
	if url == "" {
		url = os.Getenv("AUTHFLOW_BASE_URL")
	}

	var (
		cleanup      func()
		passwordPool []targetAccount
		verifyPool   []targetAccount
	)
	if url == "" {
		srv := authtest.NewServer()
		cleanup = srv.Close
		url = srv.URL()
		fmt.Printf("using in-process backend at %s\n", url)

		fmt.Printf("seeding %d accounts per pool...\n", *accounts)
		startSeed := time.Now()
		passwordPool = make([]targetAccount, 0, *accounts)
		verifyPool = make([]targetAccount, 0, *accounts)
		for i := 0; i < *accounts; i++ {
			addr := fmt.Sprintf("load-%d@example.com", i)
			if _, err := srv.SeedAccount(addr, fmt.Sprintf("load-%d", i), seedPassword); err != nil {
				fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
				os.Exit(1)
			}
			passwordPool = append(passwordPool, targetAccount{email: addr, password: seedPassword})

			addr = fmt.Sprintf("load-2fa-%d@example.com", i)
			acct, _, err := srv.SeedTwoFactorAccount(addr, fmt.Sprintf("load-2fa-%d", i), seedPassword)
			if err != nil {
				fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
				os.Exit(1)
			}
			verifyPool = append(verifyPool, targetAccount{email: addr, password: seedPassword, totpSecret: acct.TOTPSecret})
		}
		fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))
	} else {
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "-email and -password are required with an external backend")
			os.Exit(2)
		}
		cleanup = func() {}
		fmt.Printf("using backend at %s\n", url)
		passwordPool = []targetAccount{{email: *email, password: *password}}
		if *totpSecret != "" {
			verifyPool = []targetAccount{{email: *email, password: *password, totpSecret: *totpSecret}}
		}
	}
	defer cleanup()

	loginStats := runLoginPhase(ctx, url, passwordPool, *ops, *concurrency)
	journeyStats, journeyRan := phaseStats{}, false
	if len(verifyPool) > 0 {
		journeyStats = runJourneyPhase(ctx, url, verifyPool, *ops, *concurrency)
		journeyRan = true
	}
	statusStats := runStatusPhase(ctx, url, passwordPool, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	if journeyRan {
		printStats("2fa-journey", journeyStats)
	} else {
		fmt.Println("2fa-journey: skipped (no totp secret)")
	}
	printStats("status", statusStats)
}

func runLoginPhase(ctx context.Context, url string, pool []targetAccount, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			client, err := authflow.New().WithBaseURL(url).Build()
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			defer client.Close()

			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acct := pool[r.Intn(len(pool))]

				t0 := time.Now()
				_, err := client.Login(ctx, acct.email, acct.password)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					_ = client.Logout(ctx)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runJourneyPhase(ctx context.Context, url string, pool []targetAccount, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			client, err := authflow.New().WithBaseURL(url).Build()
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			defer client.Close()

			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acct := pool[r.Intn(len(pool))]

				t0 := time.Now()
				err := runJourney(ctx, client, acct)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					_ = client.Logout(ctx)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runJourney drives one challenged login through second-factor completion.
func runJourney(ctx context.Context, client *authflow.Client, acct targetAccount) error {
	result, err := client.Login(ctx, acct.email, acct.password)
	if err != nil {
		return err
	}
	if !result.RequiresTwoFactor {
		return fmt.Errorf("account %s is not two-factor enabled", acct.email)
	}

	code, err := authtest.TOTPCode(acct.totpSecret, time.Now())
	if err != nil {
		return err
	}
	if _, err := client.VerifyTOTP(ctx, code); err != nil {
		return err
	}
	return nil
}

func runStatusPhase(ctx context.Context, url string, pool []targetAccount, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			client, err := authflow.New().WithBaseURL(url).Build()
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			defer client.Close()

			acct := pool[worker%len(pool)]
			if _, err := client.Login(ctx, acct.email, acct.password); err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			defer func() { _ = client.Logout(ctx) }()

			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}

				t0 := time.Now()
				_, err := client.TwoFactorStatus(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
