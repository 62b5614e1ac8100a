package authtest

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct-password-123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("expected a PHC argon2id hash, got %q", hash)
	}

	if !verifyPassword("correct-password-123", hash) {
		t.Fatal("expected the original password to verify")
	}
	if verifyPassword("wrong-password", hash) {
		t.Fatal("expected a wrong password to fail")
	}
	if verifyPassword("correct-password-123", "not-a-phc-string") {
		t.Fatal("expected garbage hash input to fail")
	}
	if verifyPassword("correct-password-123", strings.Replace(hash, "argon2id", "argon2i", 1)) {
		t.Fatal("expected a foreign algorithm id to fail")
	}
}

func TestBackupCodesUseUnambiguousAlphabet(t *testing.T) {
	plain, codes, err := newBackupCodes(10)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(plain) != 10 || len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d/%d", len(plain), len(codes))
	}

	for _, code := range plain {
		if len(code) != backupCodeLength {
			t.Fatalf("expected %d-character codes, got %q", backupCodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(backupCodeAlphabet, r) {
				t.Fatalf("code %q carries %q outside the alphabet", code, r)
			}
		}
		if strings.ContainsAny(code, "IO01") {
			t.Fatalf("code %q carries an ambiguous character", code)
		}
	}
}

func TestBackupCodeConsumedOnce(t *testing.T) {
	plain, codes, err := newBackupCodes(3)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	acct := &account{backupCodes: codes}

	if got := acct.backupTokensRemaining(); got != 3 {
		t.Fatalf("expected 3 remaining, got %d", got)
	}
	if !acct.consumeBackupCode(plain[1]) {
		t.Fatal("expected a fresh code to consume")
	}
	if acct.consumeBackupCode(plain[1]) {
		t.Fatal("expected a spent code to be refused")
	}
	if acct.consumeBackupCode("A2B3C4D5") {
		t.Fatal("expected an unknown code to be refused")
	}
	if got := acct.backupTokensRemaining(); got != 2 {
		t.Fatalf("expected 2 remaining, got %d", got)
	}
}

func TestChallengeStoreLifecycle(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	cs := newChallengeStore(5)

	token, err := cs.issue(7, base, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if cs.issuedCount() != 1 || cs.pendingCount() != 1 {
		t.Fatalf("expected one issued, one pending, got %d/%d", cs.issuedCount(), cs.pendingCount())
	}

	// resolve does not consume.
	for i := 0; i < 2; i++ {
		userID, ok := cs.resolve(token, base.Add(time.Minute))
		if !ok || userID != 7 {
			t.Fatalf("expected the token to resolve to user 7, got %d/%t", userID, ok)
		}
	}

	cs.consume(token)
	if _, ok := cs.resolve(token, base.Add(time.Minute)); ok {
		t.Fatal("expected a consumed token to be dead")
	}
	if cs.pendingCount() != 0 {
		t.Fatalf("expected no pending entries, got %d", cs.pendingCount())
	}
}

func TestChallengeStoreExpiry(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	cs := newChallengeStore(5)

	token, err := cs.issue(7, base, time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, ok := cs.resolve(token, base.Add(2*time.Minute)); ok {
		t.Fatal("expected an expired token to be refused")
	}
	if cs.pendingCount() != 0 {
		t.Fatal("expected the expired entry dropped")
	}
}

func TestChallengeStoreAttemptCap(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	cs := newChallengeStore(2)

	token, err := cs.issue(7, base, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	cs.recordFailure(token)
	if _, ok := cs.resolve(token, base); !ok {
		t.Fatal("expected the token alive below the attempt cap")
	}

	cs.recordFailure(token)
	if _, ok := cs.resolve(token, base); ok {
		t.Fatal("expected the token dead at the attempt cap")
	}
	if cs.pendingCount() != 0 {
		t.Fatal("expected the burned entry dropped")
	}
}

func TestChallengeStoreRejectsTamperedTokens(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	cs := newChallengeStore(5)

	token, err := cs.issue(7, base, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	if _, ok := cs.resolve(tampered, base); ok {
		t.Fatal("expected a tampered secret to be refused")
	}
	if _, ok := cs.resolve("!!!not-base64!!!", base); ok {
		t.Fatal("expected malformed encoding to be refused")
	}
	if _, ok := cs.resolve("dG9vLXNob3J0", base); ok {
		t.Fatal("expected a short token to be refused")
	}

	// The real token still works; tampering must not consume it.
	if userID, ok := cs.resolve(token, base); !ok || userID != 7 {
		t.Fatal("expected the genuine token to survive tampered probes")
	}
}

func TestRateLimiterWindowAndLockout(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	l := newRateLimiter(2, time.Minute, 10*time.Minute)

	verdict := l.recordFailure(scopeLogin, "a@b.c", base)
	if verdict.limited || verdict.remaining != 1 {
		t.Fatalf("expected one attempt left, got %+v", verdict)
	}

	verdict = l.recordFailure(scopeLogin, "a@b.c", base.Add(time.Second))
	if !verdict.limited {
		t.Fatalf("expected the lockout to trip, got %+v", verdict)
	}
	if want := base.Add(time.Second).Add(10 * time.Minute); !verdict.lockedUntil.Equal(want) {
		t.Fatalf("expected lockout until %v, got %v", want, verdict.lockedUntil)
	}

	if got := l.check(scopeLogin, "a@b.c", base.Add(time.Minute)); !got.limited {
		t.Fatal("expected checks during the lockout to be limited")
	}
	if got := l.check(scopeLogin, "a@b.c", base.Add(11*time.Minute)); got.limited || got.remaining != 2 {
		t.Fatalf("expected a fresh window after the lockout, got %+v", got)
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	l := newRateLimiter(2, time.Minute, 10*time.Minute)

	l.recordFailure(scopeTwoFactor, "7", base)

	// The first failure ages out; the next one opens a fresh window.
	verdict := l.recordFailure(scopeTwoFactor, "7", base.Add(2*time.Minute))
	if verdict.limited || verdict.remaining != 1 {
		t.Fatalf("expected a fresh window, got %+v", verdict)
	}
}

func TestRateLimiterResetOnSuccess(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	l := newRateLimiter(2, time.Minute, 10*time.Minute)

	l.recordFailure(scopeLogin, "a@b.c", base)
	l.reset(scopeLogin, "a@b.c")

	if got := l.check(scopeLogin, "a@b.c", base.Add(time.Second)); got.limited || got.remaining != 2 {
		t.Fatalf("expected a clean slate after reset, got %+v", got)
	}

	// Scopes are independent: the login reset must not touch the 2fa bucket.
	l.recordFailure(scopeTwoFactor, "a@b.c", base)
	l.reset(scopeLogin, "a@b.c")
	if got := l.check(scopeTwoFactor, "a@b.c", base.Add(time.Second)); got.remaining != 1 {
		t.Fatalf("expected the 2fa bucket untouched, got %+v", got)
	}
}

func TestTOTPCodeMatchesVerifier(t *testing.T) {
	material, err := issueTOTP("authflow", "a@b.c")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !strings.HasPrefix(material.uri, "otpauth://totp/") {
		t.Fatalf("expected an otpauth URI, got %q", material.uri)
	}
	if !strings.HasPrefix(material.imageURL, "data:image/png;base64,") {
		t.Fatalf("expected a PNG data URL, got %q", material.imageURL)
	}

	// Aligned to a 30-second period boundary so skew math is exact.
	at := time.Unix(1700000040, 0)

	code, err := TOTPCode(material.secret, at)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !verifyTOTP(code, material.secret, at) {
		t.Fatal("expected the minted code to verify at its own instant")
	}
	if !verifyTOTP(code, material.secret, at.Add(30*time.Second)) {
		t.Fatal("expected the code to verify one period later via skew")
	}
	if verifyTOTP(code, material.secret, at.Add(90*time.Second)) {
		t.Fatal("expected the code to be stale three periods later")
	}
	if verifyTOTP("000000", material.secret, at) && code != "000000" {
		t.Fatal("expected a wrong code to fail")
	}
}
