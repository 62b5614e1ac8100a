// Package authtest runs an in-process fake of the authentication backend
// for tests and examples. The fake speaks the same wire contract as the
// production REST API: password login, two-factor completion, device setup
// and teardown, session cookies, and fixed-window attempt limiting with
// lockouts. State lives in memory and every knob (clock, attempt budgets,
// challenge lifetime) is injectable, so tests can drive edge cases that
// would need minutes of wall time against a real deployment.
package authtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Keralin/authflow/session"
)

// Response messages mirror the production backend verbatim so client-side
// assertions against surfaced text stay honest.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgInvalidChallenge   = "Invalid or expired 2FA session."
	msgInvalidCode        = "Invalid verification code."
	msgInvalidPassword    = "Invalid password."
	msgNotAuthenticated   = "Authentication credentials were not provided."
	msgTooManyAttempts    = "Too many requests for this account"
	msgSetupRequired      = "No 2FA setup in progress."
	msgExactlyOneFactor   = "Provide exactly one of totp_code or backup_code."
	msgPasswordRequired   = "Password is required."
	msgNotEnabled         = "2FA is not enabled."
	msgMalformedBody      = "Malformed request body."
	msgLogoutOK           = "Logout successful"
	msgDisabledOK         = "2FA disabled successfully"
)

// Attempt-limiter scopes. Login failures are counted per email, factor
// failures per account id.
const (
	scopeLogin     = "login"
	scopeTwoFactor = "2fa"
)

const (
	defaultIssuer            = "authflow"
	defaultChallengeTTL      = 10 * time.Minute
	defaultChallengeAttempts = 5
	defaultAttemptLimit      = 3
	defaultAttemptWindow     = time.Minute
	defaultLockoutDuration   = 10 * time.Minute
	defaultBackupCodeCount   = 10
)

// Server defines a public type used by authflow APIs.
//
// Server instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Server struct {
	httpServer *httptest.Server

	now func() time.Time

	issuer            string
	challengeTTL      time.Duration
	challengeAttempts int
	attemptLimit      int
	attemptWindow     time.Duration
	lockoutDuration   time.Duration
	backupCodeCount   int

	mu              sync.Mutex
	nextID          int64
	accountsByEmail map[string]*account
	accountsByID    map[int64]*account
	failNext        map[string]injectedFailure

	sessions   *sessionStore
	challenges *challengeStore
	limiter    *rateLimiter
}

type injectedFailure struct {
	status  int
	message string
}

// Option defines a public type used by authflow APIs.
//
// Option instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Option func(*Server)

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer describes the withissuer operation and its observable behavior.
//
// WithIssuer may return an error when input validation, dependency calls, or security checks fail.
// WithIssuer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithIssuer(issuer string) Option {
	return func(s *Server) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithChallengeTTL describes the withchallengettl operation and its observable behavior.
//
// WithChallengeTTL may return an error when input validation, dependency calls, or security checks fail.
// WithChallengeTTL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithChallengeAttempts describes the withchallengeattempts operation and its observable behavior.
//
// WithChallengeAttempts may return an error when input validation, dependency calls, or security checks fail.
// WithChallengeAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithChallengeAttempts(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.challengeAttempts = n
		}
	}
}

// WithAttemptLimit describes the withattemptlimit operation and its observable behavior.
//
// WithAttemptLimit may return an error when input validation, dependency calls, or security checks fail.
// WithAttemptLimit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithAttemptLimit(max int, window, lockout time.Duration) Option {
	return func(s *Server) {
		if max > 0 {
			s.attemptLimit = max
		}
		if window > 0 {
			s.attemptWindow = window
		}
		if lockout > 0 {
			s.lockoutDuration = lockout
		}
	}
}

// WithBackupCodeCount describes the withbackupcodecount operation and its observable behavior.
//
// WithBackupCodeCount may return an error when input validation, dependency calls, or security checks fail.
// WithBackupCodeCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func WithBackupCodeCount(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.backupCodeCount = n
		}
	}
}

// NewServer describes the newserver operation and its observable behavior.
//
// NewServer may return an error when input validation, dependency calls, or security checks fail.
// NewServer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewServer(opts ...Option) *Server {
	s := &Server{
		now:               time.Now,
		issuer:            defaultIssuer,
		challengeTTL:      defaultChallengeTTL,
		challengeAttempts: defaultChallengeAttempts,
		attemptLimit:      defaultAttemptLimit,
		attemptWindow:     defaultAttemptWindow,
		lockoutDuration:   defaultLockoutDuration,
		backupCodeCount:   defaultBackupCodeCount,
		accountsByEmail:   make(map[string]*account),
		accountsByID:      make(map[int64]*account),
		failNext:          make(map[string]injectedFailure),
		sessions:          newSessionStore(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.challenges = newChallengeStore(s.challengeAttempts)
	s.limiter = newRateLimiter(s.attemptLimit, s.attemptWindow, s.lockoutDuration)
	s.httpServer = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.failureInjection)

	r.Post("/auth/login/", s.handleLogin)
	r.Post("/auth/login/2fa-complete/", s.handleCompleteTwoFactor)
	r.Post("/auth/logout/", s.handleLogout)

	r.Group(func(g chi.Router) {
		g.Use(s.sessionGuard)
		g.Post("/auth/2fa/setup/", s.handleSetup)
		g.Post("/auth/2fa/enable/", s.handleEnable)
		g.Post("/auth/2fa/disable/", s.handleDisable)
		g.Get("/auth/2fa/status/", s.handleStatus)
	})

	return r
}

// URL describes the url operation and its observable behavior.
//
// URL may return an error when input validation, dependency calls, or security checks fail.
// URL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) Close() {
	s.httpServer.Close()
}

// FailNext describes the failnext operation and its observable behavior.
//
// FailNext may return an error when input validation, dependency calls, or security checks fail.
// FailNext does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) FailNext(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = injectedFailure{status: status, message: message}
}

// failureInjection serves a one-shot canned failure for a path registered
// via FailNext, ahead of any real handler logic.
func (s *Server) failureInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failure, ok := s.failNext[r.URL.Path]
		if ok {
			delete(s.failNext, r.URL.Path)
		}
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		var details *errorDetails
		if failure.status == http.StatusTooManyRequests {
			details = &errorDetails{RateLimited: true, RateLimitMessage: failure.message}
		}
		s.writeError(w, failure.status, failure.message, details)
	})
}

// SeedAccount describes the seedaccount operation and its observable behavior.
//
// SeedAccount may return an error when input validation, dependency calls, or security checks fail.
// SeedAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) SeedAccount(email, username, password string) (Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	acct := &account{
		id:           s.nextID,
		email:        strings.ToLower(email),
		username:     username,
		passwordHash: hash,
	}
	s.accountsByEmail[acct.email] = acct
	s.accountsByID[acct.id] = acct
	return acct.view(), nil
}

// SeedTwoFactorAccount describes the seedtwofactoraccount operation and its observable behavior.
//
// SeedTwoFactorAccount may return an error when input validation, dependency calls, or security checks fail.
// SeedTwoFactorAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) SeedTwoFactorAccount(email, username, password string) (Account, []string, error) {
	_, err := s.SeedAccount(email, username, password)
	if err != nil {
		return Account{}, nil, err
	}

	material, err := issueTOTP(s.issuer, strings.ToLower(email))
	if err != nil {
		return Account{}, nil, err
	}
	plain, codes, err := newBackupCodes(s.backupCodeCount)
	if err != nil {
		return Account{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accountsByEmail[strings.ToLower(email)]
	acct.twoFactorEnabled = true
	acct.totpSecret = material.secret
	acct.backupCodes = codes
	return acct.view(), plain, nil
}

// Account describes the account operation and its observable behavior.
//
// Account may return an error when input validation, dependency calls, or security checks fail.
// Account does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) Account(email string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accountsByEmail[strings.ToLower(email)]
	if !ok {
		return Account{}, false
	}
	return acct.view(), true
}

// BackupCodes describes the backupcodes operation and its observable behavior.
//
// BackupCodes may return an error when input validation, dependency calls, or security checks fail.
// BackupCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) BackupCodes(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accountsByEmail[strings.ToLower(email)]
	if !ok {
		return nil
	}
	remaining := make([]string, 0, len(acct.backupCodes))
	for _, code := range acct.backupCodes {
		if !code.used {
			remaining = append(remaining, code.plain)
		}
	}
	return remaining
}

// IssuedChallenges describes the issuedchallenges operation and its observable behavior.
//
// IssuedChallenges may return an error when input validation, dependency calls, or security checks fail.
// IssuedChallenges does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) IssuedChallenges() int {
	return s.challenges.issuedCount()
}

// PendingChallenges describes the pendingchallenges operation and its observable behavior.
//
// PendingChallenges may return an error when input validation, dependency calls, or security checks fail.
// PendingChallenges does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) PendingChallenges() int {
	return s.challenges.pendingCount()
}

// ActiveSessions describes the activesessions operation and its observable behavior.
//
// ActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) ActiveSessions() int {
	return s.sessions.count()
}

// DropSessions describes the dropsessions operation and its observable behavior.
//
// DropSessions may return an error when input validation, dependency calls, or security checks fail.
// DropSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) DropSessions() {
	s.sessions.dropAll()
}

// -------- wire shapes --------

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Requires2FA          bool          `json:"requires_2fa"`
	TempToken            string        `json:"temp_token,omitempty"`
	UserID               int64         `json:"user_id,omitempty"`
	BackupCodesAvailable bool          `json:"backup_codes_available,omitempty"`
	User                 *session.User `json:"user,omitempty"`
}

type completeRequest struct {
	TempToken  string `json:"temp_token"`
	UserID     int64  `json:"user_id"`
	TOTPCode   string `json:"totp_code"`
	BackupCode string `json:"backup_code"`
}

type completeResponse struct {
	User *session.User `json:"user"`
}

type setupResponse struct {
	SecretKey   string `json:"secret_key"`
	QRCodeURI   string `json:"qr_code_uri"`
	QRCodeImage string `json:"qr_code_image"`
}

type enableRequest struct {
	TOTPCode string `json:"totp_code"`
}

type enableResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type disableRequest struct {
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code"`
	BackupCode string `json:"backup_code"`
}

type statusResponse struct {
	IsEnabled         bool    `json:"is_enabled"`
	BackupTokensCount int     `json:"backup_tokens_count"`
	LastUsedAt        *string `json:"last_used_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorEnvelope struct {
	Message string        `json:"message"`
	Details *errorDetails `json:"details,omitempty"`
}

type errorDetails struct {
	RateLimited       bool    `json:"rate_limited"`
	RemainingAttempts *int    `json:"remaining_attempts,omitempty"`
	LockoutEndsAt     *string `json:"lockout_ends_at,omitempty"`
	RateLimitMessage  string  `json:"rate_limit_message,omitempty"`
}

// -------- handlers --------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	now := s.now()
	identity := strings.ToLower(req.Email)

	if verdict := s.limiter.check(scopeLogin, identity, now); verdict.limited {
		s.writeRateLimited(w, verdict)
		return
	}

	s.mu.Lock()
	acct, ok := s.accountsByEmail[identity]
	var hash string
	if ok {
		hash = acct.passwordHash
	}
	s.mu.Unlock()

	if !ok || !verifyPassword(req.Password, hash) {
		s.failAttempt(w, scopeLogin, identity, now, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	s.limiter.reset(scopeLogin, identity)

	s.mu.Lock()
	enabled := acct.twoFactorEnabled
	available := acct.backupTokensRemaining() > 0
	user := session.User{ID: acct.id, Email: acct.email, Username: acct.username}
	s.mu.Unlock()

	if enabled {
		token, err := s.challenges.issue(user.ID, now, s.challengeTTL)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "could not issue 2FA session", nil)
			return
		}
		s.writeJSON(w, http.StatusOK, loginResponse{
			Requires2FA:          true,
			TempToken:            token,
			UserID:               user.ID,
			BackupCodesAvailable: available,
		})
		return
	}

	if !s.startSession(w, user.ID) {
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{User: &user})
}

func (s *Server) handleCompleteTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !s.decode(w, r, &req) {
		return
	}

	hasTOTP := req.TOTPCode != ""
	hasBackup := req.BackupCode != ""
	if hasTOTP == hasBackup {
		s.writeError(w, http.StatusBadRequest, msgExactlyOneFactor, nil)
		return
	}

	now := s.now()

	userID, ok := s.challenges.resolve(req.TempToken, now)
	if !ok || userID != req.UserID {
		s.writeError(w, http.StatusUnauthorized, msgInvalidChallenge, nil)
		return
	}

	identity := strconv.FormatInt(userID, 10)
	if verdict := s.limiter.check(scopeTwoFactor, identity, now); verdict.limited {
		s.writeRateLimited(w, verdict)
		return
	}

	s.mu.Lock()
	acct, ok := s.accountsByID[userID]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, http.StatusUnauthorized, msgInvalidChallenge, nil)
		return
	}

	var verified bool
	if hasTOTP {
		verified = verifyTOTP(req.TOTPCode, acct.totpSecret, now)
	} else {
		verified = acct.consumeBackupCode(req.BackupCode)
	}
	if verified {
		used := now
		acct.lastUsedAt = &used
	}
	user := session.User{ID: acct.id, Email: acct.email, Username: acct.username}
	s.mu.Unlock()

	if !verified {
		s.challenges.recordFailure(req.TempToken)
		s.failAttempt(w, scopeTwoFactor, identity, now, http.StatusBadRequest, msgInvalidCode)
		return
	}

	s.challenges.consume(req.TempToken)
	s.limiter.reset(scopeTwoFactor, identity)

	if !s.startSession(w, user.ID) {
		return
	}
	s.writeJSON(w, http.StatusOK, completeResponse{User: &user})
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	acct := s.sessionAccount(w, r)
	if acct == nil {
		return
	}

	s.mu.Lock()
	email := acct.email
	s.mu.Unlock()

	material, err := issueTOTP(s.issuer, email)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not provision TOTP device", nil)
		return
	}

	s.mu.Lock()
	acct.pendingSecret = material.secret
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, setupResponse{
		SecretKey:   material.secret,
		QRCodeURI:   material.uri,
		QRCodeImage: material.imageURL,
	})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if !s.decode(w, r, &req) {
		return
	}
	acct := s.sessionAccount(w, r)
	if acct == nil {
		return
	}

	now := s.now()
	identity := strconv.FormatInt(acct.id, 10)

	if verdict := s.limiter.check(scopeTwoFactor, identity, now); verdict.limited {
		s.writeRateLimited(w, verdict)
		return
	}

	s.mu.Lock()
	pending := acct.pendingSecret
	s.mu.Unlock()

	if pending == "" {
		s.writeError(w, http.StatusBadRequest, msgSetupRequired, nil)
		return
	}

	if !verifyTOTP(req.TOTPCode, pending, now) {
		s.failAttempt(w, scopeTwoFactor, identity, now, http.StatusBadRequest, msgInvalidCode)
		return
	}

	plain, codes, err := newBackupCodes(s.backupCodeCount)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not generate backup codes", nil)
		return
	}

	s.mu.Lock()
	acct.totpSecret = pending
	acct.pendingSecret = ""
	acct.twoFactorEnabled = true
	acct.backupCodes = codes
	s.mu.Unlock()

	s.limiter.reset(scopeTwoFactor, identity)
	s.writeJSON(w, http.StatusOK, enableResponse{BackupCodes: plain})
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req disableRequest
	if !s.decode(w, r, &req) {
		return
	}
	acct := s.sessionAccount(w, r)
	if acct == nil {
		return
	}

	if req.Password == "" {
		s.writeError(w, http.StatusBadRequest, msgPasswordRequired, nil)
		return
	}
	hasTOTP := req.TOTPCode != ""
	hasBackup := req.BackupCode != ""
	if hasTOTP == hasBackup {
		s.writeError(w, http.StatusBadRequest, msgExactlyOneFactor, nil)
		return
	}

	now := s.now()
	identity := strconv.FormatInt(acct.id, 10)

	if verdict := s.limiter.check(scopeTwoFactor, identity, now); verdict.limited {
		s.writeRateLimited(w, verdict)
		return
	}

	s.mu.Lock()
	enabled := acct.twoFactorEnabled
	hash := acct.passwordHash
	s.mu.Unlock()

	if !enabled {
		s.writeError(w, http.StatusBadRequest, msgNotEnabled, nil)
		return
	}

	if !verifyPassword(req.Password, hash) {
		s.failAttempt(w, scopeTwoFactor, identity, now, http.StatusBadRequest, msgInvalidPassword)
		return
	}

	s.mu.Lock()
	var verified bool
	if hasTOTP {
		verified = verifyTOTP(req.TOTPCode, acct.totpSecret, now)
	} else {
		verified = acct.consumeBackupCode(req.BackupCode)
	}
	s.mu.Unlock()

	if !verified {
		s.failAttempt(w, scopeTwoFactor, identity, now, http.StatusBadRequest, msgInvalidCode)
		return
	}

	s.mu.Lock()
	acct.twoFactorEnabled = false
	acct.totpSecret = ""
	acct.pendingSecret = ""
	acct.backupCodes = nil
	acct.lastUsedAt = nil
	s.mu.Unlock()

	s.limiter.reset(scopeTwoFactor, identity)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: msgDisabledOK})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	acct := s.sessionAccount(w, r)
	if acct == nil {
		return
	}

	s.mu.Lock()
	resp := statusResponse{
		IsEnabled:         acct.twoFactorEnabled,
		BackupTokensCount: acct.backupTokensRemaining(),
	}
	if acct.lastUsedAt != nil {
		used := acct.lastUsedAt.UTC().Format(time.RFC3339)
		resp.LastUsedAt = &used
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, resp)
}

// handleLogout succeeds whether or not a session exists, matching the
// production endpoint.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.drop(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	s.writeJSON(w, http.StatusOK, messageResponse{Message: msgLogoutOK})
}

// -------- helpers --------

func (s *Server) sessionAccount(w http.ResponseWriter, r *http.Request) *account {
	userID, ok := sessionUserID(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, msgNotAuthenticated, nil)
		return nil
	}

	s.mu.Lock()
	acct := s.accountsByID[userID]
	s.mu.Unlock()

	if acct == nil {
		s.writeError(w, http.StatusUnauthorized, msgNotAuthenticated, nil)
	}
	return acct
}

func (s *Server) startSession(w http.ResponseWriter, userID int64) bool {
	token, err := s.sessions.create(userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not create session", nil)
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// failAttempt records a failed attempt and writes either the plain failure
// with a remaining-attempts countdown or, once the budget is spent, the
// lockout envelope.
func (s *Server) failAttempt(w http.ResponseWriter, scope, identity string, now time.Time, status int, message string) {
	verdict := s.limiter.recordFailure(scope, identity, now)
	if verdict.limited {
		s.writeRateLimited(w, verdict)
		return
	}
	remaining := verdict.remaining
	s.writeError(w, status, message, &errorDetails{RemainingAttempts: &remaining})
}

func (s *Server) writeRateLimited(w http.ResponseWriter, verdict rateVerdict) {
	zero := 0
	ends := verdict.lockedUntil.UTC().Format(time.RFC3339)
	s.writeError(w, http.StatusTooManyRequests, msgTooManyAttempts, &errorDetails{
		RateLimited:       true,
		RemainingAttempts: &zero,
		LockoutEndsAt:     &ends,
		RateLimitMessage:  msgTooManyAttempts,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details *errorDetails) {
	s.writeJSON(w, status, errorEnvelope{Message: message, Details: details})
}
