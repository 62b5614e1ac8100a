package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Keralin/authflow/internal/flows"
	"github.com/Keralin/authflow/session"
)

// At most 1 MiB of any response body is read; the backend's largest answer
// (a backup-code set) is a few hundred bytes.
const maxResponseBytes = 1 << 20

// Error is a decoded non-2xx answer from the backend. Message carries the
// enveloped server message (or the HTTP status text when the body was not
// decodable); Details is present when the envelope carried rate-limit
// metadata.
type Error struct {
	StatusCode int
	Message    string
	Details    *flows.RateLimitDetails
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend replied %d: %s", e.StatusCode, e.Message)
}

// RateDetailsFrom extracts rate-limit metadata from err, nil when err is not
// an *Error or carries none.
func RateDetailsFrom(err error) *flows.RateLimitDetails {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Details
	}
	return nil
}

// IsRejected reports whether err is a server-side refusal: the backend
// answered with a 4xx status, as opposed to a transport failure.
func IsRejected(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode <= 499
}

// IsUnauthorized reports whether err is a 401 answer, meaning the backend no
// longer recognizes the session cookie (or the presented login token).
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Config carries transport construction parameters.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	UserAgent      string

	// Per-request header overrides, read from the caller's context.
	// Each may be nil; an empty return means "not set".
	RequestIDFromContext func(context.Context) string
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
}

// Client speaks JSON to the backend auth endpoints. One attempt per call, no
// retries; the cookie jar carries the backend session cookie across calls.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string

	requestID func(context.Context) string
	clientIP  func(context.Context) string
	ctxAgent  func(context.Context) string
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	} else {
		// Shallow copy so attaching the jar never mutates the caller's client.
		clone := *httpClient
		httpClient = &clone
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: cfg.UserAgent,
		requestID: cfg.RequestIDFromContext,
		clientIP:  cfg.ClientIPFromContext,
		ctxAgent:  cfg.UserAgentFromContext,
	}
	if c.requestID == nil {
		c.requestID = func(context.Context) string { return "" }
	}
	if c.clientIP == nil {
		c.clientIP = func(context.Context) string { return "" }
	}
	if c.ctxAgent == nil {
		c.ctxAgent = func(context.Context) string { return "" }
	}
	return c, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Requires2FA          bool          `json:"requires_2fa"`
	TempToken            string        `json:"temp_token"`
	UserID               int64         `json:"user_id"`
	User                 *session.User `json:"user"`
	BackupCodesAvailable bool          `json:"backup_codes_available"`
}

// Login posts the credentials step.
func (c *Client) Login(ctx context.Context, email, password string) (flows.LoginResponse, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login/", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return flows.LoginResponse{}, err
	}
	return flows.LoginResponse{
		Requires2FA:          out.Requires2FA,
		TempToken:            out.TempToken,
		UserID:               out.UserID,
		User:                 out.User,
		BackupCodesAvailable: out.BackupCodesAvailable,
	}, nil
}

type completeRequest struct {
	TempToken  string `json:"temp_token"`
	UserID     int64  `json:"user_id"`
	TOTPCode   string `json:"totp_code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

type completeResponse struct {
	User *session.User `json:"user"`
}

// CompleteTwoFactor submits one verification code for a pending challenge.
// Exactly one of totpCode/backupCode is sent; the empty one is omitted from
// the body entirely.
func (c *Client) CompleteTwoFactor(ctx context.Context, tempToken string, userID int64, method flows.VerificationMethod, code string) (*session.User, error) {
	req := completeRequest{TempToken: tempToken, UserID: userID}
	switch method {
	case flows.MethodBackup:
		req.BackupCode = code
	default:
		req.TOTPCode = code
	}

	var out completeResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/2fa-complete/", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type setupResponse struct {
	SecretKey   string `json:"secret_key"`
	QRCodeURI   string `json:"qr_code_uri"`
	QRCodeImage string `json:"qr_code_image"`
}

// SetupTwoFactor requests fresh provisioning material.
func (c *Client) SetupTwoFactor(ctx context.Context) (flows.TwoFactorSetup, error) {
	var out setupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/2fa/setup/", nil, &out); err != nil {
		return flows.TwoFactorSetup{}, err
	}
	return flows.TwoFactorSetup{
		SecretKey:   out.SecretKey,
		QRCodeURI:   out.QRCodeURI,
		QRCodeImage: out.QRCodeImage,
	}, nil
}

type enableRequest struct {
	TOTPCode string `json:"totp_code"`
}

type enableResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// EnableTwoFactor activates the pending setup and returns the one-time
// backup codes.
func (c *Client) EnableTwoFactor(ctx context.Context, totpCode string) ([]string, error) {
	var out enableResponse
	if err := c.do(ctx, http.MethodPost, "/auth/2fa/enable/", enableRequest{TOTPCode: totpCode}, &out); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

type disableRequest struct {
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// DisableTwoFactor deactivates the second factor. Exactly one of
// totpCode/backupCode accompanies the password.
func (c *Client) DisableTwoFactor(ctx context.Context, password, totpCode, backupCode string) error {
	req := disableRequest{Password: password, TOTPCode: totpCode, BackupCode: backupCode}
	var out messageResponse
	return c.do(ctx, http.MethodPost, "/auth/2fa/disable/", req, &out)
}

type statusResponse struct {
	IsEnabled         bool    `json:"is_enabled"`
	BackupTokensCount int     `json:"backup_tokens_count"`
	LastUsedAt        *string `json:"last_used_at"`
}

// TwoFactorStatus reads the account's two-factor state.
func (c *Client) TwoFactorStatus(ctx context.Context) (flows.TwoFactorStatus, error) {
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, "/auth/2fa/status/", nil, &out); err != nil {
		return flows.TwoFactorStatus{}, err
	}

	status := flows.TwoFactorStatus{
		Enabled:           out.IsEnabled,
		BackupTokensCount: out.BackupTokensCount,
	}
	if out.LastUsedAt != nil {
		if t, err := time.Parse(time.RFC3339, *out.LastUsedAt); err == nil {
			status.LastUsedAt = &t
		}
	}
	return status, nil
}

// Logout invalidates the backend session.
func (c *Client) Logout(ctx context.Context) error {
	var out messageResponse
	return c.do(ctx, http.MethodPost, "/auth/logout/", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.requestIDFor(ctx))
	if agent := c.userAgentFor(ctx); agent != "" {
		req.Header.Set("User-Agent", agent)
	}
	if ip := c.clientIP(ctx); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func (c *Client) requestIDFor(ctx context.Context) string {
	if id := c.requestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) userAgentFor(ctx context.Context) string {
	if agent := c.ctxAgent(ctx); agent != "" {
		return agent
	}
	return c.userAgent
}

type errorEnvelope struct {
	Message string         `json:"message"`
	Details *detailsObject `json:"details"`
}

type detailsObject struct {
	RateLimited       bool    `json:"rate_limited"`
	RemainingAttempts *int    `json:"remaining_attempts"`
	LockoutEndsAt     *string `json:"lockout_ends_at"`
	RateLimitMessage  string  `json:"rate_limit_message"`
}

func decodeError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status, Message: http.StatusText(status)}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	if env.Message != "" {
		apiErr.Message = env.Message
	}
	if env.Details != nil {
		details := &flows.RateLimitDetails{
			RateLimited:       env.Details.RateLimited,
			RemainingAttempts: env.Details.RemainingAttempts,
			Message:           env.Details.RateLimitMessage,
		}
		if env.Details.LockoutEndsAt != nil {
			if t, err := time.Parse(time.RFC3339, *env.Details.LockoutEndsAt); err == nil {
				details.LockoutEndsAt = &t
			}
		}
		apiErr.Details = details
	}
	return apiErr
}
