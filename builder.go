package authflow

import (
	"context"
	"net/http"

	"github.com/Keralin/authflow/internal/api"
	"github.com/Keralin/authflow/internal/flows"
	"github.com/Keralin/authflow/internal/resource"
	"github.com/Keralin/authflow/session"
)

// Builder defines a public type used by authflow APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	httpClient *http.Client
	auditSink  AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
//
// WithBaseURL may return an error when input validation, dependency calls, or security checks fail.
// WithBaseURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.HTTP.BaseURL = baseURL
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient may return an error when input validation, dependency calls, or security checks fail.
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := b.config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config: cfg,
		state:  flows.StateCredentials,
		method: flows.MethodTOTP,
		stage:  flows.StageStatus,
	}

	// -------- SESSION STORE --------
	client.store = session.NewStore()

	// -------- TRANSPORT --------
	// The handle defers the jar and transport construction to the first
	// operation; a failed construction is memoized and surfaces as
	// ErrClientNotReady from then on.
	httpClient := b.httpClient
	client.transport = resource.NewHandle(func(context.Context) (*api.Client, error) {
		return api.New(api.Config{
			BaseURL:              cfg.HTTP.BaseURL,
			HTTPClient:           httpClient,
			RequestTimeout:       cfg.HTTP.RequestTimeout,
			UserAgent:            cfg.HTTP.UserAgent,
			RequestIDFromContext: requestIDFromContext,
			ClientIPFromContext:  clientIPFromContext,
			UserAgentFromContext: userAgentFromContext,
		})
	})

	// -------- AUDIT --------
	client.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	// -------- METRICS --------
	client.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return client, nil
}
