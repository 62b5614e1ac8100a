package authflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/Keralin/authflow/internal/api"
	"github.com/Keralin/authflow/internal/flows"
	"github.com/Keralin/authflow/internal/resource"
	"github.com/Keralin/authflow/session"
)

// Client defines a public type used by authflow APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config Config

	// mu serializes every public operation. The client models a single
	// interactive login surface, so one mutation is in flight at a time;
	// readers take the same lock and return copies.
	mu                 sync.Mutex
	state              flows.ChallengeState
	method             flows.VerificationMethod
	rate               flows.RateLimitState
	stage              flows.SettingsStage
	setup              *flows.TwoFactorSetup
	pendingBackupCodes []string

	store     *session.Store
	transport *resource.Handle[*api.Client]
	audit     *auditDispatcher
	metrics   *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// metricIncInt adapts metricInc to the flow dependency shape, which carries
// metric identifiers as plain ints.
func (c *Client) metricIncInt(id int) {
	c.metricInc(MetricID(id))
}

// transportClient resolves the lazily initialized HTTP transport. The first
// caller pays the initialization cost; a memoized failure surfaces as
// ErrClientNotReady on every subsequent call.
func (c *Client) transportClient(ctx context.Context) (*api.Client, error) {
	if c == nil || c.transport == nil {
		return nil, ErrClientNotReady
	}
	transport, err := c.transport.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientNotReady, err)
	}
	return transport, nil
}

// ready rejects clients that did not come out of Build. The zero value fails
// every operation with ErrClientNotReady instead of panicking on the nil
// session store.
func (c *Client) ready() error {
	if c == nil || c.store == nil {
		return ErrClientNotReady
	}
	return nil
}
