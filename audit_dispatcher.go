package authflow

import (
	internalaudit "github.com/Keralin/authflow/internal/audit"
)

// auditDispatcher is the buffered async fan-out behind every emitAudit call.
// The implementation lives in internal/audit; this alias keeps the Client
// wiring in terms of the root config types.
type auditDispatcher = internalaudit.Dispatcher

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
