// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

// Package activity defines the audit-event hook fired by the IAM core.
//
// # Architecture
//
// The recorder is always an injected collaborator — never ambient global
// state — so that the token service and authorization gate stay testable in
// isolation. Production wiring uses the slog-backed recorder; tests inject
// an in-memory capture.
package activity

import (
	"context"
	"log/slog"
)

// # Event Types

const (
	EventLoginSuccess = "USER_LOGIN_SUCCESS"
	EventLoginFailure = "USER_LOGIN_FAILURE"
	EventAuthzDenied  = "AUTHORIZATION_DENIED"
	EventTokenRevoked = "TOKEN_REVOKED"
)

// Event is a single auditable occurrence inside the IAM core.
type Event struct {
	// Type is one of the Event* constants.
	Type string

	// ActorID is the acting user's ID, when known.
	ActorID string

	// ActorEmail is the acting (or attempted) identity, when known.
	ActorEmail string

	// Detail carries event-specific context (e.g. missing privilege names).
	Detail string
}

// Recorder receives IAM audit events.
//
// Implementations must be safe for concurrent use and must never block the
// calling request path on downstream failures.
type Recorder interface {
	Record(context context.Context, event Event)
}

// # Structured-Log Recorder

// SlogRecorder emits audit events as structured log entries.
type SlogRecorder struct {
	log *slog.Logger
}

// NewSlogRecorder creates a Recorder backed by the given structured logger.
func NewSlogRecorder(log *slog.Logger) *SlogRecorder {
	return &SlogRecorder{log: log}
}

// Record implements [Recorder].
func (recorder *SlogRecorder) Record(context context.Context, event Event) {
	recorder.log.InfoContext(context, "iam_activity",
		slog.String("event_type", event.Type),
		slog.String("actor_id", event.ActorID),
		slog.String("actor_email", event.ActorEmail),
		slog.String("detail", event.Detail),
	)
}

// # No-op Recorder

// NopRecorder discards every event. Useful for wiring surfaces that must
// not produce audit noise (e.g. health checks).
type NopRecorder struct{}

// Record implements [Recorder].
func (NopRecorder) Record(context.Context, Event) {}
