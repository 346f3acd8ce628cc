// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithAuthUser returns a new context with the authorized user attached.
func WithAuthUser(ctx context.Context, user *rbac.User) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetAuthUser retrieves the authorized [*rbac.User] from the [context.Context].
// Returns nil for anonymous requests.
func GetAuthUser(ctx context.Context) *rbac.User {
	user, ok := ctx.Value(ctxkey.KeyUser).(*rbac.User)
	if !ok {
		return nil
	}
	return user
}

/*
User extracts the authorized user from the request context.

Returns nil if the request is not authenticated.
*/
func User(request *http.Request) *rbac.User {
	return GetAuthUser(request.Context())
}

/*
RequiredUser ensures the request is authorized and returns the user entity.

Returns:
  - *rbac.User: The authorized user
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredUser(request *http.Request) (*rbac.User, error) {

	// Get the authorized user
	user := GetAuthUser(request.Context())

	// If the request is not authenticated, return an error
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return user, nil
}
