// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labtrace/labtrace/internal/iam/activity"
	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/obs"
)

// # Authorization Gate

// Gate is the per-request authorization entry point.
//
// It combines the token [Service] and the rbac [Engine]: extract bearer
// token → validate → load user → resolve privileges → allow or deny. The
// gate is read-only; it mutates no state beyond what validation and lookups
// already perform.
//
// # Error Translation
//
// This is the only component that translates internal token errors into the
// two outward kinds. Every authentication failure — missing header, bad
// signature, expired or revoked token, unknown subject — surfaces as the
// same Unauthorized to avoid information leakage.
type Gate struct {
	tokenService   *Service
	userRepository rbac.UserRepository
	engine         *rbac.Engine
	recorder       activity.Recorder
	log            *slog.Logger
}

// NewGate constructs a new [Gate] with its collaborators.
func NewGate(
	tokenService *Service,
	userRepo rbac.UserRepository,
	engine *rbac.Engine,
	recorder activity.Recorder,
	log *slog.Logger,
) *Gate {
	return &Gate{
		tokenService:   tokenService,
		userRepository: userRepo,
		engine:         engine,
		recorder:       recorder,
		log:            log,
	}
}

/*
Authorize authenticates the Authorization header and enforces the required
privileges.

Description: With an empty privilege list, authentication alone suffices.
Otherwise every required privilege is resolved; the denial names ALL missing
privileges, not just the first.

Parameters:
  - context: context.Context
  - authorizationHeader: string (raw header value, "Bearer <token>")
  - requiredPrivileges: ...string

Returns:
  - *rbac.User: The authorized user
  - error: apperr.Unauthorized, apperr.Forbidden, or apperr.ServiceUnavailable
*/
func (gate *Gate) Authorize(context context.Context, authorizationHeader string, requiredPrivileges ...string) (*rbac.User, error) {

	// ── 1. Scheme Validation ──────────────────────────────────────────────
	token, ok := extractBearerToken(authorizationHeader)
	if !ok {
		obs.AuthzDecision("unauthenticated")
		return nil, apperr.Unauthorized("Authentication required")
	}

	// ── 2. Token Verification ─────────────────────────────────────────────
	claims, err := gate.tokenService.Validate(context, token)
	if err != nil {
		// Internal logs keep the invalid/revoked distinction; callers don't.
		gate.log.Debug("token_rejected", slog.Any("error", err))
		obs.AuthzDecision("unauthenticated")
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	// Refresh tokens are exchange credentials, never request credentials.
	if claims.IsRefresh() || claims.Subject == "" {
		obs.AuthzDecision("unauthenticated")
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	// ── 3. Subject Resolution ─────────────────────────────────────────────
	user, err := gate.userRepository.FindByID(context, claims.Subject)
	if err != nil {
		if apperr.IsNotFound(err) {
			// Same outward status as a bad token: do not leak whether the
			// user exists.
			obs.AuthzDecision("unauthenticated")
			return nil, apperr.Unauthorized("Invalid or expired token")
		}
		return nil, apperr.ServiceUnavailable("Identity store unavailable")
	}

	// ── 4. Privilege Resolution ───────────────────────────────────────────
	if len(requiredPrivileges) == 0 {
		obs.AuthzDecision("granted")
		return user, nil
	}

	missing := make([]string, 0, len(requiredPrivileges))
	for _, privilege := range requiredPrivileges {
		held, err := gate.engine.HasPrivilege(context, user, privilege)
		if err != nil {
			return nil, apperr.ServiceUnavailable("Authorization store unavailable")
		}
		if !held {
			missing = append(missing, privilege)
		}
	}

	if len(missing) > 0 {
		detail := strings.Join(missing, ", ")
		gate.recorder.Record(context, activity.Event{
			Type:       activity.EventAuthzDenied,
			ActorID:    user.ID,
			ActorEmail: user.Email,
			Detail:     detail,
		})
		obs.AuthzDecision("forbidden")
		return nil, apperr.Forbidden("Missing privileges: " + detail)
	}

	obs.AuthzDecision("granted")
	return user, nil
}

// extractBearerToken parses an Authorization header value.
//
// The scheme comparison is case-insensitive per RFC 7235; the token itself
// is returned verbatim.
func extractBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
