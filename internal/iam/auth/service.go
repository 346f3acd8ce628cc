// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

/*
Package auth implements the authentication token lifecycle for Labtrace.

It issues signed access/refresh token pairs, validates signatures and claims,
and revokes tokens ahead of their natural expiry via a TTL-capable denylist
(Redis). The package also hosts the authorization gate, the per-request entry
point combining token validation with RBAC privilege resolution.

Architecture:

  - Service: Token issuance, validation, revocation, refresh, login.
  - Gate: Per-request authorization (header → token → user → privileges).
  - RevocationStore: Abstracted denylist interface backed by Redis.

Internal failures stay typed ([ErrTokenInvalid], [ErrTokenRevoked]); only the
gate translates them into the outward Unauthorized/Forbidden kinds.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labtrace/labtrace/internal/iam/activity"
	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/obs"
	"github.com/labtrace/labtrace/internal/platform/sec"
	"github.com/labtrace/labtrace/pkg/uuid"
)

// # Contracts & Types

// Internal token failure kinds. Both surface upward as Unauthorized; the
// distinction exists only for logging and denylist hygiene.
var (
	// ErrTokenInvalid marks a malformed, tampered, or expired token.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrTokenRevoked marks a token present in the revocation denylist,
	// or one whose revocation status could not be proven (fail closed).
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// TokenCodec defines the contract for signing and verifying compact tokens.
//
// # Why an interface?
//
// Decoupling the service from [sec.TokenCodec] lets tests substitute codecs
// with different secrets to exercise tamper handling.
type TokenCodec interface {
	// Sign creates a signed token for the subject with the given type claim.
	Sign(subject, tokenType string, timeToLive time.Duration) (string, time.Time, error)

	// Verify checks the signature and temporal validity of a token string.
	Verify(tokenString string) (*sec.Claims, error)
}

// TokenPair is a freshly issued access/refresh credential set.
type TokenPair struct {
	AccessToken          string    `json:"access_token"`
	RefreshToken         string    `json:"refresh_token"`
	TokenType            string    `json:"token_type"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}

// ServiceConfig carries the tunable lifetimes for issued tokens.
type ServiceConfig struct {
	// AccessTokenTTL is the lifetime of issued access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of issued refresh tokens.
	RefreshTokenTTL time.Duration

	// RevocationTimeout bounds denylist writes during Revoke.
	RevocationTimeout time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (cfg ServiceConfig) withDefaults() ServiceConfig {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.RevocationTimeout <= 0 {
		cfg.RevocationTimeout = DefaultRevocationTimeout
	}
	return cfg
}

// Service implements the token lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to validation ordering,
// revocation semantics, or refresh logic must be reviewed by the security team.
type Service struct {
	codec           TokenCodec
	revocationStore RevocationStore
	userRepository  rbac.UserRepository
	recorder        activity.Recorder
	config          ServiceConfig
	log             *slog.Logger
}

// NewService constructs a new token [Service] with necessary dependencies.
func NewService(
	codec TokenCodec,
	revocationStore RevocationStore,
	userRepo rbac.UserRepository,
	recorder activity.Recorder,
	cfg ServiceConfig,
	log *slog.Logger,
) *Service {
	return &Service{
		codec:           codec,
		revocationStore: revocationStore,
		userRepository:  userRepo,
		recorder:        recorder,
		config:          cfg.withDefaults(),
		log:             log,
	}
}

// # Token Issuance

/*
IssueAccessToken builds a signed, short-lived access token for a user.

Description: The token carries sub/exp/iss/aud and no 'type' claim — the
absence of the claim is what marks it as an access token.

Parameters:
  - userID: string

Returns:
  - string: Compact signed token
  - time.Time: Expiry instant
  - error: Signing failures
*/
func (service *Service) IssueAccessToken(userID string) (string, time.Time, error) {
	token, expiresAt, err := service.codec.Sign(userID, "", service.config.AccessTokenTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	obs.TokenIssued("access")

	return token, expiresAt, nil
}

/*
IssueRefreshToken builds a signed, long-lived refresh token for a user.

Description: Same signing mechanism as access tokens, with 'type: refresh'
explicitly set and a lifetime of days rather than minutes.

Parameters:
  - userID: string

Returns:
  - string: Compact signed token
  - error: Signing failures
*/
func (service *Service) IssueRefreshToken(userID string) (string, error) {
	token, _, err := service.codec.Sign(userID, sec.TokenTypeRefresh, service.config.RefreshTokenTTL)
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	obs.TokenIssued("refresh")

	return token, nil
}

// IssueTokenPair issues a fresh access+refresh pair for the user.
func (service *Service) IssueTokenPair(userID string) (*TokenPair, error) {
	accessToken, expiresAt, err := service.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := service.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		TokenType:            "bearer",
		AccessTokenExpiresAt: expiresAt,
	}, nil
}

// # Token Validation

/*
Validate checks a token against the denylist, its signature, and its expiry.

Description: The revocation lookup runs first so known-bad tokens short-circuit
without touching the verification path. Both checks are mandatory; when both
would fail independently, revocation wins. An unreachable denylist fails
closed — it cannot prove a token is NOT revoked.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *sec.Claims: Verified claims
  - error: ErrTokenRevoked or ErrTokenInvalid
*/
func (service *Service) Validate(context context.Context, token string) (*sec.Claims, error) {

	// 1. Revocation check (fail closed on store unavailability)
	revoked, err := service.revocationStore.Exists(context, sec.HashToken(token))
	if err != nil {
		service.log.Warn("revocation_check_unavailable", slog.Any("error", err))
		return nil, ErrTokenRevoked
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	// 2. Signature + expiry verification
	claims, err := service.codec.Verify(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// # Token Revocation

/*
Revoke denylists a token for the remainder of its natural lifetime.

Description: Strictly best-effort. An undecodable token is already unusable
and is skipped silently; an already-expired token needs no record; a denylist
write failure is logged and swallowed so logout/rotation flows never block on
a degraded store. The write is bounded by the configured revocation timeout.

Parameters:
  - context: context.Context
  - token: string
*/
func (service *Service) Revoke(context context.Context, token string) {

	// Decode to read exp. Verification failure means the token can never
	// validate anyway — nothing to denylist.
	claims, err := service.codec.Verify(token)
	if err != nil {
		service.log.Debug("revocation_skipped_unusable_token", slog.Any("error", err))
		return
	}

	// Clamp: an expired token is rejected by the expiry check alone.
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return
	}

	writeCtx, cancel := contextWithTimeout(context, service.config.RevocationTimeout)
	defer cancel()

	if err := service.revocationStore.SetWithTTL(writeCtx, sec.HashToken(token), remaining); err != nil {
		// Degrade to best-effort: log, never block the caller's flow.
		service.log.Warn("token_revocation_skipped", slog.Any("error", err))
		obs.TokenRevocation("skipped")
		return
	}

	service.recorder.Record(context, activity.Event{
		Type:    activity.EventTokenRevoked,
		ActorID: claims.Subject,
	})
	obs.TokenRevocation("revoked")
}

// # Token Refresh

/*
Refresh exchanges a valid refresh token for a fresh access+refresh pair.

Description: Validates the token is unrevoked, well-formed, and carries
'type: refresh', then re-checks the subject user's standing. The presented
refresh token is NOT revoked by this operation — callers wanting single-use
refresh tokens revoke explicitly.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: Fresh credentials
  - error: apperr.Unauthorized or signing failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := service.Validate(context, refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Only tokens explicitly marked 'type: refresh' may be exchanged.
	if !claims.IsRefresh() || claims.Subject == "" {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	user, err := service.userRepository.FindByID(context, claims.Subject)
	if err != nil || !user.IsActive {
		return nil, apperr.Unauthorized("User not found or inactive")
	}

	return service.IssueTokenPair(user.ID)
}

// # Credential Authentication

/*
Login validates user credentials and issues a token pair.

Description: Verifies identity with a constant-time bcrypt comparison and
emits an audit event for both outcomes. The failure message is generic to
prevent account enumeration.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *TokenPair: Transport-ready credentials
  - *rbac.User: The authenticated user
  - error: apperr.Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, email, password string) (*TokenPair, *rbac.User, error) {
	user, err := service.userRepository.FindByEmail(context, email)

	// Unknown email, passwordless (SSO-only) account, or wrong password all
	// collapse into the same generic failure.
	if err != nil || !user.HasPassword() || !sec.CheckPasswordHash(password, user.PasswordHash) {
		service.recorder.Record(context, activity.Event{
			Type:       activity.EventLoginFailure,
			ActorEmail: email,
			Detail:     "Incorrect email or password",
		})
		return nil, nil, apperr.Unauthorized("Incorrect email or password")
	}

	pair, err := service.IssueTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	service.recorder.Record(context, activity.Event{
		Type:       activity.EventLoginSuccess,
		ActorID:    user.ID,
		ActorEmail: user.Email,
	})

	return pair, user, nil
}

// # Account Bootstrap

// RegisterInput holds the data required to enroll a new user account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

/*
Register hashes the password and persists a brand new user account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *rbac.User: Created entity
  - error: apperr.Conflict (if the email exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*rbac.User, error) {

	// Prevent storing plain-text passwords. Default cost balances security
	// and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &rbac.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FullName:     input.FullName,
		IsActive:     true,
		IsSuperuser:  false,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

// contextWithTimeout is a tiny indirection so Revoke stays readable with the
// shadowed 'context' parameter name used across this package.
func contextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
