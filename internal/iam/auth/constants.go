// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultAccessTokenTTL is the fallback lifetime of an access token.
	// We keep it short (15m) to minimize the impact of a leaked token.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the fallback lifetime of a refresh token.
	// Long-lived (30 days) to provide a good user experience.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultRevocationTimeout bounds denylist writes during revocation so
	// that a degraded Redis can never block a logout flow.
	DefaultRevocationTimeout = 2 * time.Second

	// RevokedSentinel is the value stored under a denylisted token key.
	// Only the key's existence matters; the value is informational.
	RevokedSentinel = "revoked"
)
