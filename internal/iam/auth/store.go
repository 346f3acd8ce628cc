// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth

import (
	"context"
	"time"
)

// # Revocation Data Access

// RevocationStore is the TTL-capable denylist for tokens invalidated before
// their natural expiry.
//
// # Degradation Semantics
//
// Writes degrade: an unreachable store must surface the error so the caller
// can log it, but revocation remains best-effort and never blocks logout.
// Reads fail closed: an unreachable store cannot prove a token is NOT
// revoked, so lookup errors must cause token rejection upstream.
type RevocationStore interface {

	/*
		SetWithTTL records a revoked token until its natural expiry, after
		which the record disappears on its own (bounding storage growth).

		Parameters:
		  - context: context.Context
		  - key: string (stable hash of the exact token string)
		  - ttl: time.Duration (remaining life of the token)

		Returns:
		  - error: Storage failures (caller logs and continues)
	*/
	SetWithTTL(context context.Context, key string, ttl time.Duration) error

	/*
		Exists reports whether the key is present in the denylist.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - bool: True if the token has been revoked
		  - error: Storage failures (caller must fail closed)
	*/
	Exists(context context.Context, key string) (bool, error)
}
