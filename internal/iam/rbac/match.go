// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac

import "strings"

// Matches reports whether a granted privilege name satisfies a required one.
//
// # Rules (evaluated in order)
//
//  1. Exact name equality.
//  2. Resource-level wildcard: a grant ending in ":*" matches any required
//     privilege whose entity segment (before the colon) is identical.
//  3. Global wildcard: a grant of "*" or "*:*" matches anything.
//
// Matching is case-sensitive and pure — no store access, no traversal state.
func Matches(requiredPrivilege, grantedPrivilege string) bool {

	// 1. Exact match
	if grantedPrivilege == requiredPrivilege {
		return true
	}

	// 2. Resource-level wildcard ("sample:*" covers "sample:read")
	if strings.HasSuffix(grantedPrivilege, wildcardActionSuffix) && grantedPrivilege != WildcardGlobalPair {
		grantedEntity := strings.SplitN(grantedPrivilege, ":", 2)[0]
		requiredEntity := strings.SplitN(requiredPrivilege, ":", 2)[0]
		return grantedEntity == requiredEntity
	}

	// 3. Global wildcard
	if grantedPrivilege == WildcardGlobal || grantedPrivilege == WildcardGlobalPair {
		return true
	}

	return false
}
