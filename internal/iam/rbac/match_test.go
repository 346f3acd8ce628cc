// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labtrace/labtrace/internal/iam/rbac"
)

/*
TestMatches_Exact verifies literal privilege comparison.
*/
func TestMatches_Exact(t *testing.T) {
	assert.True(t, rbac.Matches("sample:read", "sample:read"))

	// Different action, different entity, different case — all misses.
	assert.False(t, rbac.Matches("sample:read", "sample:write"))
	assert.False(t, rbac.Matches("sample:read", "report:read"))
	assert.False(t, rbac.Matches("sample:read", "Sample:read"))
}

/*
TestMatches_ResourceWildcard verifies that "entity:*" covers every action on
that entity and nothing else.
*/
func TestMatches_ResourceWildcard(t *testing.T) {
	assert.True(t, rbac.Matches("sample:read", "sample:*"))
	assert.True(t, rbac.Matches("sample:delete", "sample:*"))
	assert.True(t, rbac.Matches("sample:archive", "sample:*"))

	// Wrong entity never matches.
	assert.False(t, rbac.Matches("report:read", "sample:*"))
}

/*
TestMatches_GlobalWildcard verifies both spellings of the global wildcard.
*/
func TestMatches_GlobalWildcard(t *testing.T) {
	assert.True(t, rbac.Matches("sample:read", "*"))
	assert.True(t, rbac.Matches("anything:here", "*"))

	// "*:*" is a global wildcard, not a resource wildcard for entity "*".
	assert.True(t, rbac.Matches("sample:read", "*:*"))
	assert.True(t, rbac.Matches("anything:here", "*:*"))
}

/*
TestMatches_NoReverseWildcard verifies that wildcards only expand on the
granted side, never the required side.
*/
func TestMatches_NoReverseWildcard(t *testing.T) {
	assert.False(t, rbac.Matches("sample:*", "sample:read"))
	assert.False(t, rbac.Matches("*", "sample:read"))
	assert.False(t, rbac.Matches("*:*", "sample:read"))
}

/*
TestMatches_Malformed verifies that odd shapes fall through to plain string
comparison without panicking.
*/
func TestMatches_Malformed(t *testing.T) {
	assert.False(t, rbac.Matches("", "sample:read"))
	assert.False(t, rbac.Matches("sample:read", ""))
	assert.True(t, rbac.Matches("nocolon", "nocolon"))
	assert.False(t, rbac.Matches("nocolon", "other"))
}

/*
TestSplitPrivilegeName verifies canonical name parsing and its single
exception, the bare global wildcard.
*/
func TestSplitPrivilegeName(t *testing.T) {
	entity, action, err := rbac.SplitPrivilegeName("sample:read")
	assert.NoError(t, err)
	assert.Equal(t, "sample", entity)
	assert.Equal(t, "read", action)

	// The bare global wildcard is the only colon-free valid name.
	entity, action, err = rbac.SplitPrivilegeName("*")
	assert.NoError(t, err)
	assert.Equal(t, "*", entity)
	assert.Equal(t, "*", action)

	for _, malformed := range []string{"", "sample", "sample:", ":read", "a:b:c"} {
		_, _, err := rbac.SplitPrivilegeName(malformed)
		assert.Error(t, err, "expected error for %q", malformed)
	}
}
