// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
)

// # Test Doubles

// fakeRoleRepository serves roles from memory.
type fakeRoleRepository struct {
	rolesByUser map[string][]rbac.Role
	rolesByID   map[string]*rbac.Role
	err         error
}

func (fake *fakeRoleRepository) FindByID(_ context.Context, id string) (*rbac.Role, error) {
	if fake.err != nil {
		return nil, fake.err
	}
	role, ok := fake.rolesByID[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return role, nil
}

func (fake *fakeRoleRepository) FindActiveForUser(_ context.Context, userID string) ([]rbac.Role, error) {
	if fake.err != nil {
		return nil, fake.err
	}
	return fake.rolesByUser[userID], nil
}

// fakePrivilegeRepository serves privileges from memory.
type fakePrivilegeRepository struct {
	privilegesByRole map[string][]rbac.Privilege
	privilegesByID   map[string]*rbac.Privilege
	created          []rbac.Privilege
	assignments      map[string][]string // roleID -> privilegeIDs
	err              error
}

func newFakePrivilegeRepository() *fakePrivilegeRepository {
	return &fakePrivilegeRepository{
		privilegesByRole: map[string][]rbac.Privilege{},
		privilegesByID:   map[string]*rbac.Privilege{},
		assignments:      map[string][]string{},
	}
}

func (fake *fakePrivilegeRepository) FindActiveForRole(_ context.Context, roleID string) ([]rbac.Privilege, error) {
	if fake.err != nil {
		return nil, fake.err
	}
	return fake.privilegesByRole[roleID], nil
}

func (fake *fakePrivilegeRepository) FindByEntityAction(_ context.Context, entity, action string) (*rbac.Privilege, error) {
	if fake.err != nil {
		return nil, fake.err
	}
	for _, privilege := range fake.created {
		if privilege.Entity == entity && privilege.Action == action {
			found := privilege
			return &found, nil
		}
	}
	for _, privilege := range fake.privilegesByID {
		if privilege.Entity == entity && privilege.Action == action {
			return privilege, nil
		}
	}
	return nil, apperr.NotFound("Privilege")
}

func (fake *fakePrivilegeRepository) FindByID(_ context.Context, id string) (*rbac.Privilege, error) {
	if fake.err != nil {
		return nil, fake.err
	}
	privilege, ok := fake.privilegesByID[id]
	if !ok {
		return nil, apperr.NotFound("Privilege")
	}
	return privilege, nil
}

func (fake *fakePrivilegeRepository) List(_ context.Context, limit, offset int) ([]rbac.Privilege, int, error) {
	if fake.err != nil {
		return nil, 0, fake.err
	}
	all := make([]rbac.Privilege, 0, len(fake.privilegesByID))
	for _, privilege := range fake.privilegesByID {
		all = append(all, *privilege)
	}
	return all, len(all), nil
}

func (fake *fakePrivilegeRepository) Create(_ context.Context, privilege *rbac.Privilege) error {
	if fake.err != nil {
		return fake.err
	}
	fake.created = append(fake.created, *privilege)
	return nil
}

func (fake *fakePrivilegeRepository) AssignToRole(_ context.Context, privilegeID, roleID string) error {
	if fake.err != nil {
		return fake.err
	}
	fake.assignments[roleID] = append(fake.assignments[roleID], privilegeID)
	return nil
}

func (fake *fakePrivilegeRepository) RemoveFromRole(_ context.Context, privilegeID, roleID string) error {
	if fake.err != nil {
		return fake.err
	}
	kept := fake.assignments[roleID][:0]
	for _, id := range fake.assignments[roleID] {
		if id != privilegeID {
			kept = append(kept, id)
		}
	}
	fake.assignments[roleID] = kept
	return nil
}

// # Helpers

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newEngine(roles *fakeRoleRepository, privileges *fakePrivilegeRepository) *rbac.Engine {
	return rbac.NewEngine(roles, privileges, testLogger())
}

// # Decision Walk

/*
TestHasPrivilege_NilAndInactiveUsers verifies the pre-traversal denials.
*/
func TestHasPrivilege_NilAndInactiveUsers(t *testing.T) {
	engine := newEngine(&fakeRoleRepository{}, newFakePrivilegeRepository())
	ctx := context.Background()

	// 1. Nil user is denied outright.
	allowed, err := engine.HasPrivilege(ctx, nil, "sample:read")
	require.NoError(t, err)
	assert.False(t, allowed)

	// 2. Inactive user is denied before any role traversal.
	allowed, err = engine.HasPrivilege(ctx, &rbac.User{ID: "u1", IsActive: false}, "sample:read")
	require.NoError(t, err)
	assert.False(t, allowed)

	// 3. Soft-deleted user is denied even when flagged active.
	allowed, err = engine.HasPrivilege(ctx, &rbac.User{ID: "u1", IsActive: true, IsDeleted: true}, "sample:read")
	require.NoError(t, err)
	assert.False(t, allowed)
}

/*
TestHasPrivilege_SuperuserBypass verifies that a superuser is granted any
privilege string, even a malformed one, without touching the repositories.
*/
func TestHasPrivilege_SuperuserBypass(t *testing.T) {
	roleRepo := &fakeRoleRepository{err: errors.New("must not be called")}
	engine := newEngine(roleRepo, newFakePrivilegeRepository())

	// Superuser bypass short-circuits even an inactive account check ordering:
	// the superuser check runs first.
	superuser := &rbac.User{ID: "root", IsActive: true, IsSuperuser: true}

	for _, required := range []string{"sample:read", "not-a-privilege", ""} {
		allowed, err := engine.HasPrivilege(context.Background(), superuser, required)
		require.NoError(t, err)
		assert.True(t, allowed, "superuser must be granted %q", required)
	}
}

/*
TestHasPrivilege_NoRoles verifies the deny-by-default outcome for a user
with no active roles.
*/
func TestHasPrivilege_NoRoles(t *testing.T) {
	roleRepo := &fakeRoleRepository{rolesByUser: map[string][]rbac.Role{}}
	engine := newEngine(roleRepo, newFakePrivilegeRepository())

	allowed, err := engine.HasPrivilege(context.Background(), &rbac.User{ID: "u1", IsActive: true}, "sample:read")
	require.NoError(t, err)
	assert.False(t, allowed)
}

/*
TestHasPrivilege_AdminRole verifies the blanket-access role bypass.
*/
func TestHasPrivilege_AdminRole(t *testing.T) {
	roleRepo := &fakeRoleRepository{rolesByUser: map[string][]rbac.Role{
		"u1": {{ID: "r1", Name: "lab-admin", IsAdmin: true, IsActive: true}},
	}}
	privilegeRepo := newFakePrivilegeRepository()
	// The admin role grants without enumerating privileges: leave the
	// privilege repository empty on purpose.
	engine := newEngine(roleRepo, privilegeRepo)

	allowed, err := engine.HasPrivilege(context.Background(), &rbac.User{ID: "u1", IsActive: true}, "sample:read")
	require.NoError(t, err)
	assert.True(t, allowed)
}

/*
TestHasPrivilege_WildcardGrants verifies direct, resource-wildcard, and
global-wildcard grant paths through a regular role.
*/
func TestHasPrivilege_WildcardGrants(t *testing.T) {
	cases := []struct {
		name     string
		granted  string
		required string
		want     bool
	}{
		{"direct grant", "sample:read", "sample:read", true},
		{"resource wildcard", "sample:*", "sample:delete", true},
		{"global wildcard", "*", "report:read", true},
		{"global pair wildcard", "*:*", "report:read", true},
		{"wrong entity", "sample:*", "report:read", false},
		{"wrong action", "sample:read", "sample:update", false},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			roleRepo := &fakeRoleRepository{rolesByUser: map[string][]rbac.Role{
				"u1": {{ID: "r1", Name: "technician", IsActive: true}},
			}}
			privilegeRepo := newFakePrivilegeRepository()
			privilegeRepo.privilegesByRole["r1"] = []rbac.Privilege{{ID: "p1", Name: testCase.granted}}

			engine := newEngine(roleRepo, privilegeRepo)

			allowed, err := engine.HasPrivilege(context.Background(), &rbac.User{ID: "u1", IsActive: true}, testCase.required)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, allowed)
		})
	}
}

/*
TestHasPrivilege_RepositoryFailure verifies that store errors surface as
errors, never as silent denials.
*/
func TestHasPrivilege_RepositoryFailure(t *testing.T) {
	roleRepo := &fakeRoleRepository{err: errors.New("connection refused")}
	engine := newEngine(roleRepo, newFakePrivilegeRepository())

	allowed, err := engine.HasPrivilege(context.Background(), &rbac.User{ID: "u1", IsActive: true}, "sample:read")
	assert.Error(t, err)
	assert.False(t, allowed)
}

// # Privilege Administration

/*
TestCreatePrivilege verifies name validation and persistence.
*/
func TestCreatePrivilege(t *testing.T) {
	privilegeRepo := newFakePrivilegeRepository()
	engine := newEngine(&fakeRoleRepository{}, privilegeRepo)
	ctx := context.Background()

	// 1. Valid canonical name.
	privilege, err := engine.CreatePrivilege(ctx, "sample:read", "Read samples")
	require.NoError(t, err)
	assert.NotEmpty(t, privilege.ID)
	assert.Equal(t, "sample", privilege.Entity)
	assert.Equal(t, "read", privilege.Action)
	assert.Len(t, privilegeRepo.created, 1)

	// 2. Malformed names are rejected before any storage call.
	for _, malformed := range []string{"", "sample", "sample:", ":read", "a:b:c"} {
		_, err := engine.CreatePrivilege(ctx, malformed, "")
		assert.Error(t, err, "expected validation error for %q", malformed)
	}
	assert.Len(t, privilegeRepo.created, 1)
}

/*
TestCreateCrudPrivileges verifies stable ordering and idempotency of the
CRUD privilege bootstrap.
*/
func TestCreateCrudPrivileges(t *testing.T) {
	privilegeRepo := newFakePrivilegeRepository()
	engine := newEngine(&fakeRoleRepository{}, privilegeRepo)
	ctx := context.Background()

	// 1. First run creates all four in [create, read, update, delete] order.
	privileges, err := engine.CreateCrudPrivileges(ctx, "sample")
	require.NoError(t, err)
	require.Len(t, privileges, 4)
	assert.Equal(t, "sample:create", privileges[0].Name)
	assert.Equal(t, "sample:read", privileges[1].Name)
	assert.Equal(t, "sample:update", privileges[2].Name)
	assert.Equal(t, "sample:delete", privileges[3].Name)
	assert.Len(t, privilegeRepo.created, 4)

	// 2. Second run finds everything and creates nothing.
	again, err := engine.CreateCrudPrivileges(ctx, "sample")
	require.NoError(t, err)
	require.Len(t, again, 4)
	assert.Len(t, privilegeRepo.created, 4)

	// 3. Existing privileges keep their original IDs.
	for i := range privileges {
		assert.Equal(t, privileges[i].ID, again[i].ID)
	}
}

/*
TestCreateCrudPrivileges_Canonicalization verifies that entity names are
slugged before privilege names are formed.
*/
func TestCreateCrudPrivileges_Canonicalization(t *testing.T) {
	privilegeRepo := newFakePrivilegeRepository()
	engine := newEngine(&fakeRoleRepository{}, privilegeRepo)

	privileges, err := engine.CreateCrudPrivileges(context.Background(), "Lab Report")
	require.NoError(t, err)
	require.Len(t, privileges, 4)
	assert.Equal(t, "lab-report:create", privileges[0].Name)

	// Blank or symbol-only entity names are rejected.
	_, err = engine.CreateCrudPrivileges(context.Background(), "   ")
	assert.Error(t, err)
}

/*
TestAssignAndRemovePrivilege verifies role-grant administration against
missing and present entities.
*/
func TestAssignAndRemovePrivilege(t *testing.T) {
	roleRepo := &fakeRoleRepository{rolesByID: map[string]*rbac.Role{
		"r1": {ID: "r1", Name: "technician", IsActive: true},
	}}
	privilegeRepo := newFakePrivilegeRepository()
	privilegeRepo.privilegesByID["p1"] = &rbac.Privilege{ID: "p1", Name: "sample:read", Entity: "sample", Action: "read"}

	engine := newEngine(roleRepo, privilegeRepo)
	ctx := context.Background()

	// 1. Granting an existing privilege to an existing role succeeds.
	privilege, err := engine.AssignPrivilegeToRole(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "sample:read", privilege.Name)
	assert.Contains(t, privilegeRepo.assignments["r1"], "p1")

	// 2. Unknown privilege or role surfaces NotFound.
	_, err = engine.AssignPrivilegeToRole(ctx, "missing", "r1")
	assert.True(t, apperr.IsNotFound(err))

	_, err = engine.AssignPrivilegeToRole(ctx, "p1", "missing")
	assert.True(t, apperr.IsNotFound(err))

	// 3. Removal withdraws the grant.
	_, err = engine.RemovePrivilegeFromRole(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.NotContains(t, privilegeRepo.assignments["r1"], "p1")
}
