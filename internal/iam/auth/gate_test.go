// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrace/labtrace/internal/iam/activity"
	"github.com/labtrace/labtrace/internal/iam/auth"
	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
)

// # Test Doubles

// grantTable is a minimal role+privilege store: each user maps straight to a
// list of granted privilege names through a single synthetic role.
type grantTable struct {
	grantsByUser map[string][]string
}

func (table *grantTable) FindByID(_ context.Context, id string) (*rbac.Role, error) {
	return nil, apperr.NotFound("Role")
}

func (table *grantTable) FindActiveForUser(_ context.Context, userID string) ([]rbac.Role, error) {
	if len(table.grantsByUser[userID]) == 0 {
		return nil, nil
	}
	return []rbac.Role{{ID: "role-" + userID, Name: "synthetic", IsActive: true}}, nil
}

func (table *grantTable) FindActiveForRole(_ context.Context, roleID string) ([]rbac.Privilege, error) {
	userID := roleID[len("role-"):]
	privileges := make([]rbac.Privilege, 0, len(table.grantsByUser[userID]))
	for _, name := range table.grantsByUser[userID] {
		privileges = append(privileges, rbac.Privilege{ID: name, Name: name})
	}
	return privileges, nil
}

func (table *grantTable) FindByEntityAction(_ context.Context, entity, action string) (*rbac.Privilege, error) {
	return nil, apperr.NotFound("Privilege")
}

func (table *grantTable) FindByIDPrivilege(_ context.Context, id string) (*rbac.Privilege, error) {
	return nil, apperr.NotFound("Privilege")
}

func (table *grantTable) List(_ context.Context, limit, offset int) ([]rbac.Privilege, int, error) {
	return nil, 0, nil
}

func (table *grantTable) Create(_ context.Context, privilege *rbac.Privilege) error { return nil }

func (table *grantTable) AssignToRole(_ context.Context, privilegeID, roleID string) error {
	return nil
}

func (table *grantTable) RemoveFromRole(_ context.Context, privilegeID, roleID string) error {
	return nil
}

// privilegeView adapts grantTable to the privilege repository contract,
// where FindByID returns privileges rather than roles.
type privilegeView struct{ *grantTable }

func (view privilegeView) FindByID(ctx context.Context, id string) (*rbac.Privilege, error) {
	return view.grantTable.FindByIDPrivilege(ctx, id)
}

// # Helpers

type gateFixture struct {
	gate    *auth.Gate
	service *auth.Service
	users   *fakeUserRepository
}

func newGateFixture(t *testing.T, grants map[string][]string, users ...*rbac.User) *gateFixture {
	t.Helper()

	userRepo := newFakeUserRepository(users...)
	service := newTestService(t, newFakeRevocationStore(), userRepo)

	table := &grantTable{grantsByUser: grants}
	engine := rbac.NewEngine(table, privilegeView{table}, testLogger())

	return &gateFixture{
		gate:    auth.NewGate(service, userRepo, engine, activity.NopRecorder{}, testLogger()),
		service: service,
		users:   userRepo,
	}
}

func bearer(token string) string { return "Bearer " + token }

// # Authentication

/*
TestGate_SchemeValidation verifies rejection of missing or malformed
Authorization headers.
*/
func TestGate_SchemeValidation(t *testing.T) {
	fixture := newGateFixture(t, nil)
	ctx := context.Background()

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "sometoken"} {
		_, err := fixture.gate.Authorize(ctx, header)
		appError := apperr.As(err)
		require.NotNil(t, appError, "header %q must be rejected", header)
		assert.Equal(t, 401, appError.HTTPStatus)
	}
}

/*
TestGate_SchemeCaseInsensitive verifies that the bearer scheme comparison
follows RFC 7235 case-insensitivity.
*/
func TestGate_SchemeCaseInsensitive(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	fixture := newGateFixture(t, nil, user)

	token, _, err := fixture.service.IssueAccessToken(user.ID)
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		resolved, err := fixture.gate.Authorize(context.Background(), scheme+" "+token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
	}
}

/*
TestGate_AuthenticationOnly verifies that an empty privilege list grants on
authentication alone.
*/
func TestGate_AuthenticationOnly(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	fixture := newGateFixture(t, nil, user)

	token, _, err := fixture.service.IssueAccessToken(user.ID)
	require.NoError(t, err)

	resolved, err := fixture.gate.Authorize(context.Background(), bearer(token))
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

/*
TestGate_RefreshTokenRejected verifies that refresh tokens cannot be used
as request credentials.
*/
func TestGate_RefreshTokenRejected(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	fixture := newGateFixture(t, nil, user)

	refreshToken, err := fixture.service.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	_, err = fixture.gate.Authorize(context.Background(), bearer(refreshToken))
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
}

/*
TestGate_UnknownSubject verifies that a token for a vanished account fails
with the same status as a bad token.
*/
func TestGate_UnknownSubject(t *testing.T) {
	fixture := newGateFixture(t, nil) // no users registered

	token, _, err := fixture.service.IssueAccessToken("ghost")
	require.NoError(t, err)

	_, err = fixture.gate.Authorize(context.Background(), bearer(token))
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
	assert.Equal(t, "Invalid or expired token", appError.Message)
}

/*
TestGate_RevokedToken verifies that the gate honors the denylist.
*/
func TestGate_RevokedToken(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	fixture := newGateFixture(t, nil, user)
	ctx := context.Background()

	token, _, err := fixture.service.IssueAccessToken(user.ID)
	require.NoError(t, err)

	fixture.service.Revoke(ctx, token)

	_, err = fixture.gate.Authorize(ctx, bearer(token))
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 401, appError.HTTPStatus)
}

// # Privilege Enforcement

/*
TestGate_PrivilegeGranted verifies the pass-through when every required
privilege is held.
*/
func TestGate_PrivilegeGranted(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	grants := map[string][]string{"user-1": {"sample:read", "report:*"}}
	fixture := newGateFixture(t, grants, user)

	token, _, err := fixture.service.IssueAccessToken(user.ID)
	require.NoError(t, err)

	resolved, err := fixture.gate.Authorize(context.Background(), bearer(token), "sample:read", "report:create")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

/*
TestGate_ForbiddenListsAllMissing verifies that the denial names every
missing privilege, not just the first.
*/
func TestGate_ForbiddenListsAllMissing(t *testing.T) {
	user := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	grants := map[string][]string{"user-1": {"sample:read"}}
	fixture := newGateFixture(t, grants, user)

	token, _, err := fixture.service.IssueAccessToken(user.ID)
	require.NoError(t, err)

	_, err = fixture.gate.Authorize(context.Background(), bearer(token),
		"sample:read", "sample:delete", "report:create")

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 403, appError.HTTPStatus)
	assert.Contains(t, appError.Message, "sample:delete")
	assert.Contains(t, appError.Message, "report:create")
	assert.NotContains(t, appError.Message, "sample:read")
}

/*
TestGate_SuperuserPassesEverything verifies the superuser bypass flows
through the gate.
*/
func TestGate_SuperuserPassesEverything(t *testing.T) {
	root := &rbac.User{ID: "root", Email: "root@labtrace.io", IsActive: true, IsSuperuser: true}
	fixture := newGateFixture(t, nil, root)

	token, _, err := fixture.service.IssueAccessToken(root.ID)
	require.NoError(t, err)

	resolved, err := fixture.gate.Authorize(context.Background(), bearer(token), "sample:delete", "report:purge")
	require.NoError(t, err)
	assert.Equal(t, root.ID, resolved.ID)
}
