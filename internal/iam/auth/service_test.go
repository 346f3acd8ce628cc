// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrace/labtrace/internal/iam/activity"
	"github.com/labtrace/labtrace/internal/iam/auth"
	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/sec"
)

// # Test Doubles

// fakeRevocationStore is an in-memory denylist with injectable failures.
type fakeRevocationStore struct {
	entries   map[string]time.Duration
	setErr    error
	existsErr error
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{entries: map[string]time.Duration{}}
}

func (store *fakeRevocationStore) SetWithTTL(_ context.Context, key string, ttl time.Duration) error {
	if store.setErr != nil {
		return store.setErr
	}
	store.entries[key] = ttl
	return nil
}

func (store *fakeRevocationStore) Exists(_ context.Context, key string) (bool, error) {
	if store.existsErr != nil {
		return false, store.existsErr
	}
	_, found := store.entries[key]
	return found, nil
}

// fakeUserRepository serves accounts from memory.
type fakeUserRepository struct {
	usersByID    map[string]*rbac.User
	usersByEmail map[string]*rbac.User
	created      []*rbac.User
}

func newFakeUserRepository(users ...*rbac.User) *fakeUserRepository {
	fake := &fakeUserRepository{
		usersByID:    map[string]*rbac.User{},
		usersByEmail: map[string]*rbac.User{},
	}
	for _, user := range users {
		fake.usersByID[user.ID] = user
		fake.usersByEmail[user.Email] = user
	}
	return fake
}

func (fake *fakeUserRepository) FindByID(_ context.Context, id string) (*rbac.User, error) {
	user, ok := fake.usersByID[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (fake *fakeUserRepository) FindByEmail(_ context.Context, email string) (*rbac.User, error) {
	user, ok := fake.usersByEmail[email]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (fake *fakeUserRepository) Create(_ context.Context, user *rbac.User) error {
	if _, exists := fake.usersByEmail[user.Email]; exists {
		return apperr.Conflict("Email is already registered")
	}
	fake.usersByID[user.ID] = user
	fake.usersByEmail[user.Email] = user
	fake.created = append(fake.created, user)
	return nil
}

func (fake *fakeUserRepository) Update(_ context.Context, user *rbac.User) error {
	fake.usersByID[user.ID] = user
	return nil
}

func (fake *fakeUserRepository) SoftDelete(_ context.Context, id string) error {
	delete(fake.usersByID, id)
	return nil
}

// # Helpers

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCodec(t *testing.T) *sec.TokenCodec {
	t.Helper()
	codec, err := sec.NewTokenCodec("test-secret-at-least-32-bytes-long!!", "labtrace.io", "labtrace-api")
	require.NoError(t, err)
	return codec
}

func newTestService(t *testing.T, store auth.RevocationStore, users rbac.UserRepository) *auth.Service {
	t.Helper()
	return auth.NewService(newTestCodec(t), store, users, activity.NopRecorder{}, auth.ServiceConfig{}, testLogger())
}

// # Issuance & Validation

/*
TestService_IssueAndValidate verifies the access token round trip.
*/
func TestService_IssueAndValidate(t *testing.T) {
	service := newTestService(t, newFakeRevocationStore(), newFakeUserRepository())
	ctx := context.Background()

	token, expiresAt, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultAccessTokenTTL), expiresAt, 5*time.Second)

	claims, err := service.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.False(t, claims.IsRefresh())
}

/*
TestService_IssueTokenPair verifies the shape of a fresh credential pair.
*/
func TestService_IssueTokenPair(t *testing.T) {
	service := newTestService(t, newFakeRevocationStore(), newFakeUserRepository())

	pair, err := service.IssueTokenPair("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	// The refresh half carries the refresh marker; the access half does not.
	claims, err := service.Validate(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, claims.IsRefresh())
}

/*
TestService_Validate_Garbage verifies rejection of undecodable tokens.
*/
func TestService_Validate_Garbage(t *testing.T) {
	service := newTestService(t, newFakeRevocationStore(), newFakeUserRepository())

	for _, bad := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := service.Validate(context.Background(), bad)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	}
}

/*
TestService_Validate_WrongSecret verifies that tokens signed with a foreign
key are rejected.
*/
func TestService_Validate_WrongSecret(t *testing.T) {
	service := newTestService(t, newFakeRevocationStore(), newFakeUserRepository())

	foreignCodec, err := sec.NewTokenCodec("some-entirely-different-secret-key!!", "labtrace.io", "labtrace-api")
	require.NoError(t, err)
	foreignToken, _, err := foreignCodec.Sign("user-1", "", time.Minute)
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), foreignToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

// # Revocation

/*
TestService_RevokeThenValidate verifies that a revoked token is rejected
even though its signature and expiry are still good.
*/
func TestService_RevokeThenValidate(t *testing.T) {
	store := newFakeRevocationStore()
	service := newTestService(t, store, newFakeUserRepository())
	ctx := context.Background()

	token, _, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)

	// 1. Valid before revocation.
	_, err = service.Validate(ctx, token)
	require.NoError(t, err)

	// 2. Revoked: denylisted under its hash with a positive TTL.
	service.Revoke(ctx, token)
	require.Len(t, store.entries, 1)
	ttl, found := store.entries[sec.HashToken(token)]
	require.True(t, found)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, auth.DefaultAccessTokenTTL)

	// 3. Rejected after revocation.
	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

/*
TestService_Revoke_BestEffort verifies that revocation never propagates
failures: bad tokens and denylist write errors are swallowed.
*/
func TestService_Revoke_BestEffort(t *testing.T) {
	store := newFakeRevocationStore()
	store.setErr = errors.New("redis down")
	service := newTestService(t, store, newFakeUserRepository())
	ctx := context.Background()

	// 1. Garbage token: silent no-op.
	service.Revoke(ctx, "not-a-jwt")
	assert.Empty(t, store.entries)

	// 2. Write failure on a good token: logged and swallowed.
	token, _, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)
	service.Revoke(ctx, token)
	assert.Empty(t, store.entries)
}

/*
TestService_Validate_FailsClosed verifies that an unreachable denylist
rejects tokens rather than letting possibly-revoked ones through.
*/
func TestService_Validate_FailsClosed(t *testing.T) {
	store := newFakeRevocationStore()
	service := newTestService(t, store, newFakeUserRepository())

	token, _, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)

	store.existsErr = errors.New("redis down")

	_, err = service.Validate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

// # Refresh

/*
TestService_Refresh verifies the refresh exchange and its rejection paths.
*/
func TestService_Refresh(t *testing.T) {
	activeUser := &rbac.User{ID: "user-1", Email: "tech@labtrace.io", IsActive: true}
	users := newFakeUserRepository(activeUser)
	store := newFakeRevocationStore()
	service := newTestService(t, store, users)
	ctx := context.Background()

	pair, err := service.IssueTokenPair(activeUser.ID)
	require.NoError(t, err)

	// 1. A valid refresh token yields a fresh pair.
	fresh, err := service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
	assert.NotEmpty(t, fresh.RefreshToken)

	// 2. The presented refresh token is NOT rotated: it remains valid.
	_, err = service.Validate(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	// 3. Access tokens are not accepted for refresh.
	_, err = service.Refresh(ctx, pair.AccessToken)
	assert.Error(t, err)

	// 4. A revoked refresh token is rejected.
	service.Revoke(ctx, pair.RefreshToken)
	_, err = service.Refresh(ctx, pair.RefreshToken)
	assert.Error(t, err)
}

/*
TestService_Refresh_InactiveUser verifies the standing re-check at
refresh time.
*/
func TestService_Refresh_InactiveUser(t *testing.T) {
	inactiveUser := &rbac.User{ID: "user-2", Email: "gone@labtrace.io", IsActive: false}
	users := newFakeUserRepository(inactiveUser)
	service := newTestService(t, newFakeRevocationStore(), users)

	pair, err := service.IssueTokenPair(inactiveUser.ID)
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), pair.RefreshToken)
	assert.Error(t, err)

	// Unknown subject behaves the same.
	strangerPair, err := service.IssueTokenPair("no-such-user")
	require.NoError(t, err)
	_, err = service.Refresh(context.Background(), strangerPair.RefreshToken)
	assert.Error(t, err)
}

// # Credentials

/*
TestService_LoginAndRegister verifies the credential flow end to end
against the in-memory account store.
*/
func TestService_LoginAndRegister(t *testing.T) {
	users := newFakeUserRepository()
	service := newTestService(t, newFakeRevocationStore(), users)
	ctx := context.Background()

	// 1. Register a new account.
	user, err := service.Register(ctx, auth.RegisterInput{
		Email:    "tech@labtrace.io",
		Password: "correct-horse-battery",
		FullName: "Lab Tech",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct-horse-battery", user.PasswordHash)

	// 2. Login with the right password succeeds.
	pair, loggedIn, err := service.Login(ctx, "tech@labtrace.io", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, pair.AccessToken)

	// 3. Wrong password and unknown email fail with the same generic error.
	_, _, wrongPassErr := service.Login(ctx, "tech@labtrace.io", "nope")
	_, _, unknownErr := service.Login(ctx, "ghost@labtrace.io", "nope")
	require.Error(t, wrongPassErr)
	require.Error(t, unknownErr)
	assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())

	// 4. Duplicate registration is rejected.
	_, err = service.Register(ctx, auth.RegisterInput{Email: "tech@labtrace.io", Password: "whatever1"})
	assert.Error(t, err)
}
