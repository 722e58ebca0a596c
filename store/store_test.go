package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))

	u := &User{Email: "  Test@Example.com ", PasswordHash: "hash"}
	require.NoError(t, s.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	require.Equal(t, "test@example.com", u.Email)

	err := s.Create(ctx, &User{Email: "test@example.com", PasswordHash: "other"})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	found, err := s.FindByEmail(ctx, "TEST@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
	require.Equal(t, "hash", found.PasswordHash)

	exp := time.Date(2025, 1, 1, 12, 10, 0, 0, time.UTC)
	found.ResetToken = "token"
	found.ResetTokenExpiration = &exp
	require.NoError(t, s.Update(ctx, found))

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "token", byID.ResetToken)
	require.NotNil(t, byID.ResetTokenExpiration)
	require.True(t, exp.Equal(*byID.ResetTokenExpiration))

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.Update(ctx, &User{ID: "missing", Email: "x@example.com"}), ErrNotFound)

	revoked, err := s.SessionRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.RevokeSession(ctx, "sid-1", time.Now().Add(time.Hour)))
	revoked, err = s.SessionRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.True(t, revoked)

	require.NoError(t, s.RevokeSession(ctx, "sid-2", time.Now().Add(-time.Minute)))
	revoked, err = s.SessionRevoked(ctx, "sid-2")
	require.NoError(t, err)
	require.False(t, revoked, "already expired sessions need no record")
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := &User{Email: "a@example.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))

	found, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	found.PasswordHash = "mutated"

	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "h", again.PasswordHash)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(rdb)
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, s)
}

func TestRedisStore_EmailChangeMovesIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	u := &User{Email: "old@example.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))

	u.Email = "new@example.com"
	require.NoError(t, s.Update(ctx, u))

	_, err := s.FindByEmail(ctx, "old@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	found, err := s.FindByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
}

func TestMemoryStore_RevocationExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemory()
	s.now = func() time.Time { return now }

	require.NoError(t, s.RevokeSession(ctx, "sid", now.Add(time.Minute)))
	revoked, err := s.SessionRevoked(ctx, "sid")
	require.NoError(t, err)
	require.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = s.SessionRevoked(ctx, "sid")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.RevokeSession(ctx, "other", now.Add(time.Minute)))
	require.NotContains(t, s.revoked, "sid")
}

func TestRedisStore_RevocationUsesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	require.NoError(t, s.RevokeSession(ctx, "sid", time.Now().Add(time.Hour)))
	require.True(t, mr.Exists(revokedKey("sid")))
	require.InDelta(t, time.Hour.Seconds(), mr.TTL(revokedKey("sid")).Seconds(), 5)

	mr.FastForward(2 * time.Hour)
	revoked, err := s.SessionRevoked(ctx, "sid")
	require.NoError(t, err)
	require.False(t, revoked)
}

// failingWrites makes plain SET commands and every pipeline fail.
type failingWrites struct{}

var errWriteFailed = errors.New("write failed")

func (failingWrites) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingWrites) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "set" {
			cmd.SetErr(errWriteFailed)
			return errWriteFailed
		}
		return next(ctx, cmd)
	}
}

func (failingWrites) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error { return errWriteFailed }
}

var _ redis.Hook = failingWrites{}

func TestRedisStore_FailedWritesReleaseEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	u := &User{Email: "old@example.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))

	broken := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broken.AddHook(failingWrites{})
	failing := NewRedis(broken)

	u.Email = "new@example.com"
	require.ErrorIs(t, failing.Update(ctx, u), errWriteFailed)
	require.False(t, mr.Exists(userEmailKey("new@example.com")))
	require.True(t, mr.Exists(userEmailKey("old@example.com")))

	err := failing.Create(ctx, &User{Email: "fresh@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, errWriteFailed)
	require.False(t, mr.Exists(userEmailKey("fresh@example.com")))

	// the index can be claimed again once the failure is gone
	u.Email = "new@example.com"
	require.NoError(t, s.Update(ctx, u))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "memory://")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.IsType(t, &Redis{}, s)
	require.NoError(t, s.Migrate(ctx))

	_, err = Open(ctx, "mysql://localhost/db")
	require.ErrorIs(t, err, ErrUnsupportedURL)
}
