package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/victornm/hivemind/internal/errors"
	"github.com/victornm/hivemind/internal/session"
)

func TestService_CreateAndGet(t *testing.T) {
	s, _ := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{
		Username: "alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)

	got, err := s.GetSession(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Zero(t, got.Score)
	require.Zero(t, got.RoundsCompleted)
}

func TestService_GetUnknownSession(t *testing.T) {
	s, _ := makeService(t)

	_, err := s.GetSession(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_AddScore(t *testing.T) {
	s, _ := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{Username: "alice"})
	require.NoError(t, err)

	total, err := s.AddScore(context.Background(), created.SessionID, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)

	total, err = s.AddScore(context.Background(), created.SessionID, 5)
	require.NoError(t, err)
	require.Equal(t, int64(15), total)

	got, err := s.GetSession(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, int64(15), got.Score)
}

func TestService_IncrementRounds(t *testing.T) {
	s, _ := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{Username: "alice"})
	require.NoError(t, err)

	n, err := s.IncrementRounds(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.GetSession(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.RoundsCompleted)
}

func TestService_UsedPrompts(t *testing.T) {
	s, _ := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{Username: "alice"})
	require.NoError(t, err)

	used, err := s.UsedPromptIDs(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Empty(t, used)

	require.NoError(t, s.MarkPromptUsed(context.Background(), created.SessionID, 3))
	require.NoError(t, s.MarkPromptUsed(context.Background(), created.SessionID, 7))
	require.NoError(t, s.MarkPromptUsed(context.Background(), created.SessionID, 3))

	used, err = s.UsedPromptIDs(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, map[int]bool{3: true, 7: true}, used)
}

func TestService_SessionExpires(t *testing.T) {
	s, rs := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{Username: "alice"})
	require.NoError(t, err)

	rs.FastForward(time.Hour + time.Second)

	_, err = s.GetSession(context.Background(), created.SessionID)
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_MutationRefreshesExpiry(t *testing.T) {
	s, rs := makeService(t)

	created, err := s.CreateSession(context.Background(), session.CreateSessionRequest{Username: "alice"})
	require.NoError(t, err)

	rs.FastForward(55 * time.Minute)

	_, err = s.AddScore(context.Background(), created.SessionID, 10)
	require.NoError(t, err)

	rs.FastForward(30 * time.Minute)

	got, err := s.GetSession(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.Score)
}

func makeService(t *testing.T) (*session.Service, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return session.NewService(session.Config{Redis: rc}), rs
}
