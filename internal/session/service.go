package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/errors"
)

// Sessions expire after an hour of inactivity; every mutation pushes the
// window out again.
const ttl = time.Hour

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
}

type Service struct {
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	return &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

type CreateSessionRequest struct {
	Username string
}

// CreateSession initializes a fresh session for the player: score zero, no
// rounds completed, no used prompts.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ss := &domain.Session{
		SessionID: id.String(),
		Username:  req.Username,
		StartTime: time.Now(),
	}

	if err := s.redis.Set(ctx, s.scoreKey(ss.SessionID), 0, ttl).Err(); err != nil {
		return nil, fmt.Errorf("init session score: %w", err)
	}

	if err := s.redis.HSet(ctx, s.metaKey(ss.SessionID), map[string]any{
		"username":        ss.Username,
		"startTime":       strconv.FormatInt(ss.StartTime.UnixMilli(), 10),
		"roundsCompleted": "0",
	}).Err(); err != nil {
		return nil, fmt.Errorf("init session meta: %w", err)
	}

	if err := s.redis.Expire(ctx, s.metaKey(ss.SessionID), ttl).Err(); err != nil {
		return nil, fmt.Errorf("set session meta expiry: %w", err)
	}

	return ss, nil
}

// GetSession loads a session, or CodeNotFound once it has expired.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	meta, err := s.redis.HGetAll(ctx, s.metaKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session meta: %w", err)
	}

	if len(meta) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("session not found: session=%s", sessionID))
	}

	ss := &domain.Session{
		SessionID: sessionID,
		Username:  meta["username"],
	}

	if v, err := strconv.ParseInt(meta["startTime"], 10, 64); err == nil {
		ss.StartTime = time.UnixMilli(v)
	}
	if v, err := strconv.ParseInt(meta["roundsCompleted"], 10, 64); err == nil {
		ss.RoundsCompleted = v
	}

	score, err := s.redis.Get(ctx, s.scoreKey(sessionID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get session score: %w", err)
	}
	if err == nil {
		ss.Score, _ = strconv.ParseInt(score, 10, 64)
	}

	return ss, nil
}

// AddScore atomically adds points to the session score and returns the new
// total. INCRBY keeps concurrent submissions from losing updates.
func (s *Service) AddScore(ctx context.Context, sessionID string, points int64) (int64, error) {
	total, err := s.redis.IncrBy(ctx, s.scoreKey(sessionID), points).Result()
	if err != nil {
		return 0, fmt.Errorf("add score: %w", err)
	}

	if err := s.touch(ctx, sessionID); err != nil {
		return 0, err
	}

	return total, nil
}

// IncrementRounds bumps the completed-round counter.
func (s *Service) IncrementRounds(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.redis.HIncrBy(ctx, s.metaKey(sessionID), "roundsCompleted", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment rounds: %w", err)
	}

	if err := s.touch(ctx, sessionID); err != nil {
		return 0, err
	}

	return n, nil
}

// MarkPromptUsed records that the session has seen the prompt.
func (s *Service) MarkPromptUsed(ctx context.Context, sessionID string, promptID int) error {
	key := s.usedKey(sessionID)

	if err := s.redis.SAdd(ctx, key, promptID).Err(); err != nil {
		return fmt.Errorf("mark prompt used: %w", err)
	}

	if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("set used prompts expiry: %w", err)
	}

	return nil
}

// UsedPromptIDs returns the set of prompt IDs the session has already seen.
func (s *Service) UsedPromptIDs(ctx context.Context, sessionID string) (map[int]bool, error) {
	members, err := s.redis.SMembers(ctx, s.usedKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get used prompts: %w", err)
	}

	used := make(map[int]bool, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("parse used prompt ID %q: %w", m, err)
		}
		used[id] = true
	}

	return used, nil
}

// touch refreshes the TTL on every session key.
func (s *Service) touch(ctx context.Context, sessionID string) error {
	for _, key := range []string{s.scoreKey(sessionID), s.metaKey(sessionID), s.usedKey(sessionID)} {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("refresh session expiry: %w", err)
		}
	}

	return nil
}

func (s *Service) scoreKey(sessionID string) string {
	return s.key(fmt.Sprintf("session:%s:score", sessionID))
}

func (s *Service) metaKey(sessionID string) string {
	return s.key(fmt.Sprintf("session:%s:meta", sessionID))
}

func (s *Service) usedKey(sessionID string) string {
	return s.key(fmt.Sprintf("session:%s:used", sessionID))
}

func (s *Service) key(k string) string {
	if s.prefix == "" {
		return k
	}

	return s.prefix + ":" + k
}
