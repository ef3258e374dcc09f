// Package aggregation persists consensus-mode guess distributions in Redis.
// All counters rely on single-command Redis primitives (HINCRBY, SADD), so
// concurrent submissions never lose an update.
package aggregation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/hivemind/internal/errors"
	"github.com/victornm/hivemind/internal/match"
)

// defaultTTL bounds how long a prompt's guess data may outlive its last
// write. Expiry is a hard delete.
const defaultTTL = 24 * time.Hour

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewStore(c Config) *Store {
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}

	return &Store{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
}

// StoreGuess normalizes rawGuess, atomically increments its bucket for the
// prompt and refreshes the shared map's expiry. Returns the new count.
func (s *Store) StoreGuess(ctx context.Context, promptID int, rawGuess string) (int64, error) {
	key := s.guessesKey(promptID)

	n, err := s.redis.HIncrBy(ctx, key, match.Normalize(rawGuess), 1).Result()
	if err != nil {
		return 0, storageErr(err, "store guess: prompt=%d", promptID)
	}

	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return 0, storageErr(err, "refresh guesses expiry: prompt=%d", promptID)
	}

	return n, nil
}

// AddPlayer adds username to the prompt's distinct-player set and returns the
// updated set size. Re-adding the same username does not grow the set.
func (s *Store) AddPlayer(ctx context.Context, promptID int, username string) (int64, error) {
	key := s.playersKey(promptID)

	if err := s.redis.SAdd(ctx, key, username).Err(); err != nil {
		return 0, storageErr(err, "add player: prompt=%d", promptID)
	}

	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return 0, storageErr(err, "refresh players expiry: prompt=%d", promptID)
	}

	n, err := s.redis.SCard(ctx, key).Result()
	if err != nil {
		return 0, storageErr(err, "count players: prompt=%d", promptID)
	}

	return n, nil
}

// StorePlayerGuess overwrites the player's latest guess for the prompt. Last
// write wins. The key carries its own expiry, independent of the shared map.
func (s *Store) StorePlayerGuess(ctx context.Context, promptID int, username, rawGuess string) error {
	key := s.playerGuessKey(promptID, username)

	if err := s.redis.Set(ctx, key, match.Normalize(rawGuess), s.ttl).Err(); err != nil {
		return storageErr(err, "store player guess: prompt=%d user=%s", promptID, username)
	}

	return nil
}

// AggregatedGuesses returns the full normalized-guess to count map for the
// prompt. A prompt nobody has guessed on yields an empty map, not an error.
func (s *Store) AggregatedGuesses(ctx context.Context, promptID int) (map[string]int64, error) {
	raw, err := s.redis.HGetAll(ctx, s.guessesKey(promptID)).Result()
	if err != nil {
		return nil, storageErr(err, "get aggregated guesses: prompt=%d", promptID)
	}

	counts := make(map[string]int64, len(raw))
	for guess, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, storageErr(err, "parse count: prompt=%d guess=%q", promptID, guess)
		}
		counts[guess] = n
	}

	return counts, nil
}

// TotalPlayers returns the number of distinct submitters for the prompt, 0
// when nobody has guessed yet.
func (s *Store) TotalPlayers(ctx context.Context, promptID int) (int64, error) {
	n, err := s.redis.SCard(ctx, s.playersKey(promptID)).Result()
	if err != nil {
		return 0, storageErr(err, "get total players: prompt=%d", promptID)
	}

	return n, nil
}

// PlayerGuess returns the player's stored guess for the prompt, or empty when
// the player has not submitted.
func (s *Store) PlayerGuess(ctx context.Context, promptID int, username string) (string, error) {
	v, err := s.redis.Get(ctx, s.playerGuessKey(promptID, username)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", storageErr(err, "get player guess: prompt=%d user=%s", promptID, username)
	}

	return v, nil
}

func (s *Store) guessesKey(promptID int) string {
	return s.key(fmt.Sprintf("prompt:%d:guesses", promptID))
}

func (s *Store) playersKey(promptID int) string {
	return s.key(fmt.Sprintf("prompt:%d:players", promptID))
}

func (s *Store) playerGuessKey(promptID int, username string) string {
	return s.key(fmt.Sprintf("prompt:%d:player:%s:guess", promptID, username))
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}

	return s.prefix + ":" + k
}

func storageErr(cause error, format string, args ...any) error {
	return errors.New(errors.CodeInternal,
		errors.WithMessagef(format, args...),
		errors.WithCause(cause),
	)
}
