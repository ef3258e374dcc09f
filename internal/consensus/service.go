// Package consensus scores a player's guess against the live distribution of
// everyone else's guesses for the same prompt.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/event"
	"github.com/victornm/hivemind/internal/match"
	"github.com/victornm/hivemind/internal/prompt"
)

const (
	// notifyInterval throttles aggregation-updated notifications per prompt:
	// many submissions inside the window collapse into one event.
	notifyInterval = 200 * time.Millisecond

	defaultRetryDelay = 100 * time.Millisecond
)

// Store is the guess aggregation store the service writes to and reads from.
type Store interface {
	StoreGuess(ctx context.Context, promptID int, rawGuess string) (int64, error)
	AddPlayer(ctx context.Context, promptID int, username string) (int64, error)
	StorePlayerGuess(ctx context.Context, promptID int, username, rawGuess string) error
	AggregatedGuesses(ctx context.Context, promptID int) (map[string]int64, error)
	TotalPlayers(ctx context.Context, promptID int) (int64, error)
	PlayerGuess(ctx context.Context, promptID int, username string) (string, error)
}

type Config struct {
	EventBus *event.Bus
	Store    Store
	Catalog  *prompt.Catalog
	Redis    redis.UniversalClient
	Prefix   string

	// RetryDelay is the pause before the single transparent retry of a
	// failed store step.
	RetryDelay time.Duration
}

type Service struct {
	eb         *event.Bus
	store      Store
	catalog    *prompt.Catalog
	redis      redis.UniversalClient
	prefix     string
	retryDelay time.Duration
}

func NewService(c Config) *Service {
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}

	s := &Service{
		eb:         c.EventBus,
		store:      c.Store,
		catalog:    c.Catalog,
		redis:      c.Redis,
		prefix:     c.Prefix,
		retryDelay: c.RetryDelay,
	}

	s.eb.Subscribe(domain.EventNameGuessSubmitted, func(ctx context.Context, e event.Event) error {
		return s.notifyAggregationUpdated(ctx, e.(domain.EventGuessSubmitted))
	})

	return s
}

type SubmitGuessRequest struct {
	SessionID string
	PromptID  int
	Username  string
	Guess     string
}

// SubmitGuess records a consensus-mode guess: increments the aggregate
// bucket, adds the player to the distinct-player set and overwrites the
// player's stored guess. The three steps are independent, each retried once
// on failure; there is no cross-step rollback, so a partially applied
// submission is tolerated.
func (s *Service) SubmitGuess(ctx context.Context, req SubmitGuessRequest) error {
	err := s.withRetry(ctx, "store guess", func() error {
		_, err := s.store.StoreGuess(ctx, req.PromptID, req.Guess)
		return err
	})
	if err != nil {
		return err
	}

	err = s.withRetry(ctx, "add player", func() error {
		_, err := s.store.AddPlayer(ctx, req.PromptID, req.Username)
		return err
	})
	if err != nil {
		return err
	}

	err = s.withRetry(ctx, "store player guess", func() error {
		return s.store.StorePlayerGuess(ctx, req.PromptID, req.Username, req.Guess)
	})
	if err != nil {
		return err
	}

	s.eb.Publish(ctx, domain.EventGuessSubmitted{
		PromptID: req.PromptID,
		Username: req.Username,
		Guess:    match.Normalize(req.Guess),
	})

	return nil
}

type GetResultsRequest struct {
	PromptID int
	Username string
}

// GetResults builds the current snapshot for a results viewer: the ranked
// top-10 view, the player's own guess and its consensus score.
func (s *Service) GetResults(ctx context.Context, req GetResultsRequest) (*domain.ConsensusResults, error) {
	p, err := s.catalog.ByID(req.PromptID)
	if err != nil {
		return nil, err
	}

	guesses, err := s.store.AggregatedGuesses(ctx, req.PromptID)
	if err != nil {
		return nil, err
	}

	totalPlayers, err := s.store.TotalPlayers(ctx, req.PromptID)
	if err != nil {
		return nil, err
	}

	// Empty state: nobody has guessed yet.
	if totalPlayers == 0 || len(guesses) == 0 {
		return &domain.ConsensusResults{
			CreatorAnswer: p.Answer,
			PlayerScore:   UniqueScore(),
		}, nil
	}

	playerGuess, err := s.store.PlayerGuess(ctx, req.PromptID, req.Username)
	if err != nil {
		return nil, err
	}

	ranked := Rank(guesses, totalPlayers, playerGuess, p.Answer)

	score := UniqueScore()
	if playerGuess != "" {
		score = Score(playerGuess, ranked)
	}

	return &domain.ConsensusResults{
		Aggregation:   ranked,
		PlayerGuess:   playerGuess,
		CreatorAnswer: p.Answer,
		TotalPlayers:  totalPlayers,
		TotalGuesses:  TotalGuesses(guesses),
		PlayerScore:   score,
	}, nil
}

// withRetry runs op, and on failure retries it exactly once after a short
// pause before surfacing the error.
func (s *Service) withRetry(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}

	slog.WarnContext(ctx, "consensus: operation failed, retrying once",
		"op", name,
		"error", err,
	)

	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	return op()
}

// notifyAggregationUpdated publishes an aggregation-updated event, at most
// once per prompt per notifyInterval. The SETNX window doubles as a guard
// against multiple instances broadcasting the same change.
func (s *Service) notifyAggregationUpdated(ctx context.Context, e domain.EventGuessSubmitted) error {
	ok, err := s.redis.SetNX(ctx, s.notifyKey(e.PromptID), time.Now().UnixMilli(), notifyInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	totalPlayers, err := s.store.TotalPlayers(ctx, e.PromptID)
	if err != nil {
		return err
	}

	s.eb.Publish(ctx, domain.EventAggregationUpdated{
		PromptID:     e.PromptID,
		TotalPlayers: totalPlayers,
	})

	return nil
}

func (s *Service) notifyKey(promptID int) string {
	k := fmt.Sprintf("prompt:%d:notify", promptID)
	if s.prefix == "" {
		return k
	}

	return s.prefix + ":" + k
}
