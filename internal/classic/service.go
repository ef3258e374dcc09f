// Package classic scores guesses against a prompt's fixed answer.
package classic

import (
	"context"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/match"
	"github.com/victornm/hivemind/internal/prompt"
	"github.com/victornm/hivemind/internal/session"
)

const (
	exactMatchPoints = 10
	closeMatchPoints = 5

	// closeThreshold is the minimum similarity against an accepted answer
	// for a near-miss to count as close.
	closeThreshold = 70
)

type Config struct {
	Catalog  *prompt.Catalog
	Sessions *session.Service
}

type Service struct {
	catalog  *prompt.Catalog
	sessions *session.Service
}

func NewService(c Config) *Service {
	return &Service{
		catalog:  c.Catalog,
		sessions: c.Sessions,
	}
}

type SubmitGuessRequest struct {
	SessionID string
	PromptID  int
	Guess     string
}

// SubmitGuess checks the guess against the prompt's answer and its accepted
// alternatives. An exact match (after normalization) wins 10 points and takes
// priority over similarity; otherwise the first accepted answer with
// similarity at or above the threshold counts as a close match for 5 points.
func (s *Service) SubmitGuess(ctx context.Context, req SubmitGuessRequest) (*domain.ClassicResult, error) {
	p, err := s.catalog.ByID(req.PromptID)
	if err != nil {
		return nil, err
	}

	res := &domain.ClassicResult{
		CorrectAnswer: p.Answer,
	}

	guess := match.Normalize(req.Guess)
	accepted := acceptedAnswers(p)

	for _, answer := range accepted {
		if guess == answer {
			res.IsCorrect = true
			res.PointsEarned = exactMatchPoints
			break
		}
	}

	if !res.IsCorrect {
		// First accepted answer to cross the threshold wins; no best-match
		// search across alternatives.
		for _, answer := range accepted {
			if match.Similarity(guess, answer) >= closeThreshold {
				res.IsClose = true
				res.PointsEarned = closeMatchPoints
				break
			}
		}
	}

	total, err := s.sessions.AddScore(ctx, req.SessionID, res.PointsEarned)
	if err != nil {
		return nil, err
	}
	res.TotalScore = total

	if _, err := s.sessions.IncrementRounds(ctx, req.SessionID); err != nil {
		return nil, err
	}

	return res, nil
}

func acceptedAnswers(p *domain.Prompt) []string {
	answers := make([]string, 0, 1+len(p.AlternativeAnswers))
	answers = append(answers, match.Normalize(p.Answer))
	for _, alt := range p.AlternativeAnswers {
		answers = append(answers, match.Normalize(alt))
	}

	return answers
}
