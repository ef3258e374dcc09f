package prompt

import (
	"context"
	"math/rand"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/errors"
	"github.com/victornm/hivemind/internal/session"
)

type SelectorConfig struct {
	Catalog  *Catalog
	Sessions *session.Service

	// PickFunc picks an index in [0, n). Defaults to a uniform random pick;
	// injectable for deterministic tests.
	PickFunc func(n int) int
}

// Selector picks the next unused prompt for a session and records it as used.
type Selector struct {
	catalog  *Catalog
	sessions *session.Service
	pick     func(n int) int
}

func NewSelector(c SelectorConfig) *Selector {
	if c.PickFunc == nil {
		c.PickFunc = rand.Intn
	}

	return &Selector{
		catalog:  c.Catalog,
		sessions: c.Sessions,
		pick:     c.PickFunc,
	}
}

// Next returns a prompt the session has not seen yet, or CodeNotFound when
// the catalog is exhausted.
func (s *Selector) Next(ctx context.Context, sessionID string) (*domain.Prompt, error) {
	used, err := s.sessions.UsedPromptIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var unused []domain.Prompt
	for _, p := range s.catalog.All() {
		if !used[p.ID] {
			unused = append(unused, p)
		}
	}

	if len(unused) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no more prompts available: session=%s", sessionID))
	}

	p := unused[s.pick(len(unused))]

	if err := s.sessions.MarkPromptUsed(ctx, sessionID, p.ID); err != nil {
		return nil, err
	}

	return &p, nil
}
