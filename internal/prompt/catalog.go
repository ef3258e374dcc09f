// Package prompt holds the immutable prompt catalog and picks unused prompts
// for a session.
package prompt

import (
	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/errors"
)

// Catalog is the in-memory view of the prompt content. Loaded once at
// startup, never mutated afterwards.
type Catalog struct {
	prompts []domain.Prompt
	byID    map[int]domain.Prompt
}

func NewCatalog(prompts []domain.Prompt) *Catalog {
	c := &Catalog{
		prompts: prompts,
		byID:    make(map[int]domain.Prompt, len(prompts)),
	}

	for _, p := range prompts {
		c.byID[p.ID] = p
	}

	return c
}

// ByID returns the prompt with the given ID, or CodeNotFound.
func (c *Catalog) ByID(id int) (*domain.Prompt, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("prompt not found: prompt=%d", id))
	}

	return &p, nil
}

// All returns every prompt in catalog order.
func (c *Catalog) All() []domain.Prompt {
	return c.prompts
}

func (c *Catalog) Len() int {
	return len(c.prompts)
}
