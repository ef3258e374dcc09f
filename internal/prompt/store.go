package prompt

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/hivemind/internal/domain"
)

// Store reads the prompt content from Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadCatalog fetches every prompt. Called once at startup; the resulting
// catalog is immutable.
func (s *Store) LoadCatalog(ctx context.Context) (*Catalog, error) {
	const stmt = `
SELECT prompt_id, prompt_text, answer, alternative_answers, difficulty, category
FROM prompts
ORDER BY prompt_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}

	prompts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Prompt, error) {
		var p domain.Prompt
		if err := r.Scan(&p.ID, &p.Text, &p.Answer, &p.AlternativeAnswers, &p.Difficulty, &p.Category); err != nil {
			return domain.Prompt{}, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect prompts: %w", err)
	}

	return NewCatalog(prompts), nil
}
