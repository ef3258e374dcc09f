package consensus

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/match"
)

// topN is the size of the ranked aggregation view. A guess outside the top
// 10 is invisible to scoring even when other players matched it.
const topN = 10

// Rank derives the ranked aggregation view from a stored guess-count map:
// sorted by count descending, top 10, rank assigned 1..N. Ties break by
// lexicographic guess order so repeated reads of the same map produce the
// same view (Go map iteration order is not stable).
//
// Percentage is count over totalPlayers, as a percentage rounded to one
// decimal. Percentages need not sum to 100: totalPlayers counts people, not
// guesses, and buckets outside the top 10 are dropped.
func Rank(guesses map[string]int64, totalPlayers int64, playerGuess, creatorAnswer string) []domain.RankedGuess {
	if len(guesses) == 0 || totalPlayers <= 0 {
		return nil
	}

	normalizedPlayer := match.Normalize(playerGuess)
	normalizedCreator := match.Normalize(creatorAnswer)

	ranked := make([]domain.RankedGuess, 0, len(guesses))
	for guess, count := range guesses {
		ranked = append(ranked, domain.RankedGuess{
			Guess:           guess,
			Count:           count,
			Percentage:      percentage(count, totalPlayers),
			IsPlayerGuess:   playerGuess != "" && guess == normalizedPlayer,
			IsCreatorAnswer: guess == normalizedCreator,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Guess < ranked[j].Guess
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// TotalGuesses sums every bucket, including those outside the top 10.
func TotalGuesses(guesses map[string]int64) int64 {
	var total int64
	for _, count := range guesses {
		total += count
	}

	return total
}

func percentage(count, totalPlayers int64) float64 {
	return decimal.NewFromInt(count).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(totalPlayers)).
		Round(1).
		InexactFloat64()
}
