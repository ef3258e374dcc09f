package consensus_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/hivemind/internal/consensus"
	"github.com/victornm/hivemind/internal/domain"
)

func TestRank(t *testing.T) {
	t.Run("sorts by count and assigns ranks and percentages", func(t *testing.T) {
		guesses := map[string]int64{
			"jellyfish": 5183,
			"squid":     193,
			"octopus":   95,
			"house":     47,
		}

		ranked := consensus.Rank(guesses, 6082, "jellyfish", "jellyfish")
		require.Len(t, ranked, 4)

		require.Equal(t, domain.RankedGuess{
			Guess:           "jellyfish",
			Count:           5183,
			Percentage:      85.2,
			Rank:            1,
			IsPlayerGuess:   true,
			IsCreatorAnswer: true,
		}, ranked[0])

		require.Equal(t, "squid", ranked[1].Guess)
		require.Equal(t, 2, ranked[1].Rank)

		require.Equal(t, domain.RankedGuess{
			Guess:      "house",
			Count:      47,
			Percentage: 0.8,
			Rank:       4,
		}, ranked[3])
	})

	t.Run("keeps only the top 10", func(t *testing.T) {
		guesses := make(map[string]int64)
		for i := 0; i < 15; i++ {
			guesses[fmt.Sprintf("guess-%02d", i)] = int64(100 - i)
		}

		ranked := consensus.Rank(guesses, 1000, "", "")
		require.Len(t, ranked, 10)
		require.Equal(t, "guess-00", ranked[0].Guess)
		require.Equal(t, "guess-09", ranked[9].Guess)
		require.Equal(t, 10, ranked[9].Rank)
	})

	t.Run("ties break by lexicographic guess order", func(t *testing.T) {
		guesses := map[string]int64{
			"zebra":    3,
			"aardvark": 3,
			"mongoose": 3,
		}

		// Same input must yield the same view on every call.
		for i := 0; i < 5; i++ {
			ranked := consensus.Rank(guesses, 9, "", "")
			require.Equal(t, "aardvark", ranked[0].Guess)
			require.Equal(t, "mongoose", ranked[1].Guess)
			require.Equal(t, "zebra", ranked[2].Guess)
		}
	})

	t.Run("empty map yields nil", func(t *testing.T) {
		require.Nil(t, consensus.Rank(nil, 100, "", ""))
		require.Nil(t, consensus.Rank(map[string]int64{}, 100, "", ""))
	})

	t.Run("zero players yields nil", func(t *testing.T) {
		require.Nil(t, consensus.Rank(map[string]int64{"jellyfish": 1}, 0, "", ""))
	})

	t.Run("percentages round to one decimal", func(t *testing.T) {
		ranked := consensus.Rank(map[string]int64{"a": 1}, 3, "", "")
		require.Equal(t, 33.3, ranked[0].Percentage)

		ranked = consensus.Rank(map[string]int64{"a": 2}, 3, "", "")
		require.Equal(t, 66.7, ranked[0].Percentage)
	})

	t.Run("marks player guess after normalization", func(t *testing.T) {
		ranked := consensus.Rank(map[string]int64{"jellyfish": 2, "squid": 1}, 3, "  JellyFish ", "squid")
		require.True(t, ranked[0].IsPlayerGuess)
		require.False(t, ranked[0].IsCreatorAnswer)
		require.True(t, ranked[1].IsCreatorAnswer)
	})
}

func TestTotalGuesses(t *testing.T) {
	require.Zero(t, consensus.TotalGuesses(nil))
	require.Equal(t, int64(5518), consensus.TotalGuesses(map[string]int64{
		"jellyfish": 5183,
		"squid":     193,
		"octopus":   95,
		"house":     47,
	}))
}
