package consensus

import (
	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/match"
)

// Tier thresholds, in percentage of distinct players.
const (
	majorityThreshold = 50
	commonThreshold   = 20
	uncommonThreshold = 5
)

var tierPoints = map[domain.Tier]int{
	domain.TierMajority: 100,
	domain.TierCommon:   50,
	domain.TierUncommon: 25,
	domain.TierRare:     10,
	domain.TierUnique:   0,
}

// Score maps a player's guess against the ranked top-10 view. A guess found
// in the view earns a tier by its percentage of players; a guess absent from
// the view scores unique for 0 points, even when it exists in the full
// aggregation outside the top 10. An empty view always scores unique.
func Score(playerGuess string, ranked []domain.RankedGuess) domain.ConsensusScore {
	normalized := match.Normalize(playerGuess)

	for _, r := range ranked {
		if r.Guess != normalized {
			continue
		}

		tier := tierFor(r.Percentage)
		return domain.ConsensusScore{
			PointsEarned:    tierPoints[tier],
			MatchPercentage: r.Percentage,
			Tier:            tier,
		}
	}

	return UniqueScore()
}

// UniqueScore is the empty-state default: no match, no points.
func UniqueScore() domain.ConsensusScore {
	return domain.ConsensusScore{
		PointsEarned:    0,
		MatchPercentage: 0,
		Tier:            domain.TierUnique,
	}
}

func tierFor(pct float64) domain.Tier {
	switch {
	case pct >= majorityThreshold:
		return domain.TierMajority
	case pct >= commonThreshold:
		return domain.TierCommon
	case pct >= uncommonThreshold:
		return domain.TierUncommon
	default:
		// Present in the top 10 but below 5% of players.
		return domain.TierRare
	}
}
