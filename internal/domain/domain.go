package domain

import "time"

// Prompt is a single content item shown to players. Prompts are loaded once
// at startup and never mutated; the Answer and AlternativeAnswers fields are
// hidden from clients.
type Prompt struct {
	ID                 int
	Text               string
	Answer             string
	AlternativeAnswers []string
	Difficulty         string
	Category           string
}

// Session is the ephemeral per-player state for one game. It lives in Redis
// with a 1 hour TTL refreshed on every mutation.
type Session struct {
	SessionID       string
	Username        string
	Score           int64
	RoundsCompleted int64
	StartTime       time.Time
}

// Tier buckets a guess's share of players into a point value.
type Tier string

const (
	TierMajority Tier = "majority"
	TierCommon   Tier = "common"
	TierUncommon Tier = "uncommon"
	TierRare     Tier = "rare"
	TierUnique   Tier = "unique"
)

// RankedGuess is one row of the ranked aggregation view: a normalized guess,
// how many players gave it, and its share of all distinct players. Derived on
// every read, never stored.
type RankedGuess struct {
	Guess           string  `json:"guess"`
	Count           int64   `json:"count"`
	Percentage      float64 `json:"percentage"`
	Rank            int     `json:"rank"`
	IsPlayerGuess   bool    `json:"isPlayerGuess"`
	IsCreatorAnswer bool    `json:"isCreatorAnswer"`
}

// ConsensusScore is the derived reward for a consensus-mode guess.
type ConsensusScore struct {
	PointsEarned    int     `json:"pointsEarned"`
	MatchPercentage float64 `json:"matchPercentage"`
	Tier            Tier    `json:"tier"`
}

// ConsensusResults is the full snapshot returned to a results viewer.
type ConsensusResults struct {
	Aggregation   []RankedGuess
	PlayerGuess   string
	CreatorAnswer string
	TotalPlayers  int64
	TotalGuesses  int64
	PlayerScore   ConsensusScore
}

// ClassicResult is the outcome of a classic-mode guess.
type ClassicResult struct {
	IsCorrect     bool
	IsClose       bool
	CorrectAnswer string
	PointsEarned  int64
	TotalScore    int64
}
