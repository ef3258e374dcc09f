package api

import "github.com/victornm/hivemind/internal/domain"

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type initResponse struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type gameStartResponse struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

type nextPromptRequest struct {
	SessionID string `json:"sessionId"`
}

type promptView struct {
	ID         int    `json:"id"`
	PromptText string `json:"promptText"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

type nextPromptResponse struct {
	Type   string     `json:"type"`
	Prompt promptView `json:"prompt"`
}

// guessRequest uses pointers so a missing field is distinguishable from a
// zero value.
type guessRequest struct {
	SessionID string  `json:"sessionId"`
	PromptID  *int    `json:"promptId"`
	Guess     *string `json:"guess"`
}

type guessResultResponse struct {
	Type          string `json:"type"`
	IsCorrect     bool   `json:"isCorrect"`
	IsClose       bool   `json:"isClose"`
	CorrectAnswer string `json:"correctAnswer"`
	PointsEarned  int64  `json:"pointsEarned"`
	TotalScore    int64  `json:"totalScore"`
}

type consensusSubmittedResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type getResultsRequest struct {
	PromptID *int   `json:"promptId"`
	Username string `json:"username"`
}

type consensusResultsResponse struct {
	Type          string                `json:"type"`
	Aggregation   []domain.RankedGuess  `json:"aggregation"`
	PlayerGuess   *string               `json:"playerGuess"`
	CreatorAnswer string                `json:"creatorAnswer"`
	TotalPlayers  int64                 `json:"totalPlayers"`
	TotalGuesses  int64                 `json:"totalGuesses"`
	PlayerScore   domain.ConsensusScore `json:"playerScore"`
}

func newConsensusResultsResponse(res *domain.ConsensusResults) consensusResultsResponse {
	resp := consensusResultsResponse{
		Type:          "consensus-results",
		Aggregation:   res.Aggregation,
		CreatorAnswer: res.CreatorAnswer,
		TotalPlayers:  res.TotalPlayers,
		TotalGuesses:  res.TotalGuesses,
		PlayerScore:   res.PlayerScore,
	}

	if resp.Aggregation == nil {
		resp.Aggregation = []domain.RankedGuess{}
	}

	if res.PlayerGuess != "" {
		resp.PlayerGuess = &res.PlayerGuess
	}

	return resp
}
