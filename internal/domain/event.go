package domain

const (
	EventNameGuessSubmitted     = "guess.submitted"
	EventNameAggregationUpdated = "aggregation.updated"
)

// EventGuessSubmitted is published after a consensus-mode guess has been
// stored.
type EventGuessSubmitted struct {
	PromptID int
	Username string
	Guess    string
}

func (EventGuessSubmitted) Name() string { return EventNameGuessSubmitted }

// EventAggregationUpdated notifies that a prompt's guess distribution
// changed. Publication is throttled, so a single event may cover many
// submissions.
type EventAggregationUpdated struct {
	PromptID     int
	TotalPlayers int64
}

func (EventAggregationUpdated) Name() string { return EventNameAggregationUpdated }
