package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/victornm/hivemind/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	AggregationUpdate struct {
		PromptID     int    `json:"promptId"`
		TotalPlayers string `json:"totalPlayers"`
	}
)

// PublishAggregationUpdated fans a distribution change out to the prompt's
// pub/sub channel so results viewers learn fresh data is available without
// waiting a full poll interval.
func (a *API) PublishAggregationUpdated(ctx context.Context, e domain.EventAggregationUpdated) error {
	data := AggregationUpdate{
		PromptID:     e.PromptID,
		TotalPlayers: strconv.FormatInt(e.TotalPlayers, 10),
	}

	return a.publishNotification(ctx, a.promptChannel(e.PromptID), e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) promptChannel(promptID int) string {
	return fmt.Sprintf("%s:prompt:%d", a.prefix, promptID)
}
