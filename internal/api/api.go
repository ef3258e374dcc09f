package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/hivemind/internal/classic"
	"github.com/victornm/hivemind/internal/consensus"
	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/errors"
	"github.com/victornm/hivemind/internal/event"
	"github.com/victornm/hivemind/internal/prompt"
	"github.com/victornm/hivemind/internal/session"
	"github.com/victornm/hivemind/internal/telemetry"
)

// Identity resolves the current player's username. The host platform owns
// identity; this API only consumes it.
type Identity interface {
	CurrentUsername(r *http.Request) (string, error)
}

// HeaderIdentity reads the username from a request header, the adapter used
// when the host platform fronts this service with an authenticating proxy.
type HeaderIdentity struct {
	Header string
}

func (h HeaderIdentity) CurrentUsername(r *http.Request) (string, error) {
	username := r.Header.Get(h.Header)
	if username == "" {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("unable to resolve username from request"))
	}

	return username, nil
}

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Identity     Identity
	Sessions     *session.Service
	Classic      *classic.Service
	Consensus    *consensus.Service
	Selector     *prompt.Selector
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	identity  Identity
	sessions  *session.Service
	classic   *classic.Service
	consensus *consensus.Service
	selector  *prompt.Selector

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		identity:  c.Identity,
		sessions:  c.Sessions,
		classic:   c.Classic,
		consensus: c.Consensus,
		selector:  c.Selector,
		redis:     c.Redis,
		prefix:    c.PubsubPrefix,
	}

	g := c.Engine.Group("/api")
	g.GET("/init", a.handleInit)
	g.POST("/game/start", a.handleGameStart)
	g.POST("/game/next-prompt", a.handleNextPrompt)
	g.POST("/game/submit-guess", a.handleClassicGuess)
	g.POST("/consensus/submit-guess", a.handleConsensusGuess)
	g.POST("/consensus/get-results", a.handleConsensusResults)

	c.EventBus.Subscribe(domain.EventNameAggregationUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishAggregationUpdated(ctx, e.(domain.EventAggregationUpdated))
	})

	return a
}

func (a *API) handleInit(c *gin.Context) {
	username, err := a.identity.CurrentUsername(c.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, initResponse{
		Type:     "init",
		Username: username,
	})
}

func (a *API) handleGameStart(c *gin.Context) {
	username, err := a.identity.CurrentUsername(c.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	ss, err := a.sessions.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		Username: username,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gameStartResponse{
		Type:      "game-start",
		SessionID: ss.SessionID,
		Username:  ss.Username,
	})
}

func (a *API) handleNextPrompt(c *gin.Context) {
	var req nextPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		respondError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("sessionId is required")))
		return
	}

	p, err := a.selector.Next(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	// The answer never reaches clients.
	c.JSON(http.StatusOK, nextPromptResponse{
		Type: "next-prompt",
		Prompt: promptView{
			ID:         p.ID,
			PromptText: p.Text,
			Difficulty: p.Difficulty,
			Category:   p.Category,
		},
	})
}

func (a *API) handleClassicGuess(c *gin.Context) {
	req, err := bindGuessRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := a.classic.SubmitGuess(c.Request.Context(), classic.SubmitGuessRequest{
		SessionID: req.SessionID,
		PromptID:  *req.PromptID,
		Guess:     *req.Guess,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	telemetry.GuessesSubmitted.WithLabelValues("classic").Inc()

	c.JSON(http.StatusOK, guessResultResponse{
		Type:          "guess-result",
		IsCorrect:     res.IsCorrect,
		IsClose:       res.IsClose,
		CorrectAnswer: res.CorrectAnswer,
		PointsEarned:  res.PointsEarned,
		TotalScore:    res.TotalScore,
	})
}

func (a *API) handleConsensusGuess(c *gin.Context) {
	req, err := bindGuessRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	username, err := a.identity.CurrentUsername(c.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	err = a.consensus.SubmitGuess(c.Request.Context(), consensus.SubmitGuessRequest{
		SessionID: req.SessionID,
		PromptID:  *req.PromptID,
		Username:  username,
		Guess:     *req.Guess,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	telemetry.GuessesSubmitted.WithLabelValues("consensus").Inc()

	c.JSON(http.StatusOK, consensusSubmittedResponse{
		Type:    "consensus-guess-submitted",
		Success: true,
		Message: "Guess submitted successfully",
	})
}

func (a *API) handleConsensusResults(c *gin.Context) {
	var req getResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PromptID == nil || req.Username == "" {
		respondError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("promptId and username are required")))
		return
	}

	res, err := a.consensus.GetResults(c.Request.Context(), consensus.GetResultsRequest{
		PromptID: *req.PromptID,
		Username: req.Username,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	telemetry.ResultsFetched.Inc()

	c.JSON(http.StatusOK, newConsensusResultsResponse(res))
}

func bindGuessRequest(c *gin.Context) (*guessRequest, error) {
	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.PromptID == nil || req.Guess == nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("sessionId, promptId, and guess are required"))
	}

	return &req, nil
}

func respondError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.JSON(e.HTTPStatusCode(), errorResponse{
		Status:  "error",
		Message: e.Message,
	})
}
