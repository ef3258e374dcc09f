package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/hivemind/internal/aggregation"
	"github.com/victornm/hivemind/internal/api"
	"github.com/victornm/hivemind/internal/classic"
	"github.com/victornm/hivemind/internal/consensus"
	"github.com/victornm/hivemind/internal/event"
	"github.com/victornm/hivemind/internal/prompt"
	"github.com/victornm/hivemind/internal/session"
	"github.com/victornm/hivemind/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port           int32
		UsernameHeader string
	}

	Redis struct {
		Game struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Prompt struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			game   redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres struct {
			prompt *pgxpool.Pool
		}
	}

	catalog *prompt.Catalog

	service struct {
		sessions  *session.Service
		classic   *classic.Service
		consensus *consensus.Service
		selector  *prompt.Selector
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initCatalog(); err != nil {
		return nil, fmt.Errorf("server: init catalog: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.game, err = connect(s.c.Redis.Game.Addrs, s.c.Redis.Game.Pass)
	if err != nil {
		return fmt.Errorf("game: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := s.c.Postgres.Prompt

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", p.User, p.Pass, p.Addr, p.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres.prompt = db
	return nil
}

func (s *Server) initCatalog() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	catalog, err := prompt.NewStore(s.infra.postgres.prompt).LoadCatalog(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, fmt.Sprintf("server: loaded %d prompts", catalog.Len()))

	s.catalog = catalog
	return nil
}

func (s *Server) initService() {
	s.service.sessions = session.NewService(session.Config{
		Redis:  s.infra.redis.game,
		Prefix: s.c.Redis.Game.Prefix,
	})

	store := aggregation.NewStore(aggregation.Config{
		Redis:  s.infra.redis.game,
		Prefix: s.c.Redis.Game.Prefix,
	})

	s.service.consensus = consensus.NewService(consensus.Config{
		EventBus: s.eb,
		Store:    store,
		Catalog:  s.catalog,
		Redis:    s.infra.redis.game,
		Prefix:   s.c.Redis.Game.Prefix,
	})

	s.service.classic = classic.NewService(classic.Config{
		Catalog:  s.catalog,
		Sessions: s.service.sessions,
	})

	s.service.selector = prompt.NewSelector(prompt.SelectorConfig{
		Catalog:  s.catalog,
		Sessions: s.service.sessions,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	identity := api.HeaderIdentity{Header: s.c.HTTP.UsernameHeader}
	if identity.Header == "" {
		identity.Header = "X-Username"
	}

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Identity:     identity,
		Sessions:     s.service.sessions,
		Classic:      s.service.classic,
		Consensus:    s.service.consensus,
		Selector:     s.service.selector,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()
	s.infra.postgres.prompt.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
