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
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"quizforge/internal/api"
	"quizforge/internal/archive"
	"quizforge/internal/attempt"
	"quizforge/internal/event"
	"quizforge/internal/generate"
	"quizforge/internal/leaderboard"
	"quizforge/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Session struct {
		CookieSecret string
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Archive struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Generator struct {
		// Backend selects the generation service: "gemini" or "openai".
		Backend string

		Gemini struct {
			APIKey  string
			Model   string
			BaseURL string
		}

		OpenAI struct {
			APIKey string
			Model  string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
		}

		postgres struct {
			archive *pgxpool.Pool
		}
	}

	service struct {
		generate    *generate.Service
		archive     *archive.Service
		leaderboard *leaderboard.Service
	}

	attempts *attempt.Registry

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()
	s.attempts = attempt.NewRegistry()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Leaderboard.Addrs,
		Password: s.c.Redis.Leaderboard.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis.leaderboard = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pc := s.c.Postgres.Archive
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
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

	s.infra.postgres.archive = db
	return nil
}

func (s *Server) initService() error {
	backend, err := s.generatorBackend()
	if err != nil {
		return err
	}

	s.service.generate = generate.NewService(generate.Config{
		Backend: backend,
	})

	s.service.archive = archive.NewService(archive.Config{
		DB: s.infra.postgres.archive,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.service.archive.Migrate(ctx); err != nil {
		return err
	}

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	return nil
}

func (s *Server) generatorBackend() (generate.Backend, error) {
	g := s.c.Generator

	switch g.Backend {
	case "", "gemini":
		return generate.NewGemini(generate.GeminiConfig{
			APIKey:  g.Gemini.APIKey,
			Model:   g.Gemini.Model,
			BaseURL: g.Gemini.BaseURL,
		}), nil

	case "openai":
		return generate.NewOpenAI(generate.OpenAIConfig{
			APIKey: g.OpenAI.APIKey,
			Model:  g.OpenAI.Model,
		}), nil
	}

	return nil, fmt.Errorf("unknown generator backend: %q", g.Backend)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:      e,
		EventBus:    s.eb,
		Generate:    s.service.generate,
		Archive:     s.service.archive,
		Leaderboard: s.service.leaderboard,
		Attempts:    s.attempts,
		Sessions:    sessions.NewCookieStore([]byte(s.c.Session.CookieSecret)),
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

	s.infra.postgres.archive.Close()
	if err := s.infra.redis.leaderboard.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
