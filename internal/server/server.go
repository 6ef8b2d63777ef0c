package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	appconfig "github.com/mohammad-safakhou/notesmith/config"
	"github.com/mohammad-safakhou/notesmith/internal/cache"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/queue/streams"
	"github.com/mohammad-safakhou/notesmith/internal/search"
	"github.com/mohammad-safakhou/notesmith/internal/spell"
	"github.com/mohammad-safakhou/notesmith/internal/store"
	"github.com/mohammad-safakhou/notesmith/internal/telemetry"
	"github.com/mohammad-safakhou/notesmith/internal/transcript"
	"github.com/mohammad-safakhou/notesmith/provider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Run wires the whole service together and blocks serving HTTP.
func Run(cfg *appconfig.Config) error {
	e := newEcho()

	ctx := context.Background()

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("warn: migrations: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr, err)
	}

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return err
	}

	backend, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	gen := notes.NewGenerator(backend, pipelineOptions(cfg), tele, log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags))
	if cfg.Pipeline.SpellCorrection {
		gen.SetCorrector(spell.New(backend, cfg.LLM.Routing.Model("spell"), nil))
	}

	transcripts := transcript.NewService(cfg.Transcript, nil, nil)
	noteCache := cache.New(rdb, cfg.Storage.Redis.CacheTTL)
	publisher := streams.NewPublisher(rdb)
	if err := streams.EnsureGroup(ctx, rdb, cfg.Queue.Stream, cfg.Queue.Group); err != nil {
		return err
	}

	nh := &NotesHandler{
		Store:       st,
		Generator:   gen,
		Transcripts: transcripts,
		Cache:       noteCache,
		Index:       idx,
		Publisher:   publisher,
		Stream:      cfg.Queue.Stream,
		MaxLen:      cfg.Queue.MaxLen,
		Logger:      log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	jh := &JobsHandler{Store: st}
	sh := &SearchHandler{Index: idx}

	api := e.Group("/api/v1")
	nh.Register(api)
	jh.Register(api)
	sh.Register(api)

	sched := &Scheduler{
		Store:  st,
		Rdb:    rdb,
		Index:  idx,
		Logger: log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		Stop:   make(chan struct{}),
	}
	sched.Start()
	defer close(sched.Stop)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		gen.Shutdown(shutdownCtx)
		tele.Shutdown()
	}()

	log.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// newEcho builds the echo instance with recovery, CORS, a JSON error handler
// and the health/metrics endpoints.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func pipelineOptions(cfg *appconfig.Config) notes.Options {
	return notes.Options{
		TopicModel:      cfg.LLM.Routing.Model("topics"),
		ContentModel:    cfg.LLM.Routing.Model("content"),
		SimpleModel:     cfg.LLM.Routing.Model("simple"),
		TopicAttempts:   cfg.Pipeline.TopicAttempts,
		TopicBackoff:    cfg.Pipeline.TopicBackoff,
		ContentAttempts: cfg.Pipeline.ContentAttempts,
		Workers:         cfg.Pipeline.Workers,
		TopicTimeout:    cfg.Pipeline.TopicTimeout,
		ShutdownGrace:   cfg.Pipeline.ShutdownGrace,
	}
}
