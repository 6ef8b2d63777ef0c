package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/notesmith/config"
	"github.com/mohammad-safakhou/notesmith/internal/cache"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/queue/streams"
	"github.com/mohammad-safakhou/notesmith/internal/search"
	"github.com/mohammad-safakhou/notesmith/internal/spell"
	"github.com/mohammad-safakhou/notesmith/internal/store"
	"github.com/mohammad-safakhou/notesmith/internal/telemetry"
	"github.com/mohammad-safakhou/notesmith/internal/transcript"
	"github.com/mohammad-safakhou/notesmith/internal/worker"
	"github.com/mohammad-safakhou/notesmith/provider"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func workerCMD() *cobra.Command {
	var cfgPath string
	var consumerName string
	var cmd = &cobra.Command{
		Use:   "worker",
		Short: "Run background note-generation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runWorker(cfg, consumerName)
		},
	}
	cmd.Flags().StringVar(&consumerName, "name", "", "consumer name within the group (default: generated)")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}

func runWorker(cfg *config.Config, consumerName string) error {
	logger := log.New(log.Writer(), "[WORKER] ", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.DB.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr, err)
	}
	defer rdb.Close()
	if err := streams.EnsureGroup(ctx, rdb, cfg.Queue.Stream, cfg.Queue.Group); err != nil {
		return err
	}

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	backend, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	defer tele.Shutdown()

	gen := notes.NewGenerator(backend, pipelineOptions(cfg), tele, nil)
	if cfg.Pipeline.SpellCorrection {
		gen.SetCorrector(spell.New(backend, cfg.LLM.Routing.Model("spell"), nil))
	}

	if consumerName == "" {
		consumerName = "worker-" + uuid.NewString()[:8]
	}
	consumer := streams.NewConsumer(rdb, cfg.Queue.Group, consumerName)
	transcripts := transcript.NewService(cfg.Transcript, nil, nil)
	noteCache := cache.New(rdb, cfg.Storage.Redis.CacheTTL)

	proc := worker.NewProcessor(logger, st, gen, transcripts, noteCache, idx, consumer, cfg.Queue.Stream)
	err = proc.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownGrace)
	defer cancel()
	gen.Shutdown(shutdownCtx)
	return err
}

func pipelineOptions(cfg *config.Config) notes.Options {
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
