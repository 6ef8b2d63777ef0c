package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mohammad-safakhou/notesmith/config"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/spell"
	"github.com/mohammad-safakhou/notesmith/internal/telemetry"
	"github.com/mohammad-safakhou/notesmith/internal/transcript"
	"github.com/mohammad-safakhou/notesmith/provider"
	"github.com/spf13/cobra"
)

// generateCMD is the one-shot path: acquire a transcript (URL or stdin), run
// the pipeline once, print the notes document as JSON. No Postgres or Redis
// required.
func generateCMD() *cobra.Command {
	var cfgPath string
	var videoURL string
	var language string
	var cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate notes once and print JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runGenerate(cfg, videoURL, language)
		},
	}
	cmd.Flags().StringVar(&videoURL, "url", "", "video URL to fetch a transcript for (omit to read transcript from stdin)")
	cmd.Flags().StringVar(&language, "language", "English", "output language")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}

func runGenerate(cfg *config.Config, videoURL, language string) error {
	ctx := context.Background()

	var text string
	if videoURL != "" {
		svc := transcript.NewService(cfg.Transcript, nil, nil)
		acquired, err := svc.Acquire(ctx, videoURL)
		if err != nil {
			return fmt.Errorf("acquire transcript: %w", err)
		}
		text = acquired
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read transcript from stdin: %w", err)
		}
		text = string(raw)
	}

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
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownGrace)
		defer cancel()
		gen.Shutdown(shutdownCtx)
	}()

	resp := gen.GenerateNotes(ctx, text, language)
	resp.VideoURL = videoURL

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Printf("encode notes: %v", err)
		return err
	}
	return nil
}
