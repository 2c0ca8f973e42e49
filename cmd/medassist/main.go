// Medassist is a voice-first medical assistant daemon that analyzes spoken
// questions, typed questions, and symptom photos, and answers back in text
// and synthesized speech.
//
// Usage:
//
//	medassist [flags]
//	medassist --config /path/to/medassist.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/Anwarhacker/Medical-Assistant/docs" // swagger docs served at /swagger/doc.json
	geminianalysis "github.com/Anwarhacker/Medical-Assistant/internal/analysis/gemini"
	"github.com/Anwarhacker/Medical-Assistant/internal/config"
	"github.com/Anwarhacker/Medical-Assistant/internal/health"
	"github.com/Anwarhacker/Medical-Assistant/internal/history"
	"github.com/Anwarhacker/Medical-Assistant/internal/session"
	"github.com/Anwarhacker/Medical-Assistant/internal/transport"
	grpctransport "github.com/Anwarhacker/Medical-Assistant/internal/transport/grpc"
	httptransport "github.com/Anwarhacker/Medical-Assistant/internal/transport/http"
	"github.com/Anwarhacker/Medical-Assistant/internal/tts"
	geminitts "github.com/Anwarhacker/Medical-Assistant/internal/tts/gemini"
)

// version is set at build time via ldflags.
var version = "dev"

// @title        Medassist API
// @version      1.0
// @description  Voice-first medical assistant: consultations in, analysis and speech out.
// @BasePath     /
func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/medassist.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("medassist %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("medassist starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the analysis backend. A missing API key fails here, before
	// any listener opens.
	analyzer, err := geminianalysis.New(ctx, cfg.Gemini, cfg.Analysis)
	if err != nil {
		slog.Error("failed to initialize analysis backend", "error", err)
		os.Exit(1)
	}
	defer analyzer.Close()
	slog.Info("using Gemini analysis",
		"model", cfg.Analysis.Model,
		"timeout", cfg.Analysis.Timeout)

	// Initialize speech synthesis if enabled.
	var synthesizer tts.Synthesizer
	if cfg.TTS.Enabled {
		s, err := geminitts.New(cfg.Gemini, cfg.TTS)
		if err != nil {
			slog.Error("failed to initialize speech synthesis", "error", err)
			os.Exit(1)
		}
		defer s.Close()
		synthesizer = s
		slog.Info("speech synthesis enabled",
			"model", cfg.TTS.Model,
			"voice", cfg.TTS.Voice)
	} else {
		slog.Info("speech synthesis disabled")
	}

	// Open the consultation history log.
	store, err := history.Open(ctx, cfg.History, slog.Default())
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if cfg.History.RetentionMode == "ephemeral" {
		slog.Info("history ephemeral, consultations stay in memory only")
	} else {
		slog.Info("history store open", "path", cfg.History.Path)
	}

	// Create the session manager and start its idle sweeper.
	manager := session.NewManager(analyzer, synthesizer, store, cfg.Session, cfg.Analysis.Image)
	go manager.Run(ctx)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled — enable at least one in config")
		os.Exit(1)
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, version)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, manager); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("medassist ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("medassist stopped")
}
