// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// recstudiod runs the recording engine as a daemon: it owns the
// capture registry, the single session and the HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/recstudio/internal/api"
	"github.com/ManuGH/recstudio/internal/capture/sim"
	"github.com/ManuGH/recstudio/internal/config"
	"github.com/ManuGH/recstudio/internal/encoder"
	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/session"
	"github.com/ManuGH/recstudio/internal/source"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "recstudio",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("cannot create output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var capturer source.Capturer
	if cfg.SimCapture {
		logger.Info().Msg("using synthetic capture backend")
		capturer = sim.New()
	} else {
		logger.Fatal().Msg("no capture backend available on this host; set RECSTUDIO_SIM_CAPTURE=true")
	}
	registry := source.NewRegistry(capturer)

	enc := encoder.NewFFmpeg(encoder.WithBinary(cfg.FFmpegPath))

	sess := session.New(session.Config{
		CanvasWidth:   cfg.CanvasWidth,
		CanvasHeight:  cfg.CanvasHeight,
		FrameRate:     cfg.FrameRate,
		SampleRate:    cfg.SampleRate,
		MaxDuration:   cfg.MaxDuration,
		ChunkInterval: cfg.ChunkInterval,
		OutputDir:     cfg.OutputDir,
	}, registry, enc)

	srv := api.New(cfg, sess, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sess.Reset()
		registry.ReleaseAll(nil)
		return nil
	})

	logger.Info().
		Str("version", version).
		Str("listen", cfg.ListenAddr).
		Str("output_dir", cfg.OutputDir).
		Msg("recstudiod started")

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Msg("recstudiod stopped")
}
