package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sayback/sayback/internal/app"
	"github.com/sayback/sayback/internal/config"
	"github.com/sayback/sayback/internal/device"
	"github.com/sayback/sayback/internal/logging"
	"github.com/sayback/sayback/internal/permissions"
	"github.com/sayback/sayback/internal/platform"
	"github.com/sayback/sayback/internal/store"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsureMicrophone(); err != nil {
		log.Fatal().Err(err).Msg("Microphone permission not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve platform quirks once; everything downstream reads the profile
	profile := platform.Detect()
	log.Info().Str("class", profile.Class.String()).Msg("Platform profile resolved")

	// Initialize the host audio backend
	backend, err := device.NewPortAudio(cfg.Audio, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer backend.Close()

	// Open the recording archive
	archive, err := store.Open(ctx, cfg.Store.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open recording store")
	}
	defer archive.Close()

	application := app.New(app.Config{
		Backend: backend,
		Archive: archive,
		Profile: profile,
		Config:  cfg,
		Logger:  log,
	})

	if err := application.BeginSession(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start practice session")
	}
	defer application.EndSession()

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		application.EndSession()
		os.Exit(0)
	}()

	fmt.Printf("sayback %s (%s)\n", Version, Commit)
	fmt.Println("enter: record/stop  p: replay  s: save  c: cancel  q: quit")

	// Terminal input loop. App methods that prime the output device are
	// called directly from here, inside the input handling stack.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			if application.Recording() {
				artifact, err := application.StopAttempt()
				if err != nil {
					log.Error().Err(err).Msg("Stop failed")
					continue
				}
				fmt.Printf("recorded %.1fs (%d bytes, %s)\n",
					artifact.Duration.Seconds(), len(artifact.EncodedAudio), artifact.MIMEType)
			} else {
				if err := application.StartAttempt(ctx); err != nil {
					log.Error().Err(err).Msg("Start failed")
					continue
				}
				fmt.Println("recording... press enter to stop")
			}
		case "p":
			err := application.Replay(
				func() { fmt.Println("replay finished") },
				func(err error) { log.Error().Err(err).Msg("Replay failed") },
			)
			if err != nil {
				log.Error().Err(err).Msg("Replay failed")
			}
		case "s":
			rec, err := application.SaveLast(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Save failed")
				continue
			}
			fmt.Printf("saved %s\n", rec.ID)
		case "c":
			application.CancelAttempt()
			application.StopReplay()
		case "q":
			return
		}
	}
}
