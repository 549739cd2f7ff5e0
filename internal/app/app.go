// Package app drives a phrase practice session: one microphone stream
// per session, one recorder per attempt, immediate replay through the
// shared output device.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/config"
	"github.com/sayback/sayback/internal/device"
	"github.com/sayback/sayback/internal/format"
	"github.com/sayback/sayback/internal/platform"
	"github.com/sayback/sayback/internal/playback"
	"github.com/sayback/sayback/internal/record"
	"github.com/sayback/sayback/internal/store"
)

// Backend is what the app needs from the host audio layer: the
// microphone boundary, fresh capture sessions, and the shared output
// device.
type Backend interface {
	device.Microphone
	NewCapture(device.Stream) (device.Capture, error)
	Output() device.Output
}

// Archive persists finished artifacts.
type Archive interface {
	Save(ctx context.Context, a record.Artifact) (store.Recording, error)
}

type Config struct {
	Backend Backend
	Archive Archive // Optional - can be nil
	Profile platform.Profile
	Config  *config.Config
	Logger  zerolog.Logger
}

type App struct {
	backend Backend
	archive Archive
	player  *playback.Player
	primer  *playback.Primer
	profile platform.Profile
	cfg     *config.Config
	log     zerolog.Logger

	mu         sync.Mutex
	stream     device.Stream
	rec        *record.Recorder
	last       record.Artifact
	haveLast   bool
	cancelPlay func()
}

func New(cfg Config) *App {
	out := cfg.Backend.Output()
	return &App{
		backend: cfg.Backend,
		archive: cfg.Archive,
		player:  playback.New(out, cfg.Config.Playback.ReadyWait(), cfg.Logger),
		primer:  playback.NewPrimer(out, cfg.Profile, cfg.Logger),
		profile: cfg.Profile,
		cfg:     cfg.Config,
		log:     cfg.Logger,
	}
}

// BeginSession acquires the session's microphone stream.
func (a *App) BeginSession(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream != nil {
		return fmt.Errorf("session already active")
	}
	stream, err := a.backend.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire microphone: %w", err)
	}
	a.stream = stream
	a.log.Info().Msg("Session started")
	return nil
}

// EndSession discards any in-flight attempt and releases the stream.
func (a *App) EndSession() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec != nil {
		a.rec.Cancel()
		a.rec = nil
	}
	if a.cancelPlay != nil {
		a.cancelPlay()
		a.cancelPlay = nil
	}
	if a.stream != nil {
		a.backend.Release(a.stream)
		a.stream = nil
	}
	a.log.Info().Msg("Session ended")
}

// StartAttempt builds and starts a fresh recorder over the session
// stream. Call it synchronously from the user input handler: it also
// primes the output device, and the unlock grant needs the input call
// stack. A stream that died since acquisition is re-acquired once.
func (a *App) StartAttempt(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.primer.Prime()

	if a.stream == nil {
		return fmt.Errorf("no active session")
	}
	if a.rec != nil && a.rec.Recording() {
		return fmt.Errorf("attempt already in progress")
	}

	err := a.startAttemptLocked()
	if errors.Is(err, record.ErrMicDead) {
		a.log.Warn().Msg("Microphone stream went dead, re-acquiring")
		a.backend.Release(a.stream)
		a.stream = nil

		stream, aerr := a.backend.Acquire(ctx)
		if aerr != nil {
			return fmt.Errorf("failed to re-acquire microphone: %w", aerr)
		}
		a.stream = stream
		err = a.startAttemptLocked()
	}
	if err != nil {
		return err
	}

	a.log.Info().Msg("Recording attempt")
	return nil
}

func (a *App) startAttemptLocked() error {
	capture, err := a.backend.NewCapture(a.stream)
	if err != nil {
		return fmt.Errorf("failed to open capture session: %w", err)
	}

	encodings := a.cfg.Audio.Encodings
	if len(encodings) == 0 {
		encodings = a.profile.Encodings
	}
	mime := format.Pick(encodings, capture.Supports)

	rec := record.New(record.Config{
		Device:    capture,
		Stream:    a.stream,
		Profile:   a.profile,
		MIMEType:  mime,
		Timeslice: a.cfg.Audio.Timeslice(),
		StopWait:  a.cfg.Audio.StopWait(),
		Logger:    a.log,
	})
	if err := rec.Start(); err != nil {
		return err
	}
	a.rec = rec
	return nil
}

// StopAttempt finalizes the current attempt and keeps its artifact for
// replay.
func (a *App) StopAttempt() (record.Artifact, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec == nil {
		return record.Artifact{}, fmt.Errorf("no attempt in progress")
	}

	artifact := a.rec.Stop()
	a.rec = nil
	a.last = artifact
	a.haveLast = true

	a.log.Info().Dur("duration", artifact.Duration).Int("bytes", len(artifact.EncodedAudio)).Msg("Attempt finished")
	return artifact, nil
}

// CancelAttempt discards the current attempt without keeping anything.
func (a *App) CancelAttempt() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec == nil {
		return
	}
	a.rec.Cancel()
	a.rec = nil
	a.log.Info().Msg("Attempt cancelled")
}

// Replay plays the last finished attempt. Call it synchronously from
// the user input handler for the same priming reason as StartAttempt.
// Any playback already in flight is superseded.
func (a *App) Replay(onEnded func(), onError func(error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.primer.Prime()

	if !a.haveLast {
		return fmt.Errorf("nothing recorded yet")
	}
	a.cancelPlay = a.player.Play(a.last, onEnded, onError)
	return nil
}

// StopReplay cancels whatever replay is in flight.
func (a *App) StopReplay() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelPlay != nil {
		a.cancelPlay()
		a.cancelPlay = nil
	}
}

// SaveLast archives the last finished attempt.
func (a *App) SaveLast(ctx context.Context) (store.Recording, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.haveLast {
		return store.Recording{}, fmt.Errorf("nothing recorded yet")
	}
	if a.archive == nil {
		return store.Recording{}, fmt.Errorf("no archive configured")
	}
	return a.archive.Save(ctx, a.last)
}

// Recording reports whether an attempt is currently capturing.
func (a *App) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec != nil && a.rec.Recording()
}
