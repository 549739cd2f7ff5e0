// Package record turns a live microphone stream into a finished audio
// artifact, surviving capture devices that drop buffered data or never
// signal completion.
package record

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/device"
	"github.com/sayback/sayback/internal/platform"
)

// ErrMicDead means the stream failed its liveness check at start. The
// caller recovers by re-acquiring a stream; it is the only error this
// package surfaces.
var ErrMicDead = errors.New("record: microphone stream is not live")

// DefaultStopWait bounds the wait for the capture device's completion
// signal. Certain device combinations never deliver one, so Stop must
// resolve on its own.
const DefaultStopWait = 3 * time.Second

// DefaultTimeslice is the incremental delivery interval requested from
// devices that support it.
const DefaultTimeslice = 250 * time.Millisecond

// State is the Recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Artifact is the finalized result of one recording attempt. Immutable
// once produced; the Recorder holds no claim on it after returning it.
type Artifact struct {
	EncodedAudio []byte
	MIMEType     string
	Duration     time.Duration
}

type Config struct {
	Device  device.Capture
	Stream  device.Stream
	Profile platform.Profile
	// MIMEType is the negotiated capture encoding; empty lets the
	// device pick its default.
	MIMEType  string
	Timeslice time.Duration
	StopWait  time.Duration
	Logger    zerolog.Logger
}

// Recorder is a single-use state machine over one capture device
// session: idle → recording → stopping → stopped. Discard it after use
// and build a fresh one for the next attempt.
type Recorder struct {
	dev       device.Capture
	stream    device.Stream
	profile   platform.Profile
	mime      string
	timeslice time.Duration
	stopWait  time.Duration
	log       zerolog.Logger

	mu        sync.Mutex
	state     State
	chunks    [][]byte
	startedAt time.Time
	artifact  Artifact

	collectDone chan struct{}
	stopped     chan struct{}
}

func New(cfg Config) *Recorder {
	stopWait := cfg.StopWait
	if stopWait <= 0 {
		stopWait = DefaultStopWait
	}
	timeslice := cfg.Timeslice
	if timeslice <= 0 {
		timeslice = DefaultTimeslice
	}
	return &Recorder{
		dev:       cfg.Device,
		stream:    cfg.Stream,
		profile:   cfg.Profile,
		mime:      cfg.MIMEType,
		timeslice: timeslice,
		stopWait:  stopWait,
		log:       cfg.Logger,
		state:     StateIdle,
		stopped:   make(chan struct{}),
	}
}

// Start re-validates stream liveness and begins capture. A stream that
// went dead since acquisition fails with ErrMicDead before any device
// interaction, so no partially-started recorder leaks. Any other device
// fault is absorbed: the attempt proceeds and finalizes with whatever
// the device managed to deliver.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return fmt.Errorf("record: start from %s state", r.state)
	}
	if !device.Live(r.stream) {
		return ErrMicDead
	}

	r.chunks = nil
	r.startedAt = time.Now()

	timeslice := r.timeslice
	if r.profile.LumpDelivery {
		// The device delivers one final lump regardless; don't ask.
		timeslice = 0
	}
	if err := r.dev.Start(r.mime, timeslice); err != nil {
		r.log.Warn().Err(err).Msg("capture device refused start, attempt will finalize empty")
	}

	r.state = StateRecording
	r.collectDone = make(chan struct{})
	go r.collect()

	r.log.Debug().Str("mime", r.dev.MIMEType()).Dur("timeslice", timeslice).Msg("recording started")
	return nil
}

// collect is the sole reader of the device's data channel. It drains
// until the device closes the channel after its final flush.
func (r *Recorder) collect() {
	defer close(r.collectDone)
	for chunk := range r.dev.Chunks() {
		r.mu.Lock()
		if r.state == StateRecording || r.state == StateStopping {
			r.chunks = append(r.chunks, chunk)
		}
		r.mu.Unlock()
	}
}

// Stop finalizes the attempt and returns its artifact. It never fails:
// device faults and missing completion signals both degrade to
// finalizing from whatever was buffered. Idempotent: repeat calls
// return the same artifact without touching the device again.
func (r *Recorder) Stop() Artifact {
	r.mu.Lock()

	switch r.state {
	case StateStopped:
		a := r.artifact
		r.mu.Unlock()
		return a

	case StateIdle:
		// Never started: finalize an empty artifact.
		r.finalizeLocked(0)
		a := r.artifact
		r.mu.Unlock()
		return a

	case StateStopping:
		// Another caller is mid-stop; wait for its finalization.
		r.mu.Unlock()
		<-r.stopped
		r.mu.Lock()
		a := r.artifact
		r.mu.Unlock()
		return a
	}

	// StateRecording: transition before any asynchronous work so
	// concurrent callers observe stopping immediately.
	r.state = StateStopping
	elapsed := time.Since(r.startedAt)
	r.mu.Unlock()

	if r.profile.FlushBeforeStop {
		r.dev.Flush()
	}

	if err := r.dev.Stop(); err != nil {
		// Device already inactive or otherwise unhappy; the buffer is
		// all we will ever get.
		r.log.Debug().Err(err).Msg("capture device refused stop, finalizing from buffer")
	} else {
		r.awaitCompletion()
	}

	r.mu.Lock()
	r.finalizeLocked(elapsed)
	a := r.artifact
	r.mu.Unlock()
	return a
}

// awaitCompletion races the device's completion signal against the stop
// safety net. The timeout is a correctness guarantee, not tuning: Stop
// must always resolve even when the device never signals.
func (r *Recorder) awaitCompletion() {
	timer := time.NewTimer(r.stopWait)
	defer timer.Stop()

	select {
	case <-r.dev.Done():
		// Completion fired; give the collector the remainder of the
		// window to drain the final flush.
		select {
		case <-r.collectDone:
		case <-timer.C:
			r.log.Warn().Msg("capture device signalled done but kept its data channel open")
		}
	case <-r.collectDone:
	case <-timer.C:
		r.log.Warn().Dur("stop_wait", r.stopWait).Msg("capture device never signalled completion, finalizing from buffer")
	}
}

func (r *Recorder) finalizeLocked(elapsed time.Duration) {
	if r.state == StateStopped {
		return
	}

	size := 0
	for _, c := range r.chunks {
		size += len(c)
	}
	encoded := make([]byte, 0, size)
	for _, c := range r.chunks {
		encoded = append(encoded, c...)
	}
	r.chunks = nil

	r.artifact = Artifact{
		EncodedAudio: encoded,
		MIMEType:     r.dev.MIMEType(),
		Duration:     elapsed,
	}
	r.state = StateStopped
	close(r.stopped)

	r.log.Debug().Int("bytes", len(encoded)).Dur("duration", elapsed).Msg("recording finalized")
}

// Cancel hard-discards the attempt: best-effort device stop, errors
// ignored, no artifact guaranteed. The Recorder is spent afterwards.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		return
	}
	wasActive := r.state == StateRecording || r.state == StateStopping
	r.chunks = nil
	r.finalizeLocked(0)
	r.mu.Unlock()

	if wasActive {
		if err := r.dev.Stop(); err != nil {
			r.log.Debug().Err(err).Msg("ignoring device error on cancel")
		}
	}
}

// Recording reports whether the Recorder is in the recording state.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateRecording
}

// CurrentState reports the lifecycle state.
func (r *Recorder) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
