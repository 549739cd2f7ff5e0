// Package playback replays finished recording artifacts through the
// single shared output device, guarding against races between
// successive or cancelled playback attempts.
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/device"
	"github.com/sayback/sayback/internal/record"
)

// DefaultReadyWait bounds the wait for the output device's buffering
// readiness. Some device backends never report it; playback proceeds
// anyway when the window closes.
const DefaultReadyWait = 3 * time.Second

// token is the cooperative cancellation flag for one playback attempt.
// Once cancelled, every pending continuation for that attempt becomes a
// no-op; user callbacks are never delivered late.
type token struct {
	once sync.Once
	done chan struct{}
}

func newToken() *token {
	return &token{done: make(chan struct{})}
}

func (t *token) cancel() {
	t.once.Do(func() { close(t.done) })
}

func (t *token) cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Player owns all writes to the shared output device. Starting a new
// Play is the only way to preempt the current one: it synchronously
// cancels the in-flight attempt and halts the device before its own
// pipeline awaits anything, so at most one playback is ever active.
type Player struct {
	out       device.Output
	readyWait time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	current *token
}

func New(out device.Output, readyWait time.Duration, log zerolog.Logger) *Player {
	if readyWait <= 0 {
		readyWait = DefaultReadyWait
	}
	return &Player{out: out, readyWait: readyWait, log: log}
}

// Play starts replaying an artifact and returns a cancellation function
// synchronously. The cancel function stops device output immediately
// and silences both callbacks for this attempt, whatever state its
// async pipeline is in; calling it repeatedly is harmless. A cancelled
// or superseded attempt never invokes onEnded or onError.
func (p *Player) Play(a record.Artifact, onEnded func(), onError func(error)) func() {
	p.mu.Lock()
	if p.current != nil {
		p.current.cancel()
	}
	tok := newToken()
	p.current = tok
	// Supersede before any await: whatever the device was doing, for
	// whichever caller, stops here.
	p.out.Halt()
	p.mu.Unlock()

	go p.run(tok, a, onEnded, onError)

	return func() {
		tok.cancel()
		p.out.Halt()
	}
}

func (p *Player) run(tok *token, a record.Artifact, onEnded func(), onError func(error)) {
	// Inline, self-contained source: transient reference handles get
	// invalidated out from under playback on some device backends.
	// Loading happens under the player lock so a continuation of a
	// superseded attempt can never replace the successor's source.
	p.mu.Lock()
	if tok.cancelled() {
		p.mu.Unlock()
		return
	}
	err := p.out.SetSource(a.EncodedAudio, a.MIMEType)
	p.mu.Unlock()
	if err != nil {
		p.fail(tok, onError, err)
		return
	}

	timer := time.NewTimer(p.readyWait)
	defer timer.Stop()
	select {
	case <-p.out.Ready():
	case <-timer.C:
		p.log.Debug().Dur("ready_wait", p.readyWait).Msg("output never reported buffering, playing anyway")
	case <-tok.done:
		return
	}
	// Same locking discipline for the play instruction itself.
	p.mu.Lock()
	if tok.cancelled() {
		p.mu.Unlock()
		return
	}
	err = p.out.Play()
	p.mu.Unlock()
	if err != nil {
		p.fail(tok, onError, err)
		return
	}

	select {
	case <-p.out.Ended():
		if tok.cancelled() {
			return
		}
		if onEnded != nil {
			onEnded()
		}
	case err := <-p.out.Errs():
		p.fail(tok, onError, err)
	case <-tok.done:
	}
}

func (p *Player) fail(tok *token, onError func(error), err error) {
	if tok.cancelled() {
		return
	}
	p.log.Debug().Err(err).Msg("playback failed")
	if onError != nil {
		onError(err)
	}
}
