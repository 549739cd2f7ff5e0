package playback

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/device"
	"github.com/sayback/sayback/internal/platform"
)

// Primer performs the one-time unlock some platforms require before the
// shared output device honors a programmatic play. Call Prime
// synchronously from inside the user input handler that opens the
// session. The unlock grant is tied to that call stack, so no
// asynchronous hop may sit between the input event and the call.
type Primer struct {
	out      device.Output
	required bool
	log      zerolog.Logger

	mu     sync.Mutex
	primed bool
}

func NewPrimer(out device.Output, profile platform.Profile, log zerolog.Logger) *Primer {
	return &Primer{out: out, required: profile.GestureUnlock, log: log}
}

// Prime unlocks the output device by playing a minimal silent sound.
// No-op once unlocked, and on platforms that never gate output. A
// failed unlock (the input-event requirement was not met this time) is
// not fatal: the next Prime retries.
func (p *Primer) Prime() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.primed {
		return
	}
	if !p.required {
		p.primed = true
		return
	}
	if err := p.out.Unlock(); err != nil {
		p.log.Debug().Err(err).Msg("output unlock refused, will retry on next input")
		return
	}
	p.primed = true
	p.log.Debug().Msg("output device unlocked")
}

// Primed reports whether the unlock has succeeded.
func (p *Primer) Primed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primed
}
