package playback

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/platform"
)

func TestPrimeUnlocksOnce(t *testing.T) {
	out := newFakeOutput()
	p := NewPrimer(out, platform.Profile{GestureUnlock: true}, zerolog.Nop())

	p.Prime()
	p.Prime()

	if out.unlocks != 1 {
		t.Errorf("expected exactly one device unlock, got %d", out.unlocks)
	}
	if !p.Primed() {
		t.Error("primer should report primed after a successful unlock")
	}
}

func TestPrimeRetriesAfterFailure(t *testing.T) {
	out := newFakeOutput()
	out.unlockErr = errors.New("not inside an input event")
	p := NewPrimer(out, platform.Profile{GestureUnlock: true}, zerolog.Nop())

	p.Prime()
	if p.Primed() {
		t.Fatal("failed unlock must not mark the primer primed")
	}

	// Next input event: the unlock condition is now met.
	out.unlockErr = nil
	p.Prime()

	if !p.Primed() {
		t.Error("primer should retry and succeed on the next call")
	}
	if out.unlocks != 2 {
		t.Errorf("expected two unlock attempts, got %d", out.unlocks)
	}
}

func TestPrimeNoOpWithoutGestureRequirement(t *testing.T) {
	out := newFakeOutput()
	p := NewPrimer(out, platform.Profile{}, zerolog.Nop())

	p.Prime()

	if out.unlocks != 0 {
		t.Errorf("ungated platform should never touch the device, got %d unlocks", out.unlocks)
	}
	if !p.Primed() {
		t.Error("ungated platform counts as primed")
	}
}
