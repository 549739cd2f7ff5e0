// Package device defines the platform device boundary: microphone
// streams and their liveness, per-attempt capture sessions, and the
// process-wide shared output device.
package device

import (
	"context"
	"time"
)

// TrackState is the lifecycle state of a single audio track.
type TrackState int

const (
	TrackLive TrackState = iota
	TrackEnded
)

// Track is one audio track within a microphone stream.
type Track interface {
	State() TrackState
}

// Stream is a platform-owned live audio source. The core never manages
// its lifecycle; it is acquired and released by the session owner
// through a Microphone and only read for liveness here.
type Stream interface {
	AudioTracks() []Track
}

// Live reports whether a stream still has at least one audio track in
// the live state. A stream can end asynchronously (device unplugged,
// permission revoked) without any signal to waiting code, so callers
// must re-check immediately before starting a recording rather than
// trusting a cached result.
func Live(s Stream) bool {
	if s == nil {
		return false
	}
	for _, t := range s.AudioTracks() {
		if t.State() == TrackLive {
			return true
		}
	}
	return false
}

// Microphone acquires and releases microphone streams. Only the session
// owner calls it; recorders are handed a Stream and never release it.
type Microphone interface {
	Acquire(ctx context.Context) (Stream, error)
	Release(Stream)
}

// Capture is one recording session on the underlying capture device.
// A Capture is single-use: Start once, Stop once.
//
// Chunks delivers encoded data as the device produces it and is closed
// once the device has flushed everything after Stop. Done fires with
// that final flush. Some device backends never signal completion at
// all; callers must not block on Done without their own bound.
type Capture interface {
	// Start begins capturing. An empty mimeType selects the device's
	// default encoding. timeslice > 0 requests incremental delivery;
	// 0 means a single final lump at stop time.
	Start(mimeType string, timeslice time.Duration) error
	// Flush asks the device to emit whatever it has buffered so far.
	Flush()
	// Stop asks the device to stop capturing. Fails synchronously when
	// the device is already inactive.
	Stop() error
	Chunks() <-chan []byte
	Done() <-chan struct{}
	// MIMEType reports the encoding actually in use.
	MIMEType() string
	// Supports reports whether the device can produce mimeType. Device
	// backends may panic on inputs they have never heard of; callers go
	// through format.Pick, which tolerates that.
	Supports(mimeType string) bool
}

// Output is the process-wide shared output device. At most one source
// is current on it at a time. Ready, Ended and Errs refer to the
// current source and are replaced by the next SetSource; Halt detaches
// them. Some device backends never signal readiness, so callers must
// bound their wait on Ready.
type Output interface {
	// SetSource loads encoded audio as a self-contained in-memory
	// source, replacing whatever was current.
	SetSource(encoded []byte, mimeType string) error
	Ready() <-chan struct{}
	Play() error
	Ended() <-chan struct{}
	Errs() <-chan error
	// Halt stops output immediately and detaches the current source.
	// Safe to call at any time, including with no source loaded.
	Halt()
	// Unlock plays a minimal silent sound to satisfy platforms that
	// refuse programmatic playback until output has been activated from
	// inside a user input event. Blocks until the grant resolves.
	Unlock() error
}
