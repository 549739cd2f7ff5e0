// Package platform resolves capture/playback quirks of the host
// platform into a single capability profile. The profile is detected
// once at startup; everything downstream branches on the profile, never
// on the platform itself.
package platform

import "runtime"

// Class is the broad platform family the process runs on.
type Class int

const (
	ClassLinux Class = iota
	ClassDarwin
	ClassWindows
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassLinux:
		return "linux"
	case ClassDarwin:
		return "darwin"
	case ClassWindows:
		return "windows"
	default:
		return "other"
	}
}

// Profile is the capability-negotiation table entry for one platform
// class.
type Profile struct {
	Class Class

	// FlushBeforeStop: the capture device does not flush buffered data
	// on its own when stopped, so a flush must be requested explicitly
	// before the stop instruction.
	FlushBeforeStop bool

	// LumpDelivery: the capture device delivers everything in one final
	// lump at stop time; asking for incremental timeslices is futile.
	LumpDelivery bool

	// GestureUnlock: the output device refuses its first playback
	// unless it was unlocked from inside a user input event.
	GestureUnlock bool

	// Encodings is the capture encoding preference order for this
	// class, best first.
	Encodings []string
}

// Detect resolves the profile for the running platform. Call it once at
// startup and pass the result down.
func Detect() Profile {
	return profileFor(runtime.GOOS)
}

func profileFor(goos string) Profile {
	switch goos {
	case "darwin":
		// CoreAudio holds on to its tail buffer until asked, and gates
		// first output on user activation.
		return Profile{
			Class:           ClassDarwin,
			FlushBeforeStop: true,
			GestureUnlock:   true,
			Encodings:       []string{"audio/wav", "audio/pcm"},
		}
	case "windows":
		// WASAPI backends report capture in one final block.
		return Profile{
			Class:        ClassWindows,
			LumpDelivery: true,
			Encodings:    []string{"audio/wav", "audio/pcm"},
		}
	case "linux":
		return Profile{
			Class:     ClassLinux,
			Encodings: []string{"audio/pcm", "audio/wav"},
		}
	default:
		// Unknown platforms get every safety behavior: flush
		// explicitly, expect lump delivery, require unlock.
		return Profile{
			Class:           ClassOther,
			FlushBeforeStop: true,
			LumpDelivery:    true,
			GestureUnlock:   true,
			Encodings:       []string{"audio/wav"},
		}
	}
}
