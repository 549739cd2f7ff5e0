package platform

import "testing"

func TestProfileFor(t *testing.T) {
	tests := []struct {
		goos            string
		class           Class
		flushBeforeStop bool
		lumpDelivery    bool
		gestureUnlock   bool
	}{
		{goos: "linux", class: ClassLinux},
		{goos: "darwin", class: ClassDarwin, flushBeforeStop: true, gestureUnlock: true},
		{goos: "windows", class: ClassWindows, lumpDelivery: true},
		{goos: "plan9", class: ClassOther, flushBeforeStop: true, lumpDelivery: true, gestureUnlock: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p := profileFor(tt.goos)
			if p.Class != tt.class {
				t.Errorf("expected class %v, got %v", tt.class, p.Class)
			}
			if p.FlushBeforeStop != tt.flushBeforeStop {
				t.Errorf("FlushBeforeStop: expected %v, got %v", tt.flushBeforeStop, p.FlushBeforeStop)
			}
			if p.LumpDelivery != tt.lumpDelivery {
				t.Errorf("LumpDelivery: expected %v, got %v", tt.lumpDelivery, p.LumpDelivery)
			}
			if p.GestureUnlock != tt.gestureUnlock {
				t.Errorf("GestureUnlock: expected %v, got %v", tt.gestureUnlock, p.GestureUnlock)
			}
			if len(p.Encodings) == 0 {
				t.Error("every profile should carry an encoding preference list")
			}
		})
	}
}

func TestDetectMatchesRunningPlatform(t *testing.T) {
	p := Detect()
	if p.Class.String() == "" {
		t.Fatal("detected profile has no class")
	}
}
