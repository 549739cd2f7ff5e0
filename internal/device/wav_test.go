package device

import (
	"math"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.9, -0.9, 1.5, -1.5}

	encoded, err := encodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(encoded) <= 44 {
		t.Fatalf("encoded wav suspiciously small: %d bytes", len(encoded))
	}

	decoded, rate, err := decodeWAV(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("expected rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}

	// Out-of-range inputs clamp to full scale; everything else survives
	// 16-bit quantization.
	want := []float32{0, 0.25, -0.25, 0.9, -0.9, 1, -1}
	for i := range want {
		if math.Abs(float64(decoded[i]-want[i])) > 1.0/float64(math.MaxInt16)*2 {
			t.Errorf("sample %d: expected ~%f, got %f", i, want[i], decoded[i])
		}
	}
}

func TestPCMRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	decoded := pcmSamples(pcmBytes(samples))

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 1.0/float64(math.MaxInt16)*2 {
			t.Errorf("sample %d: expected ~%f, got %f", i, samples[i], decoded[i])
		}
	}
}

func TestNormalizeMIME(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"audio/wav", "audio/wav"},
		{"Audio/WAV", "audio/wav"},
		{"audio/pcm; rate=16000", "audio/pcm"},
		{"  audio/x-wav ", "audio/x-wav"},
	}
	for _, tt := range tests {
		if got := normalizeMIME(tt.in); got != tt.out {
			t.Errorf("normalizeMIME(%q) = %q, expected %q", tt.in, got, tt.out)
		}
	}
}
