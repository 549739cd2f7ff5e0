package format

import "testing"

func TestPickFirstSupported(t *testing.T) {
	candidates := []string{"audio/webm;codecs=opus", "audio/wav", "audio/pcm"}
	supported := func(m string) bool {
		return m == "audio/wav" || m == "audio/pcm"
	}

	got := Pick(candidates, supported)
	if got != "audio/wav" {
		t.Errorf("expected audio/wav, got %q", got)
	}
}

func TestPickRespectsCandidateOrder(t *testing.T) {
	supported := func(string) bool { return true }

	got := Pick([]string{"audio/pcm", "audio/wav"}, supported)
	if got != "audio/pcm" {
		t.Errorf("expected first candidate to win, got %q", got)
	}
}

func TestPickNoneSupported(t *testing.T) {
	got := Pick([]string{"audio/webm", "audio/ogg"}, func(string) bool { return false })
	if got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPickEmptyCandidates(t *testing.T) {
	if got := Pick(nil, func(string) bool { return true }); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPickNilQuery(t *testing.T) {
	if got := Pick([]string{"audio/wav"}, nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPickPanickingQueryTreatedAsUnsupported(t *testing.T) {
	calls := 0
	supported := func(m string) bool {
		calls++
		if m == "audio/webm" {
			panic("unrecognized mime type")
		}
		return true
	}

	got := Pick([]string{"audio/webm", "audio/wav"}, supported)
	if got != "audio/wav" {
		t.Errorf("expected panic to be treated as unsupported, got %q", got)
	}
	if calls != 2 {
		t.Errorf("expected both candidates queried, got %d calls", calls)
	}
}
