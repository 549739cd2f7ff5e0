package device

import "testing"

type fakeTrack struct {
	state TrackState
}

func (f fakeTrack) State() TrackState { return f.state }

type fakeStream struct {
	tracks []Track
}

func (f fakeStream) AudioTracks() []Track { return f.tracks }

func TestLiveNilStream(t *testing.T) {
	if Live(nil) {
		t.Error("nil stream should not be live")
	}
}

func TestLiveNoTracks(t *testing.T) {
	if Live(fakeStream{}) {
		t.Error("stream without audio tracks should not be live")
	}
}

func TestLiveEndedTrack(t *testing.T) {
	s := fakeStream{tracks: []Track{fakeTrack{state: TrackEnded}}}
	if Live(s) {
		t.Error("stream with only ended tracks should not be live")
	}
}

func TestLiveSingleLiveTrack(t *testing.T) {
	s := fakeStream{tracks: []Track{fakeTrack{state: TrackLive}}}
	if !Live(s) {
		t.Error("stream with a live track should be live")
	}
}

func TestLiveOneLiveAmongEnded(t *testing.T) {
	s := fakeStream{tracks: []Track{
		fakeTrack{state: TrackEnded},
		fakeTrack{state: TrackLive},
	}}
	if !Live(s) {
		t.Error("one live track is enough for liveness")
	}
}
