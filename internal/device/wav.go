package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewinds to patch the header once the data length is known.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.buf) {
		grown := make([]byte, need)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(s.pos) + offset
	case io.SeekEnd:
		pos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("device: invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("device: seek before start of buffer")
	}
	s.pos = int(pos)
	return pos, nil
}

// encodeWAV containerizes mono float32 samples as 16-bit PCM WAV.
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	sb := &seekBuffer{}
	enc := wav.NewEncoder(sb, sampleRate, 16, 1, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(clampSample(s) * math.MaxInt16)
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav container: %w", err)
	}
	return sb.buf, nil
}

// decodeWAV extracts mono float32 samples and the sample rate from a
// WAV container.
func decodeWAV(encoded []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(encoded))
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav: %w", err)
	}

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / math.MaxInt16
	}
	return samples, int(dec.SampleRate), nil
}

// pcmBytes serializes mono float32 samples as 16-bit little-endian PCM.
func pcmBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampSample(s) * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// pcmSamples deserializes 16-bit little-endian PCM into float32 samples.
func pcmSamples(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / math.MaxInt16
	}
	return out
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// normalizeMIME strips parameters and case from a MIME type string.
func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}
