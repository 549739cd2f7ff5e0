package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/config"
)

const framesPerBuffer = 512

// PortAudio is the host audio backend. It implements the Microphone
// boundary, builds per-attempt capture sessions, and owns the
// process-wide shared output device.
type PortAudio struct {
	cfg config.AudioConfig
	log zerolog.Logger

	outOnce sync.Once
	out     *paOutput
}

// NewPortAudio initializes the PortAudio host backend.
func NewPortAudio(cfg config.AudioConfig, log zerolog.Logger) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &PortAudio{cfg: cfg, log: log}, nil
}

// Close terminates the backend. Call after releasing all streams.
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

// Acquire opens the configured (or default) input device and starts its
// read loop. The returned stream stays live until Release or until the
// device dies underneath it.
func (p *PortAudio) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Find device
	var dev *portaudio.DeviceInfo
	if p.cfg.DeviceID == "" {
		var err error
		dev, err = portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate devices: %w", err)
		}
		for _, d := range devices {
			if d.Name == p.cfg.DeviceID {
				dev = d
				break
			}
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("device not found: %s", p.cfg.DeviceID)
	}

	// Open stream: mono, configured sample rate, float32
	buffer := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.cfg.SampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	ps := &paStream{stream: stream, buffer: buffer, log: p.log}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	go ps.readLoop()

	p.log.Debug().Str("device", dev.Name).Int("rate", p.cfg.SampleRate).Msg("input stream acquired")
	return ps, nil
}

// Release ends a stream's track and closes the underlying device stream.
func (p *PortAudio) Release(s Stream) {
	ps, ok := s.(*paStream)
	if !ok || ps == nil {
		return
	}
	ps.close()
}

// NewCapture builds a fresh single-use capture session over an acquired
// stream. One session at a time per stream.
func (p *PortAudio) NewCapture(s Stream) (Capture, error) {
	ps, ok := s.(*paStream)
	if !ok {
		return nil, fmt.Errorf("device: stream was not acquired from this backend")
	}
	return &paCapture{
		src:        ps,
		sampleRate: p.cfg.SampleRate,
		log:        p.log,
		in:         make(chan []float32, 8),
		flush:      make(chan struct{}, 1),
		quit:       make(chan struct{}),
		chunks:     make(chan []byte, 8),
		done:       make(chan struct{}),
	}, nil
}

// Output returns the shared output device, created lazily on first use
// and kept for the process lifetime.
func (p *PortAudio) Output() Output {
	p.outOnce.Do(func() {
		p.out = &paOutput{sampleRate: p.cfg.SampleRate, log: p.log}
	})
	return p.out
}

// ===== INPUT STREAM =====

// paStream is a live portaudio input stream. Its read loop runs until
// Release or a device failure, feeding the attached capture session.
type paStream struct {
	stream *portaudio.Stream
	buffer []float32
	log    zerolog.Logger

	mu    sync.Mutex
	sink  chan<- []float32
	ended bool
}

func (s *paStream) AudioTracks() []Track {
	return []Track{(*paTrack)(s)}
}

// paTrack exposes the stream's single mono track.
type paTrack paStream

func (t *paTrack) State() TrackState {
	s := (*paStream)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return TrackEnded
	}
	return TrackLive
}

func (s *paStream) readLoop() {
	for {
		if err := s.stream.Read(); err != nil {
			s.mu.Lock()
			alreadyEnded := s.ended
			s.ended = true
			s.sink = nil
			s.mu.Unlock()
			if !alreadyEnded {
				s.log.Debug().Err(err).Msg("input stream ended")
			}
			return
		}

		// Copy buffer and hand off
		samples := make([]float32, len(s.buffer))
		copy(samples, s.buffer)

		s.mu.Lock()
		sink := s.sink
		s.mu.Unlock()
		if sink != nil {
			select {
			case sink <- samples:
			default:
				// Drop if the consumer lags (backpressure)
			}
		}
	}
}

func (s *paStream) attach(sink chan<- []float32) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *paStream) detach() {
	s.mu.Lock()
	s.sink = nil
	s.mu.Unlock()
}

func (s *paStream) close() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.sink = nil
	s.mu.Unlock()

	s.stream.Stop()
	s.stream.Close()
}

// ===== CAPTURE SESSION =====

// paCapture is one recording attempt over an acquired stream. It
// accumulates samples and emits encoded chunks: audio/pcm incrementally
// per timeslice, audio/wav as one container finalized at stop (the
// header needs the final length, so WAV is inherently lump delivery).
type paCapture struct {
	src        *paStream
	sampleRate int
	log        zerolog.Logger

	in     chan []float32
	flush  chan struct{}
	quit   chan struct{}
	chunks chan []byte
	done   chan struct{}

	mu        sync.Mutex
	started   bool
	stopped   bool
	mime      string
	timeslice time.Duration
	pending   []float32
}

func (c *paCapture) Supports(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/pcm":
		return true
	}
	return false
}

func (c *paCapture) MIMEType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mime == "" {
		return "audio/wav"
	}
	return c.mime
}

func (c *paCapture) Start(mimeType string, timeslice time.Duration) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("device: capture session already started")
	}
	if mimeType == "" {
		// Device default
		mimeType = "audio/wav"
	}
	if !c.Supports(mimeType) {
		c.mu.Unlock()
		return fmt.Errorf("device: unsupported capture encoding %q", mimeType)
	}
	c.started = true
	c.mime = normalizeMIME(mimeType)
	c.timeslice = timeslice
	c.mu.Unlock()

	c.src.attach(c.in)
	go c.loop()
	return nil
}

func (c *paCapture) loop() {
	c.mu.Lock()
	incremental := c.mime == "audio/pcm" && c.timeslice > 0
	interval := c.timeslice
	c.mu.Unlock()

	var tick <-chan time.Time
	if incremental {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case samples := <-c.in:
			c.mu.Lock()
			c.pending = append(c.pending, samples...)
			c.mu.Unlock()
		case <-tick:
			c.emitPCM()
		case <-c.flush:
			if incremental {
				c.emitPCM()
			}
		case <-c.quit:
			return
		}
	}
}

func (c *paCapture) emitPCM() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	samples := c.pending
	c.pending = nil
	c.mu.Unlock()

	select {
	case c.chunks <- pcmBytes(samples):
	default:
		c.log.Warn().Int("samples", len(samples)).Msg("consumer lagging, dropping capture chunk")
	}
}

func (c *paCapture) Flush() {
	select {
	case c.flush <- struct{}{}:
	default:
	}
}

func (c *paCapture) Stop() error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("device: capture session inactive")
	}
	c.stopped = true
	mime := c.mime
	c.mu.Unlock()

	c.src.detach()
	close(c.quit)

	// Fold in anything the read loop delivered but the session loop
	// had not consumed yet.
drain:
	for {
		select {
		case samples := <-c.in:
			c.mu.Lock()
			c.pending = append(c.pending, samples...)
			c.mu.Unlock()
		default:
			break drain
		}
	}

	c.mu.Lock()
	samples := c.pending
	c.pending = nil
	c.mu.Unlock()

	switch mime {
	case "audio/pcm":
		if len(samples) > 0 {
			c.deliver(pcmBytes(samples))
		}
	default:
		encoded, err := encodeWAV(samples, c.sampleRate)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to containerize capture, delivering nothing")
		} else {
			c.deliver(encoded)
		}
	}

	close(c.chunks)
	close(c.done)
	return nil
}

func (c *paCapture) deliver(chunk []byte) {
	select {
	case c.chunks <- chunk:
	default:
		c.log.Warn().Int("bytes", len(chunk)).Msg("consumer lagging, dropping final capture chunk")
	}
}

func (c *paCapture) Chunks() <-chan []byte { return c.chunks }

func (c *paCapture) Done() <-chan struct{} { return c.done }

// ===== SHARED OUTPUT =====

// paOutput is the process-wide shared output device. At most one source
// is current on it; loading a new one or halting detaches the previous
// source and invalidates its channels.
type paOutput struct {
	sampleRate int
	log        zerolog.Logger

	mu       sync.Mutex
	cur      *paSource
	unlocked bool
}

type paSource struct {
	samples []float32
	rate    int
	ready   chan struct{}
	ended   chan struct{}
	errs    chan error
	stop    chan struct{}
	once    sync.Once
}

func (s *paSource) halt() {
	s.once.Do(func() { close(s.stop) })
}

func (s *paSource) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (o *paOutput) SetSource(encoded []byte, mimeType string) error {
	var samples []float32
	rate := o.sampleRate

	switch normalizeMIME(mimeType) {
	case "audio/pcm", "":
		samples = pcmSamples(encoded)
	case "audio/wav", "audio/x-wav":
		var err error
		samples, rate, err = decodeWAV(encoded)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("device: unsupported source type %q", mimeType)
	}

	src := &paSource{
		samples: samples,
		rate:    rate,
		ready:   make(chan struct{}),
		ended:   make(chan struct{}),
		errs:    make(chan error, 1),
		stop:    make(chan struct{}),
	}
	// The source is fully resident in memory, so buffering readiness
	// is immediate.
	close(src.ready)

	o.mu.Lock()
	if o.cur != nil {
		o.cur.halt()
	}
	o.cur = src
	o.mu.Unlock()
	return nil
}

func (o *paOutput) Ready() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil
	}
	return o.cur.ready
}

func (o *paOutput) Ended() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil
	}
	return o.cur.ended
}

func (o *paOutput) Errs() <-chan error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil
	}
	return o.cur.errs
}

func (o *paOutput) Play() error {
	o.mu.Lock()
	src := o.cur
	o.mu.Unlock()
	if src == nil {
		return fmt.Errorf("device: no source loaded")
	}
	go o.stream(src)
	return nil
}

func (o *paOutput) stream(src *paSource) {
	buffer := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(src.rate), len(buffer), &buffer)
	if err != nil {
		src.fail(fmt.Errorf("failed to open output stream: %w", err))
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		src.fail(fmt.Errorf("failed to start output stream: %w", err))
		return
	}
	defer stream.Stop()

	for off := 0; off < len(src.samples); off += len(buffer) {
		select {
		case <-src.stop:
			return
		default:
		}
		n := copy(buffer, src.samples[off:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			src.fail(fmt.Errorf("failed to write output: %w", err))
			return
		}
	}
	close(src.ended)
}

func (o *paOutput) Halt() {
	o.mu.Lock()
	if o.cur != nil {
		o.cur.halt()
		o.cur = nil
	}
	o.mu.Unlock()
}

// Unlock plays a short burst of silence synchronously in the caller's
// goroutine, which is what activation-gated output devices need.
func (o *paOutput) Unlock() error {
	o.mu.Lock()
	if o.unlocked {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	buffer := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(o.sampleRate), len(buffer), &buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	if err := stream.Write(); err != nil {
		stream.Stop()
		return fmt.Errorf("failed to write silence: %w", err)
	}
	stream.Stop()

	o.mu.Lock()
	o.unlocked = true
	o.mu.Unlock()
	return nil
}
