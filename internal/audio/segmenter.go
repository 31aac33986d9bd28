package audio

import (
	"errors"
	"fmt"
)

// Event is the per-frame outcome of the segmenter.
type Event int

const (
	// Continue means keep sending frames.
	Continue Event = iota
	// UtteranceReady carries a finished utterance; detector context is kept.
	UtteranceReady
	// ForceStop carries the speech collected before the silence ceiling was
	// hit; the segmenter and the detector are fully reset.
	ForceStop
)

func (e Event) String() string {
	switch e {
	case Continue:
		return "continue"
	case UtteranceReady:
		return "utterance_ready"
	case ForceStop:
		return "force_stop"
	default:
		return "unknown"
	}
}

// State is the position of the segmenter in its state machine.
type State int

const (
	Silent State = iota
	Speaking
	TrailingSilence
)

func (s State) String() string {
	switch s {
	case Silent:
		return "silent"
	case Speaking:
		return "speaking"
	case TrailingSilence:
		return "trailing_silence"
	default:
		return "unknown"
	}
}

// Result of one Process call. Audio is set for UtteranceReady and ForceStop.
type Result struct {
	Event Event
	Audio []float32
}

const (
	DefaultThreshold    = 0.3
	DefaultHysteresis   = 0.05
	DefaultMinSilenceMs = 300
	DefaultMaxSilenceMs = 3000
	DefaultSampleRate   = 16000
)

type Config struct {
	Threshold    float64 `mapstructure:"threshold"`
	Hysteresis   float64 `mapstructure:"hysteresis"`
	MinSilenceMs int     `mapstructure:"min-silence-ms"`
	MaxSilenceMs int     `mapstructure:"max-silence-ms"`
	SampleRate   int     `mapstructure:"sample-rate"`
}

// WithDefaults fills zero fields with the default values.
func (c Config) WithDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Hysteresis == 0 {
		c.Hysteresis = DefaultHysteresis
	}
	if c.MinSilenceMs == 0 {
		c.MinSilenceMs = DefaultMinSilenceMs
	}
	if c.MaxSilenceMs == 0 {
		c.MaxSilenceMs = DefaultMaxSilenceMs
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	return c
}

func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v must be in (0, 1]", c.Threshold)
	}
	if c.Hysteresis < 0 || c.Hysteresis >= c.Threshold {
		return fmt.Errorf("hysteresis %v must be in [0, threshold)", c.Hysteresis)
	}
	if c.MinSilenceMs <= 0 || c.MaxSilenceMs <= 0 {
		return errors.New("silence durations must be positive")
	}
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	return nil
}

// Segmenter groups frames into utterances using a SpeechDetector. It is not
// safe for concurrent use; one session owns one segmenter.
type Segmenter struct {
	cfg        Config
	detector   SpeechDetector
	minSilence int
	maxSilence int

	buffer     []float32
	triggered  bool
	current    int
	lastSpeech int
	// silenceStart is the sample position where trailing silence began, or -1.
	silenceStart int
}

func NewSegmenter(cfg Config, detector SpeechDetector) (*Segmenter, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, errors.New("speech detector is required")
	}

	s := &Segmenter{
		cfg:        cfg,
		detector:   detector,
		minSilence: cfg.SampleRate * cfg.MinSilenceMs / 1000,
		maxSilence: cfg.SampleRate * cfg.MaxSilenceMs / 1000,
	}
	s.Reset()
	return s, nil
}

func (s *Segmenter) Config() Config { return s.cfg }

func (s *Segmenter) State() State {
	switch {
	case !s.triggered:
		return Silent
	case s.silenceStart >= 0:
		return TrailingSilence
	default:
		return Speaking
	}
}

// Buffered reports the number of samples collected for the current utterance.
func (s *Segmenter) Buffered() int { return len(s.buffer) }

// Reset clears all state including the detector context.
func (s *Segmenter) Reset() {
	s.detector.Reset()
	s.resetCounters()
	s.buffer = nil
}

// Flush returns the speech collected so far and ends the current utterance
// without reaching the silence threshold. The detector context is kept.
func (s *Segmenter) Flush() []float32 {
	audio := s.buffer
	s.buffer = nil
	s.triggered = false
	s.silenceStart = -1
	return audio
}

func (s *Segmenter) resetCounters() {
	s.triggered = false
	s.current = 0
	s.lastSpeech = 0
	s.silenceStart = -1
}

// Process consumes one frame.
func (s *Segmenter) Process(frame []float32) (Result, error) {
	if len(frame) == 0 {
		return Result{}, ErrEmptyFrame
	}

	p, err := s.detector.SpeechProbability(frame, s.cfg.SampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("speech probability: %w", err)
	}

	frameStart := s.current
	s.current += len(frame)

	if p >= s.cfg.Threshold {
		s.lastSpeech = s.current
		s.buffer = append(s.buffer, frame...)
		s.silenceStart = -1
		s.triggered = true
		return Result{Event: Continue}, nil
	}

	if !s.triggered {
		return Result{Event: Continue}, nil
	}

	if s.current-s.lastSpeech >= s.maxSilence {
		audio := s.buffer
		s.Reset()
		return Result{Event: ForceStop, Audio: audio}, nil
	}

	if p < s.cfg.Threshold-s.cfg.Hysteresis {
		if s.silenceStart < 0 {
			s.silenceStart = frameStart
		}
		if s.current-s.silenceStart >= s.minSilence {
			audio := append(s.buffer, frame...)
			s.buffer = nil
			s.triggered = false
			s.silenceStart = -1
			return Result{Event: UtteranceReady, Audio: audio}, nil
		}
	}

	return Result{Event: Continue}, nil
}
