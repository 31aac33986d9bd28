package audio

import (
	"errors"
	"math"
)

// SpeechDetector scores one frame of mono audio. Implementations may keep
// context between frames; Reset clears it between independent sessions.
type SpeechDetector interface {
	SpeechProbability(frame []float32, sampleRate int) (float64, error)
	Reset()
}

var ErrEmptyFrame = errors.New("empty audio frame")

const (
	DefaultSpeechLevel = 0.05
	DefaultSmoothing   = 0.5
)

// EnergyDetector maps the RMS level of a frame onto [0, 1] relative to
// SpeechLevel and smooths the result with an exponential moving average.
type EnergyDetector struct {
	speechLevel float64
	smoothing   float64
	prev        float64
}

// NewEnergyDetector returns a detector. speechLevel is the RMS that maps to
// probability 1; smoothing in [0, 1) is the weight of the previous frame.
func NewEnergyDetector(speechLevel, smoothing float64) *EnergyDetector {
	if speechLevel <= 0 {
		speechLevel = DefaultSpeechLevel
	}
	if smoothing < 0 || smoothing >= 1 {
		smoothing = DefaultSmoothing
	}
	return &EnergyDetector{speechLevel: speechLevel, smoothing: smoothing}
}

func (d *EnergyDetector) SpeechProbability(frame []float32, _ int) (float64, error) {
	if len(frame) == 0 {
		return 0, ErrEmptyFrame
	}

	p := math.Min(rms(frame)/d.speechLevel, 1)
	d.prev = d.smoothing*d.prev + (1-d.smoothing)*p
	return d.prev, nil
}

func (d *EnergyDetector) Reset() { d.prev = 0 }

func rms(frame []float32) float64 {
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
