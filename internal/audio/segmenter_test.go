package audio

import (
	"errors"
	"testing"
)

type scriptedDetector struct {
	probs  []float64
	calls  int
	resets int
	err    error
}

func (d *scriptedDetector) SpeechProbability([]float32, int) (float64, error) {
	if d.err != nil {
		return 0, d.err
	}
	p := 0.0
	if d.calls < len(d.probs) {
		p = d.probs[d.calls]
	}
	d.calls++
	return p, nil
}

func (d *scriptedDetector) Reset() { d.resets++ }

// 100 ms frames at 16 kHz.
const testFrame = 1600

func frameOf(v float32) []float32 {
	frame := make([]float32, testFrame)
	for i := range frame {
		frame[i] = v
	}
	return frame
}

func newTestSegmenter(t *testing.T, probs ...float64) (*Segmenter, *scriptedDetector) {
	t.Helper()
	detector := &scriptedDetector{probs: probs}
	seg, err := NewSegmenter(Config{}, detector)
	if err != nil {
		t.Fatalf("new segmenter: %v", err)
	}
	detector.resets = 0
	return seg, detector
}

func TestSegmenterSilenceOnlyContinues(t *testing.T) {
	t.Parallel()

	seg, _ := newTestSegmenter(t)
	// 10 seconds of silence, well past the max silence ceiling.
	for i := 0; i < 100; i++ {
		res, err := seg.Process(frameOf(0))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if res.Event != Continue {
			t.Fatalf("frame %d: expected continue, got %s", i, res.Event)
		}
	}
	if seg.State() != Silent || seg.Buffered() != 0 {
		t.Fatalf("expected silent empty segmenter")
	}
}

func TestSegmenterExactMinSilenceEmitsOneUtterance(t *testing.T) {
	t.Parallel()

	// Two speech frames, then exactly 300 ms of silence.
	seg, detector := newTestSegmenter(t, 0.9, 0.8, 0.1, 0.1, 0.1, 0.1, 0.1)

	inputs := [][]float32{frameOf(0.5), frameOf(0.4), frameOf(0.01), frameOf(0.02), frameOf(0.03)}
	var events []Event
	var audio []float32
	for _, frame := range inputs {
		res, err := seg.Process(frame)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, res.Event)
		if res.Event == UtteranceReady {
			audio = res.Audio
		}
	}

	want := []Event{Continue, Continue, Continue, Continue, UtteranceReady}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("frame %d: expected %s, got %s", i, want[i], events[i])
		}
	}

	// Buffer is the speech frames followed by the frame that closed the silence.
	if len(audio) != 3*testFrame {
		t.Fatalf("expected %d samples, got %d", 3*testFrame, len(audio))
	}
	if audio[0] != 0.5 || audio[testFrame] != 0.4 || audio[2*testFrame] != 0.03 {
		t.Fatalf("unexpected utterance layout")
	}

	if seg.State() != Silent || seg.Buffered() != 0 {
		t.Fatalf("expected cleared buffer after utterance")
	}
	if detector.resets != 0 {
		t.Fatalf("utterance must keep detector context, got %d resets", detector.resets)
	}

	// Further silence after the utterance is not a second utterance.
	for i := 0; i < 40; i++ {
		if res, _ := seg.Process(frameOf(0)); res.Event != Continue {
			t.Fatalf("expected continue after utterance, got %s", res.Event)
		}
	}
}

func TestSegmenterSpeechResumesDuringTrailingSilence(t *testing.T) {
	t.Parallel()

	seg, _ := newTestSegmenter(t, 0.9, 0.1, 0.1, 0.9, 0.1, 0.1, 0.1)

	for i := 0; i < 3; i++ {
		if res, _ := seg.Process(frameOf(0.1)); res.Event != Continue {
			t.Fatalf("frame %d: expected continue", i)
		}
	}
	if seg.State() != TrailingSilence {
		t.Fatalf("expected trailing silence, got %s", seg.State())
	}

	if res, _ := seg.Process(frameOf(0.1)); res.Event != Continue || seg.State() != Speaking {
		t.Fatalf("expected speaking after speech frame")
	}

	var res Result
	for i := 0; i < 3; i++ {
		res, _ = seg.Process(frameOf(0.1))
	}
	if res.Event != UtteranceReady {
		t.Fatalf("expected utterance, got %s", res.Event)
	}
	if len(res.Audio) != 3*testFrame {
		t.Fatalf("expected both speech frames plus closing frame, got %d samples", len(res.Audio))
	}
}

func TestSegmenterForceStopAtSilenceCeiling(t *testing.T) {
	t.Parallel()

	// Probabilities inside the hysteresis band never start trailing silence.
	probs := []float64{0.9}
	for i := 0; i < 40; i++ {
		probs = append(probs, 0.27)
	}
	seg, detector := newTestSegmenter(t, probs...)

	if res, _ := seg.Process(frameOf(0.2)); res.Event != Continue {
		t.Fatalf("expected continue on speech")
	}

	var res Result
	frames := 0
	for res.Event == Continue && frames < 40 {
		res, _ = seg.Process(frameOf(0.05))
		frames++
	}

	if res.Event != ForceStop {
		t.Fatalf("expected force stop, got %s", res.Event)
	}
	if frames != 30 {
		t.Fatalf("expected force stop after 3 s of silence, got %d frames", frames)
	}
	if len(res.Audio) != testFrame {
		t.Fatalf("expected the speech frame in force stop audio, got %d samples", len(res.Audio))
	}
	if detector.resets != 1 {
		t.Fatalf("force stop must reset the detector, got %d", detector.resets)
	}
	if seg.State() != Silent || seg.Buffered() != 0 {
		t.Fatalf("expected full reset")
	}
}

func TestSegmenterErrors(t *testing.T) {
	t.Parallel()

	detector := &scriptedDetector{err: errors.New("model crashed")}
	seg, err := NewSegmenter(Config{}, detector)
	if err != nil {
		t.Fatalf("new segmenter: %v", err)
	}
	if _, err := seg.Process(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	if _, err := seg.Process(frameOf(0.1)); err == nil {
		t.Fatalf("expected detector error")
	}

	if _, err := NewSegmenter(Config{}, nil); err == nil {
		t.Fatalf("expected error without detector")
	}
	if _, err := NewSegmenter(Config{Threshold: 0.3, Hysteresis: 0.5}, detector); err == nil {
		t.Fatalf("expected invalid hysteresis error")
	}
}

func TestSegmenterResetClearsDetector(t *testing.T) {
	t.Parallel()

	seg, detector := newTestSegmenter(t, 0.9)
	if _, err := seg.Process(frameOf(0.3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg.Reset()
	if detector.resets != 1 || seg.Buffered() != 0 || seg.State() != Silent {
		t.Fatalf("reset did not clear state")
	}
}

func TestSegmenterFlushReturnsPendingSpeech(t *testing.T) {
	t.Parallel()

	seg, detector := newTestSegmenter(t, 0.9, 0.9)
	seg.Process(frameOf(0.3))
	seg.Process(frameOf(0.3))

	audio := seg.Flush()
	if len(audio) != 2*testFrame {
		t.Fatalf("expected %d flushed samples, got %d", 2*testFrame, len(audio))
	}
	if seg.Buffered() != 0 || seg.State() != Silent {
		t.Fatalf("flush did not end the utterance")
	}
	if detector.resets != 0 {
		t.Fatalf("flush must keep detector context")
	}
	if again := seg.Flush(); len(again) != 0 {
		t.Fatalf("second flush returned %d samples", len(again))
	}
}
