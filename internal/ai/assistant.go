package ai

import "context"

// Completer returns a text completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns one finished utterance into text. Samples are mono, in [-1, 1].
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Speech is synthesized mono PCM16 audio.
type Speech struct {
	Samples    []int16
	SampleRate int
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Speech, error)
}
