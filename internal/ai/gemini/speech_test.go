package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-interviewer/internal/audio"
)

type fakeModels struct {
	calls     int
	model     string
	contents  []*genai.Content
	config    *genai.GenerateContentConfig
	responses []fakeChatResponse
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	res := f.responses[f.calls]
	f.calls++
	return res.resp, res.err
}

func TestTranscriberSendsInlineWAV(t *testing.T) {
	models := &fakeModels{responses: []fakeChatResponse{{resp: textResponse("Я работал с PostgreSQL")}}}
	tr := &Transcriber{models: models, model: "stt", maxRetries: 1, logger: zap.NewNop()}

	text, err := tr.Transcribe(context.Background(), []float32{0.1, -0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Я работал с PostgreSQL" {
		t.Fatalf("unexpected text %q", text)
	}

	parts := models.contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil {
		t.Fatalf("expected instruction and inline audio, got %+v", parts)
	}
	blob := parts[1].InlineData
	if blob.MIMEType != "audio/wav" || len(blob.Data) != 44+6 || string(blob.Data[:4]) != "RIFF" {
		t.Fatalf("unexpected audio blob %s with %d bytes", blob.MIMEType, len(blob.Data))
	}
}

func TestTranscriberEmptyInput(t *testing.T) {
	models := &fakeModels{}
	tr := &Transcriber{models: models, model: "stt", logger: zap.NewNop()}

	text, err := tr.Transcribe(context.Background(), nil, 16000)
	if err != nil || text != "" {
		t.Fatalf("expected empty result, got %q, %v", text, err)
	}
	if models.calls != 0 {
		t.Fatalf("empty audio must not reach the model")
	}
	if _, err := tr.Transcribe(context.Background(), []float32{0.1}, 0); err == nil {
		t.Fatalf("expected error for invalid sample rate")
	}
}

func TestTranscriberRetries(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	models := &fakeModels{responses: []fakeChatResponse{
		{err: genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}},
		{resp: textResponse("да")},
	}}
	tr := &Transcriber{models: models, model: "stt", maxRetries: 2, logger: zap.NewNop()}

	text, err := tr.Transcribe(context.Background(), []float32{0.3}, 16000)
	if err != nil || text != "да" {
		t.Fatalf("expected retry to succeed, got %q, %v", text, err)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestSynthesizerDecodesPCM(t *testing.T) {
	samples := []int16{100, -100, 2000}
	models := &fakeModels{responses: []fakeChatResponse{{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: audio.EncodePCM16(samples), MIMEType: "audio/L16;codec=pcm;rate=24000"},
			}}},
		}},
	}}}}
	s := &Synthesizer{models: models, model: "tts", voice: "Kore", maxRetries: 1, logger: zap.NewNop()}

	speech, err := s.Synthesize(context.Background(), "Здравствуйте!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speech.SampleRate != 24000 || len(speech.Samples) != 3 || speech.Samples[2] != 2000 {
		t.Fatalf("unexpected speech %+v", speech)
	}

	if len(models.config.ResponseModalities) != 1 || models.config.ResponseModalities[0] != "AUDIO" {
		t.Fatalf("expected audio modality, got %v", models.config.ResponseModalities)
	}
	if got := models.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Kore" {
		t.Fatalf("unexpected voice %q", got)
	}
	if models.contents[0].Parts[0].Text != "Здравствуйте!" {
		t.Fatalf("unexpected text content")
	}
}

func TestSynthesizerErrors(t *testing.T) {
	s := &Synthesizer{models: &fakeModels{}, model: "tts", voice: "Kore", logger: zap.NewNop()}
	if _, err := s.Synthesize(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty text")
	}

	models := &fakeModels{responses: []fakeChatResponse{{resp: textResponse("no audio")}}}
	s = &Synthesizer{models: models, model: "tts", voice: "Kore", maxRetries: 1, logger: zap.NewNop()}
	if _, err := s.Synthesize(context.Background(), "текст"); err == nil {
		t.Fatalf("expected error without audio parts")
	}

	boom := errors.New("boom")
	models = &fakeModels{responses: []fakeChatResponse{{err: boom}}}
	s = &Synthesizer{models: models, model: "tts", voice: "Kore", maxRetries: 3, logger: zap.NewNop()}
	if _, err := s.Synthesize(context.Background(), "текст"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("non-API errors must not be retried, got %d calls", models.calls)
	}
}

func TestSpeechFromResponseDefaultsRate(t *testing.T) {
	speech, err := speechFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: []byte{1, 0}, MIMEType: "audio/pcm"}}}},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speech.SampleRate != defaultTTSRate || speech.Samples[0] != 1 {
		t.Fatalf("unexpected speech %+v", speech)
	}
}
