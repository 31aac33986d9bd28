package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/audio"
	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	defaultSTTModel = "gemini-2.5-flash"
	defaultTTSModel = "gemini-2.5-flash-preview-tts"
	defaultVoice    = "Kore"
	// Gemini TTS answers with raw PCM16 at 24 kHz unless the MIME type says otherwise.
	defaultTTSRate = 24000

	transcribeInstruction = "Транскрибируй речь из аудио на русском языке. Верни только распознанный текст без комментариев. Если речи нет, верни пустую строку."
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type genaiModels struct {
	client *genai.Client
}

func (m genaiModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, contents, config)
}

// Transcriber sends finished utterances to Gemini as inline WAV audio.
type Transcriber struct {
	models     contentGenerator
	model      string
	maxRetries int
	logger     *zap.Logger
}

func NewTranscriber(client *genai.Client, model string, maxRetries int, log *zap.Logger) (*Transcriber, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultSTTModel
	}
	return &Transcriber{
		models:     genaiModels{client: client},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

var _ ai.Transcriber = (*Transcriber)(nil)

// Transcribe returns the recognized text. An utterance without speech yields an empty string.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if sampleRate <= 0 {
		return "", fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	wav := audio.EncodeWAV(audio.ToInt16(samples), sampleRate)
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: transcribeInstruction},
			{InlineData: &genai.Blob{Data: wav, MIMEType: "audio/wav"}},
		},
	}}

	var text string
	err := retrier{maxRetries: t.maxRetries, logger: t.logger}.do(ctx, "transcribe", func() error {
		resp, err := t.models.GenerateContent(ctx, t.model, contents, nil)
		if err != nil {
			return fmt.Errorf("transcribe audio: %w", err)
		}
		text = responseText(resp)
		return nil
	})
	if err != nil {
		return "", err
	}

	t.logger.Debug("utterance transcribed",
		zap.Int("samples", len(samples)),
		zap.Int("text_length", len([]rune(text))),
	)
	return text, nil
}

// Synthesizer turns replies into speech with a prebuilt Gemini voice.
type Synthesizer struct {
	models     contentGenerator
	model      string
	voice      string
	maxRetries int
	logger     *zap.Logger
}

func NewSynthesizer(client *genai.Client, model, voice string, maxRetries int, log *zap.Logger) (*Synthesizer, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultTTSModel
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = defaultVoice
	}
	return &Synthesizer{
		models:     genaiModels{client: client},
		model:      model,
		voice:      voice,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

var _ ai.Synthesizer = (*Synthesizer)(nil)

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*ai.Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text to synthesize must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}

	var speech *ai.Speech
	err := retrier{maxRetries: s.maxRetries, logger: s.logger}.do(ctx, "synthesize", func() error {
		resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(text), config)
		if err != nil {
			return fmt.Errorf("synthesize speech: %w", err)
		}
		speech, err = speechFromResponse(resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("speech synthesized",
		zap.Int("samples", len(speech.Samples)),
		zap.Int("sample_rate", speech.SampleRate),
	)
	return speech, nil
}

func speechFromResponse(resp *genai.GenerateContentResponse) (*ai.Speech, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}

	var (
		data []byte
		rate int
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if rate == 0 {
				if r, ok := audio.RateFromMIME(part.InlineData.MIMEType); ok {
					rate = r
				}
			}
			data = append(data, part.InlineData.Data...)
		}
	}

	if len(data) == 0 {
		return nil, errors.New("gemini api returned no audio")
	}
	if rate == 0 {
		rate = defaultTTSRate
	}

	samples, err := audio.DecodePCM16(data)
	if err != nil {
		return nil, err
	}
	return &ai.Speech{Samples: samples, SampleRate: rate}, nil
}
