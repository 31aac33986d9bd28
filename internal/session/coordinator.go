package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/audio"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/utils"
)

const (
	DefaultFrameSize       = 512
	DefaultOutputChunkSize = 4800
	DefaultChunkDelayMs    = 50
	defaultWriteTimeout    = 5 * time.Second
)

// Interviews runs dialogue turns for a user.
type Interviews interface {
	Respond(ctx context.Context, userID, text string) (interview.Response, error)
}

// Conn is the part of a websocket connection used by a session.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// Config controls framing of incoming audio, segmentation and streaming of replies.
type Config struct {
	FrameSize       int          `mapstructure:"frame-size"`
	OutputChunkSize int          `mapstructure:"output-chunk-size"`
	ChunkDelayMs    int          `mapstructure:"chunk-delay-ms"`
	Segmenter       audio.Config `mapstructure:",squash"`
}

func (c Config) WithDefaults() Config {
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.OutputChunkSize <= 0 {
		c.OutputChunkSize = DefaultOutputChunkSize
	}
	if c.ChunkDelayMs < 0 {
		c.ChunkDelayMs = 0
	}
	c.Segmenter = c.Segmenter.WithDefaults()
	return c
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Gate        *Gate
	Interviews  Interviews
	Transcriber ai.Transcriber
	Synthesizer ai.Synthesizer
	// NewDetector builds the speech detector owned by one session.
	NewDetector func() audio.SpeechDetector
}

// Coordinator drives the audio sessions of admitted connections.
type Coordinator struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewCoordinator(deps Deps, cfg Config, log *zap.Logger) (*Coordinator, error) {
	switch {
	case deps.Gate == nil:
		return nil, errors.New("session gate is required")
	case deps.Interviews == nil:
		return nil, errors.New("interviews are required")
	case deps.Transcriber == nil:
		return nil, errors.New("transcriber is required")
	case deps.Synthesizer == nil:
		return nil, errors.New("synthesizer is required")
	}
	if deps.NewDetector == nil {
		deps.NewDetector = func() audio.SpeechDetector { return audio.NewEnergyDetector(0, 0) }
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Segmenter.Validate(); err != nil {
		return nil, fmt.Errorf("audio config: %w", err)
	}

	return &Coordinator{
		deps:   deps,
		cfg:    cfg,
		logger: logger.WithFields(log),
		now:    time.Now,
	}, nil
}

func (c *Coordinator) Gate() *Gate { return c.deps.Gate }

// AudioSession is the per-connection state of one candidate.
type AudioSession struct {
	ConnectionID    string
	UserID          string
	Active          bool
	ChunksProcessed int
	StartedAt       time.Time

	transcript []string
	framer     *audio.Framer
	segmenter  *audio.Segmenter
}

// PendingTranscript is the text recognized since the last hand-off.
func (s *AudioSession) PendingTranscript() string {
	return strings.Join(s.transcript, " ")
}

type inbound struct {
	messageType int
	data        []byte
}

// Serve processes the messages of an admitted connection until it is closed or
// ctx is done. Messages are handled one at a time in arrival order. The gate
// registration of connID is removed on return.
func (c *Coordinator) Serve(ctx context.Context, conn Conn, connID, userID string) error {
	defer c.deps.Gate.Disconnect(connID, userID)

	segmenter, err := audio.NewSegmenter(c.cfg.Segmenter, c.deps.NewDetector())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := &handler{
		Coordinator: c,
		conn:        conn,
		cancel:      cancel,
		log:         c.logger.With(logger.SessionFields(userID, connID)...),
		session: &AudioSession{
			ConnectionID: connID,
			UserID:       userID,
			framer:       audio.NewFramer(c.cfg.FrameSize),
			segmenter:    segmenter,
		},
	}
	defer h.teardown()

	messages := make(chan inbound)
	readErr := make(chan error, 1)
	go func() {
		defer close(messages)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				cancel()
				return
			}
			select {
			case messages <- inbound{messageType: mt, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.log.Info("connection opened")

	for {
		select {
		case <-ctx.Done():
			return closeError(readErr)
		case msg, ok := <-messages:
			if !ok {
				return closeError(readErr)
			}
			h.handle(ctx, msg)
		}
	}
}

func closeError(readErr <-chan error) error {
	select {
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return err
	default:
		return nil
	}
}

type handler struct {
	*Coordinator
	conn    Conn
	cancel  context.CancelFunc
	log     *zap.Logger
	session *AudioSession
}

func (h *handler) handle(ctx context.Context, in inbound) {
	if in.messageType != websocket.TextMessage {
		h.sendError(fmt.Errorf("%w: only text frames are accepted", ErrValidation))
		return
	}

	msg, err := DecodeClientMessage(in.data)
	if err != nil {
		h.sendError(err)
		return
	}

	switch msg.Type {
	case TypeAudioStart:
		h.start()
	case TypeAudioChunk:
		h.chunk(ctx, msg.Chunk)
	case TypeAudioEnd:
		h.end(ctx)
	default:
		h.sendError(fmt.Errorf("%w: unknown message type %q", ErrValidation, msg.Type))
	}
}

func (h *handler) start() {
	s := h.session
	if err := h.deps.Gate.Activate(s.ConnectionID, s.UserID); err != nil {
		h.sendError(err)
		return
	}

	s.segmenter.Reset()
	s.framer.Reset()
	s.Active = true
	s.ChunksProcessed = 0
	s.StartedAt = h.now()
	s.transcript = nil

	h.log.Info("audio session started")
}

func (h *handler) authorized() error {
	s := h.session
	if !s.Active || !h.deps.Gate.IsActive(s.ConnectionID, s.UserID) {
		return fmt.Errorf("%w: no active audio session for %s", ErrUnauthorized, s.UserID)
	}
	return nil
}

func (h *handler) chunk(ctx context.Context, payload string) {
	if err := h.authorized(); err != nil {
		h.sendError(err)
		return
	}

	samples, err := audio.DecodePCM16Base64(payload)
	if err != nil {
		h.sendError(fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}

	s := h.session
	s.ChunksProcessed++

	for _, frame := range s.framer.Push(audio.ToFloat32(samples)) {
		res, err := s.segmenter.Process(frame)
		if err != nil {
			h.log.Warn("segmentation failed", zap.Error(err))
			h.sendError(err)
			return
		}

		switch res.Event {
		case audio.UtteranceReady:
			h.transcribe(ctx, res.Audio)
		case audio.ForceStop:
			h.log.Debug("silence ceiling reached", zap.Int("samples", len(res.Audio)))
			h.transcribe(ctx, res.Audio)
			h.handOff(ctx)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (h *handler) transcribe(ctx context.Context, samples []float32) {
	if len(samples) == 0 {
		return
	}
	if h.send(ServerMessage{Type: TypeProcessingStart}) != nil {
		return
	}

	text, err := h.deps.Transcriber.Transcribe(ctx, samples, h.cfg.Segmenter.SampleRate)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		h.log.Warn("transcription failed", zap.Error(err))
		h.sendError(err)
	} else if text = strings.TrimSpace(text); text != "" {
		h.session.transcript = append(h.session.transcript, text)
		h.send(ServerMessage{Type: TypeProcessingResult, Text: text})
	}

	h.send(ServerMessage{Type: TypeProcessingEnd})
}

// handOff delivers the partial answer collected before a forced stop.
func (h *handler) handOff(ctx context.Context) {
	text := h.session.PendingTranscript()
	h.session.transcript = nil
	if text == "" {
		return
	}
	h.respond(ctx, text)
}

func (h *handler) end(ctx context.Context) {
	if err := h.authorized(); err != nil {
		h.sendError(err)
		return
	}
	defer h.teardown()

	h.transcribe(ctx, h.session.segmenter.Flush())
	if ctx.Err() != nil {
		return
	}

	text := h.session.PendingTranscript()
	if text == "" {
		h.sendError(fmt.Errorf("%w: no speech recognized", ErrValidation))
		return
	}
	h.respond(ctx, text)
}

func (h *handler) respond(ctx context.Context, text string) {
	if h.send(ServerMessage{Type: TypeProcessingStart}) != nil {
		return
	}

	resp, err := h.deps.Interviews.Respond(ctx, h.session.UserID, text)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		h.log.Warn("interview turn failed", zap.Error(err))
		h.sendError(err)
		h.send(ServerMessage{Type: TypeProcessingEnd})
		return
	}

	if h.send(ServerMessage{
		Type:   TypeLLMResponse,
		Text:   resp.Text,
		Status: string(resp.Status),
		Topic:  resp.Topic,
	}) != nil {
		return
	}

	if resp.Status != interview.StatusError {
		h.speak(ctx, resp.Text)
	}
	if ctx.Err() == nil {
		h.send(ServerMessage{Type: TypeProcessingEnd})
	}
}

func (h *handler) speak(ctx context.Context, text string) {
	speech, err := h.deps.Synthesizer.Synthesize(ctx, text)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		h.log.Warn("speech synthesis failed", zap.Error(err))
		h.sendError(err)
		return
	}
	if speech == nil || len(speech.Samples) == 0 {
		return
	}

	delay := time.Duration(h.cfg.ChunkDelayMs) * time.Millisecond
	chunks := audio.Chunk(speech.Samples, h.cfg.OutputChunkSize)
	for i, chunk := range chunks {
		last := i == len(chunks)-1
		if err := h.send(ServerMessage{
			Type:       TypeAudioResponse,
			Chunk:      audio.EncodePCM16Base64(chunk),
			SampleRate: speech.SampleRate,
			Seq:        i + 1,
			Final:      last,
		}); err != nil {
			return
		}
		if !last {
			if err := utils.WaitFor(ctx, delay); err != nil {
				return
			}
		}
	}
}

// teardown ends the audio session. It is safe to call more than once.
func (h *handler) teardown() {
	s := h.session
	if s.Active {
		h.deps.Gate.Release(s.UserID)
		h.log.Info("audio session finished",
			zap.Int("chunks", s.ChunksProcessed),
			zap.Duration("duration", h.now().Sub(s.StartedAt)),
		)
	}

	s.Active = false
	s.ChunksProcessed = 0
	s.StartedAt = time.Time{}
	s.transcript = nil
	s.segmenter.Reset()
	s.framer.Reset()
}

func (h *handler) sendError(err error) {
	h.send(errorMessage(err))
}

func (h *handler) send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_ = h.conn.SetWriteDeadline(h.now().Add(defaultWriteTimeout))
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("write failed, closing session", zap.Error(err))
		h.cancel()
		return err
	}
	return nil
}
