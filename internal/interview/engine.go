package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
)

var (
	// ErrBusy is returned when a turn is requested while another one is still running.
	ErrBusy = errors.New("another turn is in progress")
	// ErrEmptyAnswer is returned for a blank message once the interview has started.
	ErrEmptyAnswer = errors.New("answer must not be empty")
)

// Status is the kind of outcome of one engine turn.
type Status string

const (
	StatusQuestion Status = "question"
	StatusReport   Status = "report"
	StatusError    Status = "error"
)

// Response is the outcome of one engine turn.
type Response struct {
	Status Status `json:"status"`
	Text   string `json:"text"`
	Topic  string `json:"current_topic,omitempty"`
}

// Phase is the position of the engine in the dialogue state machine.
type Phase string

const (
	PhaseNotStarted       Phase = "not_started"
	PhaseAwaitingFirst    Phase = "awaiting_first_response"
	PhaseAwaitingAdaptive Phase = "awaiting_adaptive_response"
	PhaseCompleted        Phase = "completed"
)

var (
	DefaultGreetingKeywords    = []string{"да", "готов", "конечно", "начали", "поехали"}
	DefaultVacancyDoneKeywords = []string{"нет", "все понятно", "всё понятно", "пока нет", "спасибо"}
)

// Config holds the language-specific fast path keywords.
type Config struct {
	GreetingKeywords    []string
	VacancyDoneKeywords []string
}

func (c Config) withDefaults() Config {
	if len(c.GreetingKeywords) == 0 {
		c.GreetingKeywords = DefaultGreetingKeywords
	}
	if len(c.VacancyDoneKeywords) == 0 {
		c.VacancyDoneKeywords = DefaultVacancyDoneKeywords
	}
	return c
}

// Engine sequences one interview over its topic plan.
type Engine struct {
	setup     *Setup
	completer ai.Completer
	evaluator Evaluator
	cfg       Config
	logger    *zap.Logger

	busy    atomic.Bool
	started bool
	state   *State
}

// NewEngine creates an engine for setup. setup.Topics must form a valid plan.
func NewEngine(setup *Setup, completer ai.Completer, evaluator Evaluator, cfg Config, log *zap.Logger) (*Engine, error) {
	if setup == nil {
		return nil, errors.New("interview setup is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}

	plan, err := NewPlan(setup.Topics)
	if err != nil {
		return nil, err
	}

	own := setup.WithTopics(plan.Topics())

	return &Engine{
		setup:     own,
		completer: completer,
		evaluator: evaluator,
		cfg:       cfg.withDefaults(),
		logger: logger.WithFields(log,
			zap.String("vacancy", own.Vacancy.Title),
			zap.Int("topics", plan.Len()),
		),
		state: NewState(plan),
	}, nil
}

func (e *Engine) Started() bool { return e.started }

func (e *Engine) Finished() bool { return e.state.IsFinished() }

// State returns a copy of the current interview state.
func (e *Engine) State() *State { return e.state.clone() }

func (e *Engine) Setup() Setup { return *e.setup }

func (e *Engine) Phase() Phase {
	if !e.started {
		return PhaseNotStarted
	}
	ts, err := e.state.CurrentTopicState()
	if err != nil {
		return PhaseCompleted
	}
	if ts.QuestionsAsked <= 1 {
		return PhaseAwaitingFirst
	}
	return PhaseAwaitingAdaptive
}

// Process runs one turn. The first call starts the interview and ignores message.
// Every turn works on a copy of the state that is committed only on success, so
// an error response leaves the interview exactly as it was.
func (e *Engine) Process(ctx context.Context, message string) Response {
	if !e.busy.CompareAndSwap(false, true) {
		return errorResponse(ErrBusy)
	}
	defer e.busy.Store(false)

	if e.state.IsFinished() {
		report, _ := e.state.FinalReport()
		return Response{Status: StatusReport, Text: report}
	}

	message = strings.TrimSpace(message)
	if e.started && message == "" {
		return errorResponse(ErrEmptyAnswer)
	}

	next := e.state.clone()

	var (
		resp Response
		err  error
	)
	if !e.started {
		resp, err = e.start(ctx, next)
	} else {
		resp, err = e.turn(ctx, next, message)
	}

	if err != nil {
		e.logger.Warn("interview turn failed", zap.Error(err), zap.Int("topic_index", e.state.Index()))
		return errorResponse(err)
	}

	e.started = true
	e.state = next

	e.logger.Debug("interview turn",
		zap.String("status", string(resp.Status)),
		zap.String("topic", resp.Topic),
		zap.String("phase", string(e.Phase())),
	)

	return resp
}

func errorResponse(err error) Response {
	return Response{
		Status: StatusError,
		Text:   fmt.Sprintf("Произошла ошибка при обработке сообщения: %s", err),
	}
}

func (e *Engine) start(ctx context.Context, next *State) (Response, error) {
	topic, err := next.CurrentTopic()
	if err != nil {
		return Response{}, err
	}
	return e.askNext(ctx, next, topic)
}

func (e *Engine) turn(ctx context.Context, next *State, message string) (Response, error) {
	topic, err := next.CurrentTopic()
	if err != nil {
		return Response{}, err
	}
	ts, err := next.CurrentTopicState()
	if err != nil {
		return Response{}, err
	}

	if ts.QuestionsAsked > 0 && len(ts.History) > 0 {
		ts.History[len(ts.History)-1].Answer = message
	}

	if e.shouldEndTopic(ctx, topic, ts) {
		return e.completeTopic(ctx, next, topic, ts)
	}

	return e.askNext(ctx, next, topic)
}

// askNext asks the first or adaptive question of topic and records it.
func (e *Engine) askNext(ctx context.Context, next *State, topic Topic) (Response, error) {
	ts, ok := next.TopicState(topic.Name)
	if !ok {
		return Response{}, fmt.Errorf("%w: no state for topic %q", ErrOutOfRange, topic.Name)
	}

	in := promptInput{setup: e.setup, topic: topic, history: ts.History}
	style := styleFor(topic.Kind)
	req := style.adaptive(in)
	if ts.QuestionsAsked == 0 {
		req = style.first(in)
	}

	question, err := e.question(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("generating question for topic %q: %w", topic.Name, err)
	}

	ts.ask(question)

	return Response{Status: StatusQuestion, Text: question, Topic: topic.Name}, nil
}

func (e *Engine) question(ctx context.Context, req questionRequest) (string, error) {
	if req.static != "" {
		return req.static, nil
	}

	text, err := e.completer.Complete(ctx, req.prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty question")
	}
	return text, nil
}

func (e *Engine) shouldEndTopic(ctx context.Context, topic Topic, ts *TopicState) bool {
	answer := strings.ToLower(ts.LastAnswer())

	switch topic.Kind {
	case KindGreeting:
		if containsAny(answer, e.cfg.GreetingKeywords) {
			return true
		}
	case KindVacancyInfo:
		if ts.QuestionsAsked > 1 && containsAny(answer, e.cfg.VacancyDoneKeywords) {
			return true
		}
	}

	end, err := e.evaluator.ShouldEndTopic(ctx, TopicRequest{Topic: topic, Setup: e.setup, History: ts.History})
	if err != nil {
		e.logger.Warn("end of topic check failed, continuing topic",
			append(logger.TopicFields(topic.Name, string(topic.Kind)), zap.Error(err))...,
		)
		return false
	}
	return end
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func (e *Engine) completeTopic(ctx context.Context, next *State, topic Topic, ts *TopicState) (Response, error) {
	if topic.Kind.Summarized() {
		summary, err := e.evaluator.SummarizeTopic(ctx, TopicRequest{Topic: topic, Setup: e.setup, History: ts.History})
		if err != nil {
			return Response{}, fmt.Errorf("summarizing topic %q: %w", topic.Name, err)
		}
		if summary == nil {
			return Response{}, fmt.Errorf("%w: empty summary for topic %q", ErrSchema, topic.Name)
		}
		if summary.Kind != topic.Kind {
			return Response{}, fmt.Errorf("%w: summary kind %q for topic %q of kind %q", ErrSchema, summary.Kind, topic.Name, topic.Kind)
		}
		if err := summary.Validate(); err != nil {
			return Response{}, err
		}
		if err := next.Profile().put(topic.Name, summary); err != nil {
			return Response{}, err
		}
	}

	e.logger.Info("topic completed", logger.TopicFields(topic.Name, string(topic.Kind))...)

	if next.Advance() {
		upcoming, err := next.CurrentTopic()
		if err != nil {
			return Response{}, err
		}
		return e.askNext(ctx, next, upcoming)
	}

	report, err := e.finalReport(ctx, next)
	if err != nil {
		return Response{}, err
	}

	next.Finish()
	if err := next.setFinalReport(report); err != nil {
		return Response{}, err
	}

	e.logger.Info("interview completed", zap.Int("profile_entries", next.Profile().Len()))

	return Response{Status: StatusReport, Text: report}, nil
}

func (e *Engine) finalReport(ctx context.Context, next *State) (string, error) {
	prompt := render(finalReportTemplate, map[string]string{
		"VACANCY_NAME": e.setup.Vacancy.Title,
		"EVALUATIONS":  next.Profile().Format(next.Plan()),
	})

	report, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating final report: %w", err)
	}
	if strings.TrimSpace(report) == "" {
		return "", errors.New("generating final report: model returned an empty report")
	}
	return report, nil
}
