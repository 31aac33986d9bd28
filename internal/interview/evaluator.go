package interview

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/utils"
)

// ErrSchema is returned when a structured model answer does not match the expected shape.
var ErrSchema = errors.New("structured output does not match schema")

// DefaultAffirmativeToken is the only oracle answer that ends a topic.
const DefaultAffirmativeToken = "ДА"

// TopicRequest describes the topic an Evaluator is asked about.
type TopicRequest struct {
	Topic   Topic
	Setup   *Setup
	History []Exchange
}

// Evaluator makes the two model-backed judgments of the engine.
type Evaluator interface {
	// ShouldEndTopic asks whether the topic has been covered.
	ShouldEndTopic(ctx context.Context, req TopicRequest) (bool, error)
	// SummarizeTopic produces the profile entry of a completed hard or soft skill topic.
	SummarizeTopic(ctx context.Context, req TopicRequest) (*TopicSummary, error)
}

// LLMEvaluator implements Evaluator on top of a plain text completer.
type LLMEvaluator struct {
	completer   ai.Completer
	affirmative string
	logger      *zap.Logger
	maxLogLen   int
}

const defaultMaxLogLength = 200

func NewLLMEvaluator(completer ai.Completer, affirmative string, maxLogLength int, log *zap.Logger) *LLMEvaluator {
	affirmative = strings.TrimSpace(affirmative)
	if affirmative == "" {
		affirmative = DefaultAffirmativeToken
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &LLMEvaluator{
		completer:   completer,
		affirmative: affirmative,
		logger:      logger.WithFields(log),
		maxLogLen:   maxLogLength,
	}
}

func (e *LLMEvaluator) ShouldEndTopic(ctx context.Context, req TopicRequest) (bool, error) {
	in := promptInput{setup: req.Setup, topic: req.Topic, history: req.History}
	prompt := styleFor(req.Topic.Kind).endPrompt(in)

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return false, err
	}

	decision := IsAffirmative(raw, e.affirmative)
	e.logger.Debug("end of topic decision",
		zap.String("topic", req.Topic.Name),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
		zap.Bool("end", decision),
	)

	return decision, nil
}

func (e *LLMEvaluator) SummarizeTopic(ctx context.Context, req TopicRequest) (*TopicSummary, error) {
	in := promptInput{setup: req.Setup, topic: req.Topic, history: req.History}
	prompt, err := summaryPrompt(in)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("topic summary request",
		zap.String("topic", req.Topic.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("topic summary response",
		zap.String("topic", req.Topic.Name),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return ParseSummary(raw, req.Topic.Kind)
}

// IsAffirmative reports whether raw is exactly token, ignoring case and surrounding whitespace.
func IsAffirmative(raw, token string) bool {
	return strings.ToUpper(strings.TrimSpace(raw)) == strings.ToUpper(strings.TrimSpace(token))
}

type rawSummary struct {
	Score               int      `mapstructure:"score"`
	Strengths           []string `mapstructure:"strengths"`
	RedFlags            []string `mapstructure:"red_flags"`
	PracticalExperience string   `mapstructure:"practical_experience"`
	HonestyAnalysis     string   `mapstructure:"honesty_analysis"`
	BehavioralPatterns  []string `mapstructure:"behavioral_patterns"`
	ConsistencyAnalysis string   `mapstructure:"consistency_analysis"`
}

// ParseSummary parses a model answer into the summary schema of kind.
func ParseSummary(raw string, kind TopicKind) (*TopicSummary, error) {
	var parsed rawSummary
	data, err := decodeObject(raw, &parsed)
	if err != nil {
		return nil, err
	}

	summary := &TopicSummary{
		Kind:      kind,
		Score:     parsed.Score,
		Strengths: cleanList(parsed.Strengths),
		RedFlags:  cleanList(parsed.RedFlags),
	}

	switch kind {
	case KindHardSkill:
		if err := requireKeys(data, "score", "strengths", "red_flags", "practical_experience", "honesty_analysis"); err != nil {
			return nil, err
		}
		summary.Hard = &HardSkillDetails{
			PracticalExperience: strings.TrimSpace(parsed.PracticalExperience),
			HonestyAnalysis:     strings.TrimSpace(parsed.HonestyAnalysis),
		}
	case KindSoftSkill:
		if err := requireKeys(data, "score", "strengths", "red_flags", "behavioral_patterns", "consistency_analysis"); err != nil {
			return nil, err
		}
		summary.Soft = &SoftSkillDetails{
			BehavioralPatterns:  cleanList(parsed.BehavioralPatterns),
			ConsistencyAnalysis: strings.TrimSpace(parsed.ConsistencyAnalysis),
		}
	}

	if err := summary.Validate(); err != nil {
		return nil, err
	}

	return summary, nil
}
