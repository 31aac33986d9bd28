package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/utils"
)

const (
	DefaultMaxHardTopics = 5
	DefaultMaxSoftTopics = 2
)

// Planner asks the model for interview topics that fit a résumé and a vacancy.
type Planner struct {
	completer ai.Completer
	maxHard   int
	maxSoft   int
	logger    *zap.Logger
	maxLogLen int
}

func NewPlanner(completer ai.Completer, maxHard, maxSoft, maxLogLength int, log *zap.Logger) *Planner {
	if maxHard <= 0 {
		maxHard = DefaultMaxHardTopics
	}
	if maxSoft <= 0 {
		maxSoft = DefaultMaxSoftTopics
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Planner{
		completer: completer,
		maxHard:   maxHard,
		maxSoft:   maxSoft,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

type rawPlan struct {
	Hard []string `mapstructure:"hard_interview_topics"`
	Soft []string `mapstructure:"soft_interview_topics"`
}

// Plan returns the topic plan for setup. When the model fails or answers with
// no usable topics, the plan is built from the vacancy alone.
func (p *Planner) Plan(ctx context.Context, setup *Setup) ([]Topic, error) {
	if setup == nil {
		return nil, fmt.Errorf("interview setup is required")
	}

	vacancyJSON, err := json.MarshalIndent(setup.Vacancy, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal vacancy payload: %w", err)
	}

	prompt := render(planTemplate, map[string]string{
		"VACANCY_JSON": string(vacancyJSON),
		"RESUME":       setup.ResumeContext,
		"MAX_HARD":     strconv.Itoa(p.maxHard),
		"MAX_SOFT":     strconv.Itoa(p.maxSoft),
	})

	p.logger.Debug("plan request",
		zap.String("vacancy", setup.Vacancy.Title),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, p.maxLogLen)),
	)

	fallback := func(reason error) []Topic {
		p.logger.Warn("falling back to vacancy skills for interview plan", zap.Error(reason))
		return PlanFromVacancy(setup.Vacancy, setup.SoftTopics, p.maxHard)
	}

	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return fallback(err), nil
	}

	p.logger.Debug("plan response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)),
	)

	topics, err := p.parse(raw)
	if err != nil {
		return fallback(err), nil
	}
	return topics, nil
}

func (p *Planner) parse(raw string) ([]Topic, error) {
	var parsed rawPlan
	if _, err := decodeObject(raw, &parsed); err != nil {
		return nil, err
	}

	topics := assemblePlan(parsed.Hard, parsed.Soft, p.maxHard, p.maxSoft)
	if len(topics) == 2 {
		return nil, fmt.Errorf("%w: no topics in plan", ErrSchema)
	}
	return topics, nil
}

// PlannedSource wraps base so that setups without topics get a plan. A nil
// planner builds the plan from the vacancy skills.
func PlannedSource(base SetupSource, planner *Planner, maxHard int) SetupSource {
	return func(ctx context.Context, userID string) (*Setup, error) {
		setup, err := base(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(setup.Topics) > 0 {
			return setup, nil
		}

		if planner == nil {
			return setup.WithTopics(PlanFromVacancy(setup.Vacancy, setup.SoftTopics, maxHard)), nil
		}

		topics, err := planner.Plan(ctx, setup)
		if err != nil {
			return nil, err
		}
		return setup.WithTopics(topics), nil
	}
}
