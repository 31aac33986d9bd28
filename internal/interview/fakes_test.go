package interview

import (
	"context"
	"strings"
	"sync"
)

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return "Расскажите подробнее.", nil
	}
	return fn(ctx, prompt)
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeCompleter) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeEvaluator struct {
	mu        sync.Mutex
	endCalls  int
	sumCalls  int
	endFn     func(req TopicRequest) (bool, error)
	summaryFn func(req TopicRequest) (*TopicSummary, error)
}

func (f *fakeEvaluator) ShouldEndTopic(_ context.Context, req TopicRequest) (bool, error) {
	f.mu.Lock()
	f.endCalls++
	fn := f.endFn
	f.mu.Unlock()

	if fn == nil {
		return false, nil
	}
	return fn(req)
}

func (f *fakeEvaluator) SummarizeTopic(_ context.Context, req TopicRequest) (*TopicSummary, error) {
	f.mu.Lock()
	f.sumCalls++
	fn := f.summaryFn
	f.mu.Unlock()

	if fn == nil {
		return validSummary(req.Topic.Kind), nil
	}
	return fn(req)
}

func validSummary(kind TopicKind) *TopicSummary {
	summary := &TopicSummary{
		Kind:      kind,
		Score:     75,
		Strengths: []string{"уверенно объясняет индексы"},
		RedFlags:  []string{},
	}
	switch kind {
	case KindHardSkill:
		summary.Hard = &HardSkillDetails{PracticalExperience: "5 лет", HonestyAnalysis: "совпадает с резюме"}
	case KindSoftSkill:
		summary.Soft = &SoftSkillDetails{BehavioralPatterns: []string{"берёт ответственность"}, ConsistencyAnalysis: "последовательно"}
	}
	return summary
}

func testSetup(topics ...Topic) *Setup {
	return &Setup{
		HRName: "Анна",
		Vacancy: VacancyProfile{
			Title:          "Backend Go developer",
			Description:    "Разработка платёжного шлюза.",
			RequiredSkills: []string{"Go", "SQL"},
			General:        "Мы финтех-компания, команда из 8 человек.",
		},
		ResumeContext: "Go разработчик, 5 лет опыта, PostgreSQL.",
		Topics:        topics,
	}
}

func reportPrompt(prompt string) bool {
	return strings.Contains(prompt, "Выводы по темам")
}
