package interview

import (
	"errors"
	"fmt"
	"strings"
)

// TopicKind selects how a topic is asked about and summarized.
type TopicKind string

const (
	KindGreeting    TopicKind = "greeting"
	KindVacancyInfo TopicKind = "vacancy_info"
	KindHardSkill   TopicKind = "hard_skill"
	KindSoftSkill   TopicKind = "soft_skill"
)

// AllKinds lists every supported topic kind in declaration order.
var AllKinds = []TopicKind{KindGreeting, KindVacancyInfo, KindHardSkill, KindSoftSkill}

var (
	// ErrInvalidPlan is returned when a topic plan cannot be used for an interview.
	ErrInvalidPlan = errors.New("invalid topic plan")
	// ErrOutOfRange is returned when the current topic is requested after the interview finished.
	ErrOutOfRange = errors.New("topic index out of range")
)

func (k TopicKind) Valid() bool {
	switch k {
	case KindGreeting, KindVacancyInfo, KindHardSkill, KindSoftSkill:
		return true
	default:
		return false
	}
}

// Summarized reports whether completing a topic of this kind writes a profile entry.
func (k TopicKind) Summarized() bool {
	return k == KindHardSkill || k == KindSoftSkill
}

func (k TopicKind) String() string { return string(k) }

// Topic is one discussion segment of the interview.
type Topic struct {
	Name string    `json:"name" yaml:"name" mapstructure:"name"`
	Kind TopicKind `json:"kind" yaml:"kind" mapstructure:"kind"`
}

// Exchange is a single question with the candidate's answer.
// An empty Answer means the question is still awaiting a reply.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TopicState is the mutable conversation record of one topic.
type TopicState struct {
	QuestionsAsked int        `json:"questions_asked"`
	History        []Exchange `json:"history"`
}

func (ts *TopicState) ask(question string) {
	ts.History = append(ts.History, Exchange{Question: question})
	ts.QuestionsAsked++
}

// Awaiting reports whether the last question has no answer yet.
func (ts *TopicState) Awaiting() bool {
	return len(ts.History) > 0 && ts.History[len(ts.History)-1].Answer == ""
}

// LastAnswer returns the most recent answer, or an empty string.
func (ts *TopicState) LastAnswer() string {
	if len(ts.History) == 0 {
		return ""
	}
	return ts.History[len(ts.History)-1].Answer
}

func (ts *TopicState) clone() *TopicState {
	history := make([]Exchange, len(ts.History))
	copy(history, ts.History)
	return &TopicState{QuestionsAsked: ts.QuestionsAsked, History: history}
}

// Plan is the ordered, immutable list of topics of one interview.
type Plan struct {
	topics []Topic
}

// NewPlan validates topics and builds a plan from them.
func NewPlan(topics []Topic) (*Plan, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrInvalidPlan)
	}

	seen := make(map[string]struct{}, len(topics))
	normalized := make([]Topic, 0, len(topics))
	for i, topic := range topics {
		name := strings.TrimSpace(topic.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: topic %d has empty name", ErrInvalidPlan, i)
		}
		if !topic.Kind.Valid() {
			return nil, fmt.Errorf("%w: topic %q has unknown kind %q", ErrInvalidPlan, name, topic.Kind)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: duplicate topic %q", ErrInvalidPlan, name)
		}
		seen[name] = struct{}{}
		normalized = append(normalized, Topic{Name: name, Kind: topic.Kind})
	}

	return &Plan{topics: normalized}, nil
}

func (p *Plan) Len() int { return len(p.topics) }

// At returns the topic at position i.
func (p *Plan) At(i int) (Topic, error) {
	if i < 0 || i >= len(p.topics) {
		return Topic{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.topics))
	}
	return p.topics[i], nil
}

// Topics returns a copy of the plan's topics.
func (p *Plan) Topics() []Topic {
	out := make([]Topic, len(p.topics))
	copy(out, p.topics)
	return out
}

func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.topics))
	for _, t := range p.topics {
		names = append(names, t.Name)
	}
	return names
}
