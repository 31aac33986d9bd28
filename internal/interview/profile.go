package interview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrProfileEntryExists is returned when a topic summary is written twice.
var ErrProfileEntryExists = errors.New("profile entry already exists")

// TopicSummary is the structured evaluation of one completed hard or soft skill topic.
type TopicSummary struct {
	Kind      TopicKind `json:"kind"`
	Score     int       `json:"score"`
	Strengths []string  `json:"strengths"`
	RedFlags  []string  `json:"red_flags"`

	Hard *HardSkillDetails `json:"hard,omitempty"`
	Soft *SoftSkillDetails `json:"soft,omitempty"`
}

type HardSkillDetails struct {
	PracticalExperience string `json:"practical_experience"`
	HonestyAnalysis     string `json:"honesty_analysis"`
}

type SoftSkillDetails struct {
	BehavioralPatterns  []string `json:"behavioral_patterns"`
	ConsistencyAnalysis string   `json:"consistency_analysis"`
}

func (s *TopicSummary) clone() *TopicSummary {
	out := &TopicSummary{
		Kind:      s.Kind,
		Score:     s.Score,
		Strengths: append([]string(nil), s.Strengths...),
		RedFlags:  append([]string(nil), s.RedFlags...),
	}
	if s.Hard != nil {
		hard := *s.Hard
		out.Hard = &hard
	}
	if s.Soft != nil {
		out.Soft = &SoftSkillDetails{
			BehavioralPatterns:  append([]string(nil), s.Soft.BehavioralPatterns...),
			ConsistencyAnalysis: s.Soft.ConsistencyAnalysis,
		}
	}
	return out
}

// Validate checks the summary against the schema of its kind.
func (s *TopicSummary) Validate() error {
	if s.Score < 1 || s.Score > 100 {
		return fmt.Errorf("%w: score %d is outside 1..100", ErrSchema, s.Score)
	}
	switch s.Kind {
	case KindHardSkill:
		if s.Hard == nil || s.Soft != nil {
			return fmt.Errorf("%w: hard skill summary requires hard skill fields only", ErrSchema)
		}
	case KindSoftSkill:
		if s.Soft == nil || s.Hard != nil {
			return fmt.Errorf("%w: soft skill summary requires soft skill fields only", ErrSchema)
		}
	default:
		return fmt.Errorf("%w: topics of kind %q are not summarized", ErrSchema, s.Kind)
	}
	return nil
}

// lines renders the summary as "key: value" lines for the final report prompt.
func (s *TopicSummary) lines(topic string) []string {
	lines := []string{
		"НАЗВАНИЕ ТЕМЫ: " + topic,
		"score: " + strconv.Itoa(s.Score),
		"strengths: " + strings.Join(s.Strengths, " "),
		"red_flags: " + strings.Join(s.RedFlags, " "),
	}
	if s.Hard != nil {
		lines = append(lines,
			"practical_experience: "+s.Hard.PracticalExperience,
			"honesty_analysis: "+s.Hard.HonestyAnalysis,
		)
	}
	if s.Soft != nil {
		lines = append(lines,
			"behavioral_patterns: "+strings.Join(s.Soft.BehavioralPatterns, " "),
			"consistency_analysis: "+s.Soft.ConsistencyAnalysis,
		)
	}
	return lines
}

// Profile maps topic names to their summaries. Entries are write-once.
type Profile struct {
	entries map[string]*TopicSummary
}

func newProfile() *Profile {
	return &Profile{entries: make(map[string]*TopicSummary)}
}

// Get returns a copy of the summary stored for topic.
func (p *Profile) Get(topic string) (*TopicSummary, bool) {
	entry, ok := p.entries[topic]
	if !ok {
		return nil, false
	}
	return entry.clone(), true
}

func (p *Profile) Len() int { return len(p.entries) }

func (p *Profile) put(topic string, summary *TopicSummary) error {
	if _, ok := p.entries[topic]; ok {
		return fmt.Errorf("%w: %s", ErrProfileEntryExists, topic)
	}
	p.entries[topic] = summary.clone()
	return nil
}

func (p *Profile) clone() *Profile {
	out := newProfile()
	for name, entry := range p.entries {
		out.entries[name] = entry.clone()
	}
	return out
}

// Format renders every entry in plan order.
func (p *Profile) Format(plan *Plan) string {
	blocks := make([]string, 0, len(p.entries))
	for _, topic := range plan.topics {
		entry, ok := p.entries[topic.Name]
		if !ok {
			continue
		}
		blocks = append(blocks, strings.Join(entry.lines(topic.Name), "\n"))
	}
	return strings.Join(blocks, "\n")
}
