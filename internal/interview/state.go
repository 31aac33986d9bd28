package interview

import (
	"errors"
	"fmt"
)

// ErrReportWritten is returned when a final report is stored twice.
var ErrReportWritten = errors.New("final report already written")

// State is the mutable record of one interview. It is owned by a single Engine
// and is never mutated concurrently.
type State struct {
	plan        *Plan
	index       int
	topics      map[string]*TopicState
	profile     *Profile
	finalReport *string
}

// NewState creates an empty state positioned on the first topic of plan.
func NewState(plan *Plan) *State {
	topics := make(map[string]*TopicState, plan.Len())
	for _, t := range plan.topics {
		topics[t.Name] = &TopicState{}
	}

	return &State{
		plan:    plan,
		topics:  topics,
		profile: newProfile(),
	}
}

func (s *State) Plan() *Plan { return s.plan }

// Index is the position of the current topic. It equals the plan length once finished.
func (s *State) Index() int { return s.index }

// Advance moves to the next topic unless the current one is the last.
func (s *State) Advance() bool {
	if s.index < s.plan.Len()-1 {
		s.index++
		return true
	}
	return false
}

// Finish moves the index past the last topic. It is a no-op when already finished.
func (s *State) Finish() {
	s.index = s.plan.Len()
}

func (s *State) IsFinished() bool {
	return s.index >= s.plan.Len()
}

func (s *State) IsLastTopic() bool {
	return s.index == s.plan.Len()-1
}

func (s *State) CurrentTopic() (Topic, error) {
	if s.IsFinished() {
		return Topic{}, fmt.Errorf("%w: interview is finished", ErrOutOfRange)
	}
	return s.plan.At(s.index)
}

func (s *State) CurrentTopicState() (*TopicState, error) {
	topic, err := s.CurrentTopic()
	if err != nil {
		return nil, err
	}
	return s.topics[topic.Name], nil
}

// TopicState returns the conversation record of the named topic.
func (s *State) TopicState(name string) (*TopicState, bool) {
	ts, ok := s.topics[name]
	return ts, ok
}

func (s *State) Profile() *Profile { return s.profile }

// FinalReport returns the report and whether it has been written.
func (s *State) FinalReport() (string, bool) {
	if s.finalReport == nil {
		return "", false
	}
	return *s.finalReport, true
}

func (s *State) setFinalReport(report string) error {
	if s.finalReport != nil {
		return ErrReportWritten
	}
	s.finalReport = &report
	return nil
}

// clone returns a deep copy used as the working copy of a turn.
func (s *State) clone() *State {
	topics := make(map[string]*TopicState, len(s.topics))
	for name, ts := range s.topics {
		topics[name] = ts.clone()
	}

	out := &State{
		plan:    s.plan,
		index:   s.index,
		topics:  topics,
		profile: s.profile.clone(),
	}
	if s.finalReport != nil {
		report := *s.finalReport
		out.finalReport = &report
	}
	return out
}
