package interview

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
)

// ErrInvalidSnapshot is returned when a stored snapshot cannot be restored.
var ErrInvalidSnapshot = errors.New("invalid interview snapshot")

// Snapshot is the serializable form of an engine between turns.
type Snapshot struct {
	Setup       Setup                   `json:"setup"`
	Started     bool                    `json:"started"`
	Index       int                     `json:"index"`
	Topics      map[string]TopicState   `json:"topics"`
	Profile     map[string]TopicSummary `json:"profile"`
	FinalReport *string                 `json:"final_report,omitempty"`
}

// Snapshot captures the committed state of the engine.
func (e *Engine) Snapshot() *Snapshot {
	state := e.state.clone()

	snap := &Snapshot{
		Setup:       *e.setup.WithTopics(state.plan.topics),
		Started:     e.started,
		Index:       state.index,
		Topics:      make(map[string]TopicState, len(state.topics)),
		Profile:     make(map[string]TopicSummary, state.profile.Len()),
		FinalReport: state.finalReport,
	}
	for name, ts := range state.topics {
		snap.Topics[name] = *ts
	}
	for name, entry := range state.profile.entries {
		snap.Profile[name] = *entry
	}
	return snap
}

// Restore rebuilds an engine from a snapshot taken by Engine.Snapshot.
func Restore(snap *Snapshot, completer ai.Completer, evaluator Evaluator, cfg Config, log *zap.Logger) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: empty snapshot", ErrInvalidSnapshot)
	}

	setup := snap.Setup
	engine, err := NewEngine(&setup, completer, evaluator, cfg, log)
	if err != nil {
		return nil, err
	}

	state := engine.state
	if snap.Index < 0 || snap.Index > state.plan.Len() {
		return nil, fmt.Errorf("%w: index %d outside plan of %d topics", ErrInvalidSnapshot, snap.Index, state.plan.Len())
	}
	if snap.Index == state.plan.Len() && snap.FinalReport == nil {
		return nil, fmt.Errorf("%w: finished interview without report", ErrInvalidSnapshot)
	}

	for name, ts := range snap.Topics {
		if _, ok := state.topics[name]; !ok {
			return nil, fmt.Errorf("%w: unknown topic %q", ErrInvalidSnapshot, name)
		}
		ts := ts
		state.topics[name] = ts.clone()
	}
	for name, entry := range snap.Profile {
		if _, ok := state.topics[name]; !ok {
			return nil, fmt.Errorf("%w: profile entry for unknown topic %q", ErrInvalidSnapshot, name)
		}
		entry := entry
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("%w: profile entry %q: %v", ErrInvalidSnapshot, name, err)
		}
		if err := state.profile.put(name, &entry); err != nil {
			return nil, err
		}
	}

	state.index = snap.Index
	if snap.FinalReport != nil {
		report := *snap.FinalReport
		state.finalReport = &report
	}
	engine.started = snap.Started

	return engine, nil
}
