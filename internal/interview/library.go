package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/storage"
)

// SetupSource returns the setup of a user that has no saved interview yet.
type SetupSource func(ctx context.Context, userID string) (*Setup, error)

// Library keeps one engine per user and persists engine snapshots between turns.
type Library struct {
	store     storage.Store
	source    SetupSource
	completer ai.Completer
	evaluator Evaluator
	cfg       Config
	logger    *zap.Logger

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewLibrary(store storage.Store, source SetupSource, completer ai.Completer, evaluator Evaluator, cfg Config, log *zap.Logger) *Library {
	return &Library{
		store:     store,
		source:    source,
		completer: completer,
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger.WithFields(log),
		engines:   make(map[string]*Engine),
	}
}

func snapshotKey(userID string) string {
	return "interview:" + userID
}

// Engine returns the engine of userID, restoring it from the store or
// creating a fresh one from the setup source.
func (l *Library) Engine(ctx context.Context, userID string) (*Engine, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	l.mu.Lock()
	engine, ok := l.engines[userID]
	l.mu.Unlock()
	if ok {
		return engine, nil
	}

	// Restore and create run unlocked. The cache is checked again before insert.
	engine, err := l.restore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if engine == nil {
		if engine, err = l.create(ctx, userID); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.engines[userID]; ok {
		return cached, nil
	}
	l.engines[userID] = engine
	return engine, nil
}

func (l *Library) restore(ctx context.Context, userID string) (*Engine, error) {
	if l.store == nil {
		return nil, nil
	}

	data, err := l.store.Get(ctx, snapshotKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading interview of %s: %w", userID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	engine, err := Restore(&snap, l.completer, l.evaluator, l.cfg, l.logger.With(zap.String("user_id", userID)))
	if err != nil {
		return nil, err
	}

	l.logger.Info("interview restored", zap.String("user_id", userID), zap.String("phase", string(engine.Phase())))
	return engine, nil
}

func (l *Library) create(ctx context.Context, userID string) (*Engine, error) {
	if l.source == nil {
		return nil, errors.New("no setup source configured")
	}

	setup, err := l.source(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preparing interview of %s: %w", userID, err)
	}

	return NewEngine(setup, l.completer, l.evaluator, l.cfg, l.logger.With(zap.String("user_id", userID)))
}

// Save persists the current snapshot of the engine of userID.
func (l *Library) Save(ctx context.Context, userID string) error {
	l.mu.Lock()
	engine, ok := l.engines[userID]
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("no interview for %s", userID)
	}
	if l.store == nil {
		return nil
	}

	data, err := json.Marshal(engine.Snapshot())
	if err != nil {
		return err
	}
	return l.store.Put(ctx, snapshotKey(userID), data)
}

// Forget drops the cached engine and the stored snapshot of userID.
func (l *Library) Forget(ctx context.Context, userID string) error {
	l.mu.Lock()
	delete(l.engines, userID)
	l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	return l.store.Delete(ctx, snapshotKey(userID))
}

// Respond runs one turn of the interview of userID and persists the result.
// A failed save is logged and does not discard the turn.
func (l *Library) Respond(ctx context.Context, userID, text string) (Response, error) {
	engine, err := l.Engine(ctx, userID)
	if err != nil {
		return Response{}, err
	}

	resp := engine.Process(ctx, text)
	if resp.Status != StatusError {
		if err := l.Save(ctx, userID); err != nil {
			l.logger.Warn("failed to save interview snapshot", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return resp, nil
}
