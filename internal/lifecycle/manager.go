// Package lifecycle owns a model and the encoder it was trained with.
//
// A Manager loads the pair from its store on first use, trains a new one
// when nothing usable was persisted, and publishes the result behind an
// atomic pointer. Initialization runs at most once at a time; concurrent
// callers block until it succeeds or fails. A published pair is never
// mutated: Retrain builds a replacement and swaps it in.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"energy-ml/internal/artifact"
	"energy-ml/internal/metrics"
)

// Origins of a published pair.
const (
	OriginArtifact = "artifact"
	OriginTrained  = "trained"
)

// Pair is a model with the encoder state it was trained against.
type Pair[M any, E any] struct {
	Model   M
	Encoder E
	Meta    artifact.Meta
	Origin  string
}

// Store persists pairs. Load must wrap artifact.ErrNotFound or
// artifact.ErrCorruptArtifact when there is nothing usable.
type Store[M any, E any] interface {
	Load() (M, E, artifact.Meta, error)
	Save(m M, e E, meta artifact.Meta) error
}

// Trainer fits a new encoder and model from its training source.
type Trainer[M any, E any] func(ctx context.Context) (M, E, error)

// Checker reports whether a model and encoder can be used together.
type Checker[M any, E any] func(m M, e E) error

// InitializationError is returned when no pair could be loaded or trained.
type InitializationError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s model could not be initialized after %d training attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Options configures a Manager.
type Options[M any, E any] struct {
	Name   string
	Store  Store[M, E]
	Train  Trainer[M, E]
	Check  Checker[M, E] // optional
	Logger *slog.Logger

	// TrainAttempts bounds training per initialization. Defaults to 2:
	// the first attempt plus one retry.
	TrainAttempts int
}

// Status is a point-in-time view for health and info endpoints.
type Status struct {
	Name      string
	State     State
	Meta      artifact.Meta
	Origin    string
	LastError string
}

// Manager is safe for concurrent use.
type Manager[M any, E any] struct {
	name     string
	store    Store[M, E]
	train    Trainer[M, E]
	check    Checker[M, E]
	logger   *slog.Logger
	attempts int

	pair  atomic.Pointer[Pair[M, E]]
	state atomic.Int32

	initMu    sync.Mutex
	retrainMu sync.Mutex

	errMu   sync.Mutex
	lastErr error
}

// New creates a manager in the UNINITIALIZED state. Nothing is loaded
// until the first call to Ready or Retrain.
func New[M any, E any](opts Options[M, E]) *Manager[M, E] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := opts.TrainAttempts
	if attempts <= 0 {
		attempts = 2
	}
	m := &Manager[M, E]{
		name:     opts.Name,
		store:    opts.Store,
		train:    opts.Train,
		check:    opts.Check,
		logger:   logger.With(slog.String("model", opts.Name)),
		attempts: attempts,
	}
	m.setState(Uninitialized)
	return m
}

// Name is the model family this manager owns.
func (m *Manager[M, E]) Name() string { return m.name }

// Ready returns the published pair, loading or training it first if
// needed. Initialization is detached from ctx cancellation so one caller
// giving up does not abort the work other callers are waiting on.
func (m *Manager[M, E]) Ready(ctx context.Context) (*Pair[M, E], error) {
	if p := m.pair.Load(); p != nil {
		return p, nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()
	if p := m.pair.Load(); p != nil {
		return p, nil
	}
	return m.initialize(context.WithoutCancel(ctx))
}

// Current returns the published pair without triggering initialization.
func (m *Manager[M, E]) Current() (*Pair[M, E], bool) {
	p := m.pair.Load()
	return p, p != nil
}

// State returns the current readiness state.
func (m *Manager[M, E]) State() State { return State(m.state.Load()) }

// Status snapshots state, pair identity and the last error.
func (m *Manager[M, E]) Status() Status {
	st := Status{Name: m.name, State: m.State()}
	if p := m.pair.Load(); p != nil {
		st.Meta = p.Meta
		st.Origin = p.Origin
	}
	m.errMu.Lock()
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	m.errMu.Unlock()
	return st
}

// Retrain trains a replacement pair, persists it and swaps it in. The
// current pair keeps serving while training runs and stays published if
// training fails. Concurrent calls are serialized.
func (m *Manager[M, E]) Retrain(ctx context.Context) (*Pair[M, E], error) {
	m.retrainMu.Lock()
	defer m.retrainMu.Unlock()
	ctx = context.WithoutCancel(ctx)

	if m.pair.Load() == nil {
		m.initMu.Lock()
		defer m.initMu.Unlock()
		if m.pair.Load() == nil {
			m.logger.Info("retrain requested before initialization")
			return m.publish(m.trainWithRetry(ctx))
		}
	}

	m.logger.Info("retraining model")
	p, err := m.trainOnce(ctx)
	if err != nil {
		m.setErr(err)
		m.logger.Error("retrain failed, keeping current model", slog.Any("error", err))
		return nil, fmt.Errorf("retrain %s: %w", m.name, err)
	}
	m.pair.Store(p)
	m.setState(Ready)
	m.setErr(nil)
	m.logger.Info("retrained model published", slog.String("pair_id", p.Meta.PairID.String()))
	return p, nil
}

func (m *Manager[M, E]) initialize(ctx context.Context) (*Pair[M, E], error) {
	m.setState(Loading)
	p, err := m.load()
	if err == nil {
		m.logger.Info("model loaded from artifacts",
			slog.String("pair_id", p.Meta.PairID.String()),
			slog.Time("trained_at", p.Meta.TrainedAt))
		return m.publish(p, nil)
	}

	switch {
	case errors.Is(err, artifact.ErrNotFound):
		m.logger.Info("no usable artifacts, training a new model", slog.String("reason", err.Error()))
	case errors.Is(err, artifact.ErrCorruptArtifact):
		m.logger.Warn("artifacts are corrupt, training a new model", slog.Any("error", err))
	default:
		m.setState(Failed)
		m.setErr(err)
		m.logger.Error("loading artifacts failed, training a new model", slog.Any("error", err))
	}
	return m.publish(m.trainWithRetry(ctx))
}

func (m *Manager[M, E]) publish(p *Pair[M, E], err error) (*Pair[M, E], error) {
	if err != nil {
		m.setState(Failed)
		m.setErr(err)
		return nil, err
	}
	m.pair.Store(p)
	m.setState(Ready)
	m.setErr(nil)
	return p, nil
}

func (m *Manager[M, E]) load() (*Pair[M, E], error) {
	model, enc, meta, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if isNil(model) || isNil(enc) {
		return nil, fmt.Errorf("%w: loaded model or encoder is empty", artifact.ErrNotFound)
	}
	if m.check != nil {
		if err := m.check(model, enc); err != nil {
			return nil, fmt.Errorf("%w: %v", artifact.ErrCorruptArtifact, err)
		}
	}
	return &Pair[M, E]{Model: model, Encoder: enc, Meta: meta, Origin: OriginArtifact}, nil
}

func (m *Manager[M, E]) trainWithRetry(ctx context.Context) (*Pair[M, E], error) {
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		m.setState(Training)
		p, err := m.trainOnce(ctx)
		if err == nil {
			return p, nil
		}
		lastErr = err
		m.setState(Failed)
		m.setErr(err)
		m.logger.Error("training failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", m.attempts),
			slog.Any("error", err))
	}
	return nil, &InitializationError{Name: m.name, Attempts: m.attempts, Err: lastErr}
}

// trainOnce builds a pair off to the side. Failing to persist it is logged
// but does not fail training; the next process start will train again.
func (m *Manager[M, E]) trainOnce(ctx context.Context) (*Pair[M, E], error) {
	start := time.Now()
	model, enc, err := m.train(ctx)
	if err == nil && (isNil(model) || isNil(enc)) {
		err = errors.New("trainer returned an empty model or encoder")
	}
	if err == nil && m.check != nil {
		err = m.check(model, enc)
	}
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveTraining(m.name, false, elapsed)
		return nil, err
	}
	metrics.ObserveTraining(m.name, true, elapsed)

	meta := artifact.NewMeta()
	if err := m.store.Save(model, enc, meta); err != nil {
		m.logger.Warn("failed to persist trained model", slog.Any("error", err))
	}
	m.logger.Info("model trained",
		slog.String("pair_id", meta.PairID.String()),
		slog.Duration("elapsed", elapsed))
	return &Pair[M, E]{Model: model, Encoder: enc, Meta: meta, Origin: OriginTrained}, nil
}

func (m *Manager[M, E]) setState(s State) {
	m.state.Store(int32(s))
	metrics.SetModelState(m.name, s.String(), stateNames())
}

func (m *Manager[M, E]) setErr(err error) {
	m.errMu.Lock()
	m.lastErr = err
	m.errMu.Unlock()
}

func stateNames() []string {
	out := make([]string, len(AllStates))
	for i, s := range AllStates {
		out[i] = s.String()
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
