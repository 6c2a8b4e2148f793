package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-ml/internal/artifact"
)

type fakeModel struct{ Version int }
type fakeEncoder struct{ Width int }

type memStore struct {
	mu      sync.Mutex
	model   *fakeModel
	enc     *fakeEncoder
	meta    artifact.Meta
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Load() (*fakeModel, *fakeEncoder, artifact.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, nil, artifact.Meta{}, s.loadErr
	}
	if s.model == nil && s.enc == nil {
		return nil, nil, artifact.Meta{}, fmt.Errorf("%w: empty store", artifact.ErrNotFound)
	}
	return s.model, s.enc, s.meta, nil
}

func (s *memStore) Save(m *fakeModel, e *fakeEncoder, meta artifact.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.model, s.enc, s.meta, s.loadErr = m, e, meta, nil
	return nil
}

type fakeTrainer struct {
	calls    atomic.Int32
	failures int32 // number of leading calls that fail
	gate     chan struct{}
}

func (f *fakeTrainer) train(ctx context.Context) (*fakeModel, *fakeEncoder, error) {
	n := f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if n <= f.failures {
		return nil, nil, fmt.Errorf("training attempt %d failed", n)
	}
	return &fakeModel{Version: int(n)}, &fakeEncoder{Width: 3}, nil
}

func widthCheck(m *fakeModel, e *fakeEncoder) error {
	if e.Width != 3 {
		return errors.New("width mismatch")
	}
	return nil
}

func newManager(store *memStore, tr *fakeTrainer) *Manager[*fakeModel, *fakeEncoder] {
	return New(Options[*fakeModel, *fakeEncoder]{
		Name:  "test",
		Store: store,
		Train: tr.train,
		Check: widthCheck,
	})
}

func TestReady_LoadsPersistedPair(t *testing.T) {
	meta := artifact.NewMeta()
	store := &memStore{model: &fakeModel{Version: 99}, enc: &fakeEncoder{Width: 3}, meta: meta}
	tr := &fakeTrainer{}
	m := newManager(store, tr)
	assert.Equal(t, Uninitialized, m.State())

	p, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 99, p.Model.Version)
	assert.Equal(t, OriginArtifact, p.Origin)
	assert.Equal(t, meta.PairID, p.Meta.PairID)
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, int32(0), tr.calls.Load())
}

func TestReady_TrainsWhenNothingPersisted(t *testing.T) {
	store := &memStore{}
	tr := &fakeTrainer{}
	m := newManager(store, tr)

	p, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginTrained, p.Origin)
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, p.Meta.PairID, store.meta.PairID)

	again, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, int32(1), tr.calls.Load())
}

func TestReady_FallsBackToTraining(t *testing.T) {
	tests := []struct {
		name  string
		store *memStore
	}{
		{name: "corrupt", store: &memStore{loadErr: fmt.Errorf("%w: bad checksum", artifact.ErrCorruptArtifact)}},
		{name: "unexpected load error", store: &memStore{loadErr: errors.New("disk on fire")}},
		{name: "nil model", store: &memStore{enc: &fakeEncoder{Width: 3}}},
		{name: "nil encoder", store: &memStore{model: &fakeModel{}}},
		{name: "incompatible pair", store: &memStore{model: &fakeModel{}, enc: &fakeEncoder{Width: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTrainer{}
			m := newManager(tt.store, tr)
			p, err := m.Ready(context.Background())
			require.NoError(t, err)
			assert.Equal(t, OriginTrained, p.Origin)
			assert.Equal(t, int32(1), tr.calls.Load())
			assert.Equal(t, Ready, m.State())
		})
	}
}

func TestReady_RetriesTrainingOnce(t *testing.T) {
	tr := &fakeTrainer{failures: 1}
	m := newManager(&memStore{}, tr)

	p, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Model.Version)
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.Empty(t, m.Status().LastError)
}

func TestReady_InitializationErrorAfterRetry(t *testing.T) {
	tr := &fakeTrainer{failures: 2}
	m := newManager(&memStore{}, tr)

	_, err := m.Ready(context.Background())
	var ierr *InitializationError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "test", ierr.Name)
	assert.Equal(t, 2, ierr.Attempts)
	assert.Equal(t, Failed, m.State())
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.Contains(t, m.Status().LastError, "training attempt 2 failed")

	_, ok := m.Current()
	assert.False(t, ok)

	// The next call starts over and succeeds.
	p, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Model.Version)
	assert.Equal(t, Ready, m.State())
}

func TestReady_SaveFailureDoesNotBlock(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only filesystem")}
	m := newManager(store, &fakeTrainer{})

	_, err := m.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, 1, store.saves)
}

func TestReady_ConcurrentCallersShareOneInitialization(t *testing.T) {
	tr := &fakeTrainer{gate: make(chan struct{})}
	m := newManager(&memStore{}, tr)

	const callers = 32
	results := make([]*Pair[*fakeModel, *fakeEncoder], callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.Ready(context.Background())
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}

	require.Eventually(t, func() bool { return tr.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Training, m.State())
	close(tr.gate)
	wg.Wait()

	assert.Equal(t, int32(1), tr.calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestReady_IgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var seen error
	m := New(Options[*fakeModel, *fakeEncoder]{
		Name:  "test",
		Store: &memStore{},
		Train: func(ctx context.Context) (*fakeModel, *fakeEncoder, error) {
			seen = ctx.Err()
			return &fakeModel{}, &fakeEncoder{Width: 3}, nil
		},
	})
	_, err := m.Ready(ctx)
	require.NoError(t, err)
	assert.NoError(t, seen)
}

func TestRetrain_SwapsWithoutTouchingHeldPair(t *testing.T) {
	store := &memStore{}
	tr := &fakeTrainer{}
	m := newManager(store, tr)

	old, err := m.Ready(context.Background())
	require.NoError(t, err)

	fresh, err := m.Retrain(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 1, old.Model.Version)
	assert.Equal(t, 2, fresh.Model.Version)
	assert.NotEqual(t, old.Meta.PairID, fresh.Meta.PairID)
	assert.Equal(t, 2, store.saves)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Same(t, fresh, cur)
}

func TestRetrain_FailureKeepsCurrentPair(t *testing.T) {
	tr := &fakeTrainer{}
	m := newManager(&memStore{}, tr)
	old, err := m.Ready(context.Background())
	require.NoError(t, err)

	tr.failures = 10
	_, err = m.Retrain(context.Background())
	require.Error(t, err)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Same(t, old, cur)
	assert.Equal(t, Ready, m.State())
}

func TestRetrain_BeforeInitialization(t *testing.T) {
	store := &memStore{model: &fakeModel{Version: 50}, enc: &fakeEncoder{Width: 3}, meta: artifact.NewMeta()}
	tr := &fakeTrainer{}
	m := newManager(store, tr)

	p, err := m.Retrain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginTrained, p.Origin)
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, Ready, m.State())
}

func TestIsNil(t *testing.T) {
	var p *fakeModel
	var mp map[string]int
	assert.True(t, isNil(nil))
	assert.True(t, isNil(p))
	assert.True(t, isNil(mp))
	assert.False(t, isNil(&fakeModel{}))
	assert.False(t, isNil(fakeModel{}))
	assert.False(t, isNil(0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "READY", Ready.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
