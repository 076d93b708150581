package scoring

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jakechorley/manpower/pkg/core/features"
)

func newTestRegistry(t *testing.T, store BlobStore, logger *zap.Logger) *Registry {
	t.Helper()
	h := NewHeuristic(DefaultHeuristicWeights(), nil, logger)
	return NewRegistry(h, NewFactory(h, DefaultLinearConfig(), DefaultEnsembleConfig(), logger), store, logger)
}

func TestRegistry_StartsWithHeuristic(t *testing.T) {
	r := newTestRegistry(t, nil, zap.NewNop())

	p := r.Score([]features.FeatureVector{goodVector(0)})

	assert.Equal(t, BackendHeuristic, p.Backend)
	assert.False(t, p.Fallback)
	assert.Equal(t, BackendHeuristic, r.Active().Name())
}

func TestRegistry_RetrainSwapsAndPersists(t *testing.T) {
	store := NewFileStore(t.TempDir())
	r := newTestRegistry(t, store, zap.NewNop())

	result := r.Retrain(context.Background(), BackendEnsemble, separableExamples(20))

	require.True(t, result.Success)
	assert.Equal(t, BackendEnsemble, r.Active().Name())
	assert.Equal(t, BackendEnsemble, r.Score([]features.FeatureVector{goodVector(0)}).Backend)

	blob, err := store.LoadModel(context.Background(), BackendEnsemble)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	// A fresh registry picks up the persisted model
	fresh := newTestRegistry(t, store, zap.NewNop())
	require.NoError(t, fresh.Activate(context.Background(), BackendEnsemble))
	assert.True(t, fresh.Active().Primary().IsTrained())
	assert.Equal(t, r.Active().Primary().Metadata().Version, fresh.Active().Primary().Metadata().Version)
}

func TestRegistry_FailedRetrainKeepsActiveModel(t *testing.T) {
	r := newTestRegistry(t, nil, zap.NewNop())
	require.True(t, r.Retrain(context.Background(), BackendLinear, separableExamples(12)).Success)
	before := r.Active()

	result := r.Retrain(context.Background(), BackendLinear, separableExamples(5))

	assert.False(t, result.Success)
	assert.Error(t, result.Err)
	assert.Same(t, before, r.Active())
}

func TestRegistry_UnknownBackend(t *testing.T) {
	r := newTestRegistry(t, nil, zap.NewNop())

	assert.Error(t, r.Activate(context.Background(), "neural"))
	result := r.Retrain(context.Background(), "neural", separableExamples(12))
	assert.False(t, result.Success)
	assert.Error(t, result.Err)
}

func TestRegistry_MissingBlobActivatesUntrained(t *testing.T) {
	r := newTestRegistry(t, NewFileStore(t.TempDir()), zap.NewNop())

	require.NoError(t, r.Activate(context.Background(), BackendLinear))

	assert.False(t, r.Active().Primary().IsTrained())
	p := r.Score([]features.FeatureVector{goodVector(0)})
	assert.Equal(t, BackendHeuristic, p.Backend)
	assert.True(t, p.Fallback)
}

func TestRegistry_CorruptBlobIsLoggedAndIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BackendEnsemble+".json"), []byte("{broken"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	r := newTestRegistry(t, NewFileStore(dir), zap.New(core))

	require.NoError(t, r.Activate(context.Background(), BackendEnsemble))

	assert.False(t, r.Active().Primary().IsTrained())
	assert.Equal(t, 1, logs.FilterMessage("Persisted model is corrupt, starting untrained").Len())
}

func TestRegistry_ConcurrentScoringDuringRetrain(t *testing.T) {
	r := newTestRegistry(t, nil, zap.NewNop())
	vs := []features.FeatureVector{goodVector(0), poorVector(1)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p := r.Score(vs)
				assert.Len(t, p.Scores, 2)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Retrain(context.Background(), BackendLinear, separableExamples(12))
		}()
	}
	wg.Wait()

	assert.Equal(t, BackendLinear, r.Active().Name())
}

func TestFileStore_RejectsPathNames(t *testing.T) {
	s := NewFileStore(t.TempDir())

	assert.Error(t, s.SaveModel(context.Background(), "../escape", []byte("{}")))
	_, err := s.LoadModel(context.Background(), "")
	assert.Error(t, err)
	_, err = s.LoadModel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}
