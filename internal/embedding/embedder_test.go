package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/domain"
	"briefing/internal/embedding/hashing"
)

func TestProvider_FailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider(func(context.Context) (domain.Embedder, error) {
		calls.Add(1)
		return nil, errors.New("model weights missing")
	}, nil)

	assert.Equal(t, StateUninitialized, p.State())
	for i := 0; i < 5; i++ {
		emb, err := p.Get(context.Background())
		assert.Nil(t, emb)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, p.Attempts())
	assert.Equal(t, StateFailed, p.State())
}

func TestProvider_ReadyIsReused(t *testing.T) {
	var calls atomic.Int32
	want := hashing.NewEmbedder(16)
	p := NewProvider(func(context.Context) (domain.Embedder, error) {
		calls.Add(1)
		return want, nil
	}, nil)

	for i := 0; i < 3; i++ {
		emb, err := p.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, want, emb)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateReady, p.State())
}

func TestProvider_ConcurrentCallersShareOneInit(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p := NewProvider(func(context.Context) (domain.Embedder, error) {
		calls.Add(1)
		<-release
		return nil, errors.New("boom")
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Get(context.Background())
			assert.Error(t, err)
		}()
	}
	require.Eventually(t, func() bool { return p.State() == StateLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateFailed, p.State())
}

func TestProvider_WaiterHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := NewProvider(func(context.Context) (domain.Embedder, error) {
		<-release
		return hashing.NewEmbedder(8), nil
	}, nil)

	go func() { _, _ = p.Get(context.Background()) }()
	require.Eventually(t, func() bool { return p.State() == StateLoading }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.Equal(t, 1, p.Attempts())
}

func TestProvider_PanickingInitFails(t *testing.T) {
	p := NewProvider(func(context.Context) (domain.Embedder, error) {
		panic("native library crashed")
	}, nil)
	_, err := p.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	_, err = p.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, p.Attempts())
}

func TestProvider_NilIsUnavailable(t *testing.T) {
	var p *Provider
	_, err := p.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
}
