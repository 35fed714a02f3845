package whisper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fmueller/subgen/internal/subtitle"
	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	mu   sync.Mutex
	reqs []TranscriptionRequest
}

func (e *recordingEngine) Transcribe(_ context.Context, req TranscriptionRequest) (subtitle.Transcript, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = append(e.reqs, req)
	return subtitle.Transcript{Language: "en", Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "hi"}}}, nil
}

func TestCacheLoadsOncePerName(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	release := make(chan struct{})
	cache, err := NewCache(CacheOptions{
		Engine: &recordingEngine{},
		Load: func(_ context.Context, name string) (ResolvedModel, error) {
			loads.Add(1)
			<-release
			return ResolvedModel{Name: name, Path: "/models/" + name}, nil
		},
	})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	handles := make([]*Handle, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = cache.Get(context.Background(), "tiny")
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, loads.Load())
	for i, h := range handles {
		require.NoError(t, errs[i])
		require.Same(t, handles[0], h)
	}
	require.Equal(t, []string{"tiny"}, cache.Loaded())
}

func TestCacheDefaultsToBaseModel(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(CacheOptions{
		Engine: &recordingEngine{},
		Load: func(_ context.Context, name string) (ResolvedModel, error) {
			return ResolvedModel{Name: name, Path: "/models/" + name}, nil
		},
	})
	require.NoError(t, err)

	h, err := cache.Get(context.Background(), "  ")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, h.Name)
}

func TestCacheDoesNotStoreFailedLoads(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cache, err := NewCache(CacheOptions{
		Engine: &recordingEngine{},
		Load: func(_ context.Context, name string) (ResolvedModel, error) {
			if calls.Add(1) == 1 {
				return ResolvedModel{}, errors.New("network down")
			}
			return ResolvedModel{Name: name, Path: "/models/" + name}, nil
		},
	})
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), "small")
	require.ErrorContains(t, err, "network down")
	require.Empty(t, cache.Loaded())

	h, err := cache.Get(context.Background(), "small")
	require.NoError(t, err)
	require.Equal(t, "/models/small", h.Path)
}

func TestCacheGetHonorsCallerCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	cache, err := NewCache(CacheOptions{
		Engine: &recordingEngine{},
		Load: func(_ context.Context, name string) (ResolvedModel, error) {
			<-release
			return ResolvedModel{Name: name}, nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cache.Get(ctx, "medium")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHandleTranscribeForwardsSettings(t *testing.T) {
	t.Parallel()

	engine := &recordingEngine{}
	cache, err := NewCache(CacheOptions{
		Engine:   engine,
		Language: "de",
		BeamSize: 3,
		Load: func(_ context.Context, name string) (ResolvedModel, error) {
			return ResolvedModel{Name: name, Path: "/models/ggml-" + name + ".bin"}, nil
		},
	})
	require.NoError(t, err)

	h, err := cache.Get(context.Background(), "base")
	require.NoError(t, err)

	transcript, err := h.Transcribe(context.Background(), "/scratch/clip.wav")
	require.NoError(t, err)
	require.Equal(t, "en", transcript.Language)

	require.Len(t, engine.reqs, 1)
	require.Equal(t, TranscriptionRequest{
		AudioPath: "/scratch/clip.wav",
		ModelPath: "/models/ggml-base.bin",
		Language:  "de",
		BeamSize:  3,
	}, engine.reqs[0])
}

func TestNewCacheValidatesOptions(t *testing.T) {
	t.Parallel()

	_, err := NewCache(CacheOptions{})
	require.Error(t, err)

	_, err = NewCache(CacheOptions{Engine: &recordingEngine{}})
	require.Error(t, err)
}
