package whisper

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/fmueller/subgen/internal/subtitle"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader makes a named model's weights available on disk.
type Loader func(ctx context.Context, name string) (ResolvedModel, error)

// Handle is a loaded model bound to the engine that runs it.
type Handle struct {
	Name string
	Path string

	engine   Engine
	language string
	beamSize int
}

func (h *Handle) Transcribe(ctx context.Context, audioPath string) (subtitle.Transcript, error) {
	return h.engine.Transcribe(ctx, TranscriptionRequest{
		AudioPath: audioPath,
		ModelPath: h.Path,
		Language:  h.language,
		BeamSize:  h.beamSize,
	})
}

type CacheOptions struct {
	Engine   Engine
	Load     Loader
	Language string
	BeamSize int
	Logger   *zap.Logger
}

// Cache keeps one Handle per model name for the life of the process.
// Concurrent first requests for a name share a single load.
type Cache struct {
	opts CacheOptions

	mu      sync.RWMutex
	handles map[string]*Handle
	group   singleflight.Group
}

func NewCache(opts CacheOptions) (*Cache, error) {
	if opts.Engine == nil {
		return nil, errors.New("model cache needs an engine")
	}
	if opts.Load == nil {
		return nil, errors.New("model cache needs a loader")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BeamSize <= 0 {
		opts.BeamSize = DefaultBeamSize
	}

	return &Cache{opts: opts, handles: make(map[string]*Handle)}, nil
}

// Get returns the handle for name, loading it on first use. An empty name
// selects DefaultModel.
func (c *Cache) Get(ctx context.Context, name string) (*Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultModel
	}

	if h := c.lookup(name); h != nil {
		return h, nil
	}

	// The load outlives any single caller so one canceled request does not
	// fail the others waiting on it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(name, func() (any, error) {
		if h := c.lookup(name); h != nil {
			return h, nil
		}

		c.opts.Logger.Info("loading model", zap.String("model", name))
		resolved, err := c.opts.Load(loadCtx, name)
		if err != nil {
			return nil, err
		}

		h := &Handle{
			Name:     resolved.Name,
			Path:     resolved.Path,
			engine:   c.opts.Engine,
			language: c.opts.Language,
			beamSize: c.opts.BeamSize,
		}

		c.mu.Lock()
		c.handles[name] = h
		c.mu.Unlock()

		c.opts.Logger.Info("model ready", zap.String("model", name), zap.String("path", h.Path))
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// Loaded lists the names with a ready handle, sorted.
func (c *Cache) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.handles))
	for name := range c.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Cache) lookup(name string) *Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handles[name]
}
