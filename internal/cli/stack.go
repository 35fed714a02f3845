package cli

import (
	"fmt"
	"net/http"

	"github.com/fmueller/subgen/internal/audio"
	"github.com/fmueller/subgen/internal/config"
	"github.com/fmueller/subgen/internal/httpapi"
	"github.com/fmueller/subgen/internal/platform"
	"github.com/fmueller/subgen/internal/transcribe"
	"github.com/fmueller/subgen/internal/translate"
	"github.com/fmueller/subgen/internal/whisper"
	"go.uber.org/zap"
)

func newBundledEngine(cfg config.WhisperConfig, logger *zap.Logger) (whisper.Engine, error) {
	engine, err := whisper.NewBundledEngine(cfg.EnginePath, logger)
	if err != nil {
		return nil, err
	}
	engine.Threads = cfg.Threads
	return engine, nil
}

type whisperStack struct {
	cache   *whisper.Cache
	service *transcribe.Service
}

func (a *appState) buildWhisperStack() (*whisperStack, error) {
	cfg := a.cfg.Whisper

	newEngine := a.newEngine
	if newEngine == nil {
		newEngine = newBundledEngine
	}
	engine, err := newEngine(cfg, a.log())
	if err != nil {
		return nil, err
	}

	cache, err := whisper.NewCache(whisper.CacheOptions{
		Engine:   engine,
		Load:     a.ensureModelAvailable,
		Language: cfg.Language,
		BeamSize: cfg.BeamSize,
		Logger:   a.log(),
	})
	if err != nil {
		return nil, err
	}

	scratch, err := platform.EnsureDir(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("prepare scratch directory: %w", err)
	}

	opts := transcribe.Options{
		Models:      cache,
		ScratchDir:  scratch,
		SilenceGate: cfg.SilenceGate,
		SilenceDBFS: cfg.SilenceDBFS,
		Language:    cfg.Language,
		Logger:      a.log(),
	}
	normalizer, err := audio.NewNormalizer(cfg.FFmpegPath, a.log())
	if err != nil {
		return nil, err
	}
	if normalizer != nil {
		opts.Normalizer = normalizer
	}

	service, err := transcribe.NewService(opts)
	if err != nil {
		return nil, err
	}
	return &whisperStack{cache: cache, service: service}, nil
}

func (a *appState) whisperHandler() (http.Handler, error) {
	stack, err := a.buildWhisperStack()
	if err != nil {
		return nil, err
	}
	return httpapi.NewWhisperRouter(httpapi.WhisperDeps{
		Models:         stack.cache,
		Transcriber:    stack.service,
		DefaultModel:   a.cfg.Whisper.DefaultModel,
		MaxUploadBytes: a.cfg.Whisper.MaxUploadBytes,
		Logger:         a.log(),
	}), nil
}

func (a *appState) buildTranslateService() (*translate.Service, error) {
	cfg := a.cfg.Translate

	client, err := translate.NewClient(cfg.UpstreamURL, cfg.Timeout, a.log())
	if err != nil {
		return nil, err
	}
	scratch, err := platform.EnsureDir(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("prepare scratch directory: %w", err)
	}
	return translate.NewService(client, scratch, cfg.SourceLanguage, a.log())
}

func (a *appState) translateHandler() (http.Handler, error) {
	service, err := a.buildTranslateService()
	if err != nil {
		return nil, err
	}
	return httpapi.NewTranslateRouter(service, a.log()), nil
}
