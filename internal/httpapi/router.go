// Package httpapi exposes the transcription and translation services over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fmueller/subgen/internal/subtitle"
	"github.com/fmueller/subgen/internal/transcribe"
	"github.com/fmueller/subgen/internal/translate"
	"github.com/fmueller/subgen/internal/whisper"
)

// Models loads model handles, downloading weights on first use.
type Models interface {
	Get(ctx context.Context, name string) (*whisper.Handle, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, model string, upload transcribe.Upload) (subtitle.Transcript, error)
}

type Translator interface {
	Languages(ctx context.Context) (translate.Response, error)
	Translate(ctx context.Context, target, source string) (translate.Outcome, error)
}

type WhisperDeps struct {
	Models      Models
	Transcriber Transcriber
	// DefaultModel is used when a request names no model.
	DefaultModel   string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

func NewWhisperRouter(deps WhisperDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.DefaultModel == "" {
		deps.DefaultModel = whisper.DefaultModel
	}

	r := newEngine(deps.Logger)
	h := &whisperHandler{deps: deps}
	h.RegisterRoutes(r)
	return r
}

func NewTranslateRouter(service Translator, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := newEngine(logger)
	h := &translateHandler{service: service, logger: logger}
	h.RegisterRoutes(r)
	return r
}

func newEngine(logger *zap.Logger) *gin.Engine {
	m := newMetrics()

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery(), m.middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.handler()))
	return r
}
