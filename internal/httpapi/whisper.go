package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fmueller/subgen/internal/transcribe"
	"github.com/fmueller/subgen/internal/whisper"
)

type whisperHandler struct {
	deps WhisperDeps
}

func (h *whisperHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/models/list", h.listModels)
	r.POST("/models/download", h.downloadModel)
	r.POST("/transcribe", h.transcribe)
}

func (h *whisperHandler) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, whisper.ModelNames())
}

func (h *whisperHandler) downloadModel(c *gin.Context) {
	model := strings.TrimSpace(c.PostForm("model"))
	if model == "" {
		badRequest(c, "model is required")
		return
	}

	handle, err := h.deps.Models.Get(c.Request.Context(), model)
	if err != nil {
		handleError(c, err)
		return
	}

	h.deps.Logger.Info("model ready", zap.String(requestIDKey, requestID(c)), zap.String("model", handle.Name), zap.String("path", handle.Path))
	c.JSON(http.StatusOK, gin.H{"status": "downloaded", "model": handle.Name})
}

func (h *whisperHandler) transcribe(c *gin.Context) {
	if h.deps.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			handleError(c, err)
			return
		}
		badRequest(c, "file is required")
		return
	}

	model := strings.TrimSpace(c.PostForm("model"))
	if model == "" {
		model = h.deps.DefaultModel
	}

	file, err := header.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()

	transcript, err := h.deps.Transcriber.Transcribe(c.Request.Context(), model, transcribe.Upload{
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"segments": transcript.Segments,
		"language": transcript.Language,
	})
}
