package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fmueller/subgen/internal/translate"
)

type translateHandler struct {
	service Translator
	logger  *zap.Logger
}

func (h *translateHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/translate")
	g.GET("/languages", h.languages)
	g.POST("", h.translate)
}

// languages relays the upstream reply untouched, status included.
func (h *translateHandler) languages(c *gin.Context) {
	resp, err := h.service.Languages(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

func (h *translateHandler) translate(c *gin.Context) {
	lang := strings.TrimSpace(c.PostForm("lang"))
	if lang == "" {
		badRequest(c, "lang is required")
		return
	}
	source := strings.TrimSpace(c.PostForm("source"))

	outcome, err := h.service.Translate(c.Request.Context(), lang, source)
	if err != nil {
		handleError(c, err)
		return
	}

	if outcome.Status != translate.StatusSuccess {
		h.logger.Warn("translation failed upstream", zap.String(requestIDKey, requestID(c)), zap.String("lang", lang))
		c.JSON(http.StatusOK, gin.H{"status": outcome.Status, "details": outcome.Details})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": outcome.Status, "file": outcome.File})
}
