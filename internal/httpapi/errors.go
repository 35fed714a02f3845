package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fmueller/subgen/internal/translate"
	"github.com/fmueller/subgen/internal/whisper"
)

// statusClientClosed is logged when the caller went away mid-request.
const statusClientClosed = 499

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, whisper.ErrUnknownModel), errors.Is(err, translate.ErrInvalidLanguage):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, translate.ErrEngineUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes {error} with the status err maps to. The error is also
// recorded on the context so the access log carries it.
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
