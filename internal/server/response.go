package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tourism-rag/internal/models"
)

type APIResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

func RespondError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps validation errors to 400 and everything else to 500.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrRetrieval):
		log.Error().Err(err).Str("trace_id", traceID(c)).Msg("Retrieval failed")
		RespondError(c, http.StatusInternalServerError, "Retrieval failed")
	case errors.Is(err, models.ErrModelInvocation):
		log.Error().Err(err).Str("trace_id", traceID(c)).Msg("Model invocation failed")
		RespondError(c, http.StatusInternalServerError, "Model invocation failed")
	default:
		log.Error().Err(err).Str("trace_id", traceID(c)).Msg("Unknown error")
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
