// Package server exposes the query service over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourism-rag/internal/models"
)

// Answerer is the query pipeline behind POST /chat.
type Answerer interface {
	Answer(ctx context.Context, sessionID, question string) (string, error)
	Documents() int
}

type Handler struct {
	answerer Answerer
}

func NewHandler(answerer Answerer) *Handler {
	return &Handler{answerer: answerer}
}

func NewRouter(h *Handler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(TraceIDMiddleware(), RequestLogger(), Recovery())

	r.POST("/chat", h.Chat)
	r.GET("/health", h.Health)
	return r
}

func (h *Handler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "question is required and must be a string")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = models.DefaultSessionID
	}

	answer, err := h.answerer.Answer(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ChatResponse{Answer: answer, SessionID: sessionID})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "documents": h.answerer.Documents()})
}
