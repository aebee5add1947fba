package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rulebook-assistant/internal/app"
	"rulebook-assistant/internal/transport/http/response"
)

type AskHandler struct {
	answers *app.AnswerService
}

type AskRequest struct {
	Question     string `json:"question" binding:"required"`
	RulebookIDs  []uint `json:"rulebook_ids"`
	Provider     string `json:"provider"`
	TopK         int    `json:"top_k"`
	FullDocument bool   `json:"full_document"`
}

func NewAskHandler(answers *app.AnswerService) *AskHandler {
	return &AskHandler{answers: answers}
}

func (h *AskHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.answers.Ask(c.Request.Context(), app.AskInput{
		UserID:       userID,
		Question:     req.Question,
		RulebookIDs:  req.RulebookIDs,
		Provider:     req.Provider,
		TopK:         req.TopK,
		FullDocument: req.FullDocument,
	})
	if err != nil {
		writeAskError(c, err)
		return
	}

	response.OK(c, result)
}

// AskStream streams the answer as SSE "data:" lines, ending with [DONE].
func (h *AskHandler) AskStream(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	_, err := h.answers.AskStream(c.Request.Context(), app.AskInput{
		UserID:       userID,
		Question:     req.Question,
		RulebookIDs:  req.RulebookIDs,
		Provider:     req.Provider,
		TopK:         req.TopK,
		FullDocument: req.FullDocument,
	}, func(chunk string) error {
		c.SSEvent("message", chunk)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}

	c.SSEvent("message", "[DONE]")
	c.Writer.Flush()
}

func writeAskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrNoRulebooks),
		errors.Is(err, app.ErrNoChunks),
		errors.Is(err, app.ErrUnknownProvider),
		errors.Is(err, app.ErrProviderKeyMissing):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrProviderRequest):
		response.Error(c, http.StatusBadGateway, response.CodeProviderFailure, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
	}
}
