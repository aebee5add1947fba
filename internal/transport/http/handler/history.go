package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rulebook-assistant/internal/repository"
	"rulebook-assistant/internal/transport/http/response"
)

type HistoryHandler struct {
	records *repository.QARecordRepository
}

func NewHistoryHandler(records *repository.QARecordRepository) *HistoryHandler {
	return &HistoryHandler{records: records}
}

func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = parsed
		}
	}

	records, err := h.records.ListByUserID(userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list history failed")
		return
	}

	response.OK(c, records)
}
