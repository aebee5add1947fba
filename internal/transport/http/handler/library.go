package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rulebook-assistant/internal/app"
	"rulebook-assistant/internal/pkg/pdfextract"
	"rulebook-assistant/internal/transport/http/response"
)

type LibraryHandler struct {
	library     *app.LibraryService
	maxPDFBytes int64
}

func NewLibraryHandler(library *app.LibraryService, maxUploadMB int) *LibraryHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &LibraryHandler{
		library:     library,
		maxPDFBytes: int64(maxUploadMB) << 20,
	}
}

// Upload accepts a multipart form with "file" (PDF) and optional "name",
// extracts the text and ingests it as a new rulebook.
func (h *LibraryHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxPDFBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	res, err := pdfextract.Extract(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	result, err := h.library.Ingest(c.Request.Context(), app.IngestInput{
		UserID: userID,
		Name:   name,
		Text:   res.Text,
		Pages:  res.Pages,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyDocument), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrProviderRequest):
			response.Error(c, http.StatusBadGateway, response.CodeProviderFailure, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}

func (h *LibraryHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	books, err := h.library.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list rulebooks failed")
		return
	}

	response.OK(c, books)
}

func (h *LibraryHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	rulebookID, err := parseUintParam(c, "id")
	if err != nil || rulebookID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid rulebook id")
		return
	}

	if err := h.library.Delete(c.Request.Context(), userID, rulebookID); err != nil {
		switch {
		case errors.Is(err, app.ErrRulebookNotFound):
			response.Error(c, http.StatusNotFound, response.CodeRulebookNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete rulebook failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_rulebook_id": rulebookID})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}
