package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rulebook-assistant/internal/transport/http/middleware"
	"rulebook-assistant/internal/transport/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser injects an authenticated user the way the JWT middleware would.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var body response.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return body
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestUploadRequiresAuthContext(t *testing.T) {
	h := NewLibraryHandler(nil, 10)
	r := gin.New()
	r.POST("/rulebooks", h.Upload)

	req := httptest.NewRequest(http.MethodPost, "/rulebooks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth context, got %d", w.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	h := NewLibraryHandler(nil, 10)
	r := gin.New()
	r.POST("/rulebooks", asUser(1), h.Upload)

	req := httptest.NewRequest(http.MethodPost, "/rulebooks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", w.Code)
	}
	if body := decodeResponse(t, w); body.Code != response.CodeBadRequest {
		t.Fatalf("unexpected body code %d", body.Code)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	h := NewLibraryHandler(nil, 10)
	r := gin.New()
	r.POST("/rulebooks", asUser(1), h.Upload)

	buf, contentType := multipartBody(t, "rules.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/rulebooks", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-PDF upload, got %d", w.Code)
	}
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	h := NewLibraryHandler(nil, 1) // 1 MB limit
	r := gin.New()
	r.POST("/rulebooks", asUser(1), h.Upload)

	buf, contentType := multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/rulebooks", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversize upload, got %d", w.Code)
	}
}

func TestUploadRejectsUnparsablePDF(t *testing.T) {
	h := NewLibraryHandler(nil, 10)
	r := gin.New()
	r.POST("/rulebooks", asUser(1), h.Upload)

	buf, contentType := multipartBody(t, "broken.pdf", []byte("not really a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/rulebooks", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unparsable PDF, got %d", w.Code)
	}
}

func TestDeleteInvalidID(t *testing.T) {
	h := NewLibraryHandler(nil, 10)
	r := gin.New()
	r.DELETE("/rulebooks/:id", asUser(1), h.Delete)

	for _, id := range []string{"abc", "0", "-1"} {
		req := httptest.NewRequest(http.MethodDelete, "/rulebooks/"+id, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for id %q, got %d", id, w.Code)
		}
	}
}

func TestAskRejectsMissingQuestion(t *testing.T) {
	h := NewAskHandler(nil)
	r := gin.New()
	r.POST("/ask", asUser(1), h.Ask)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"provider":"ollama"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing question, got %d", w.Code)
	}
}

func TestAskRequiresAuthContext(t *testing.T) {
	h := NewAskHandler(nil)
	r := gin.New()
	r.POST("/ask", h.Ask)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth context, got %d", w.Code)
	}
}
