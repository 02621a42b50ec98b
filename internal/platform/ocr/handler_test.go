package ocr

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestUploadDocument_Accepted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"documentId": "doc-1", "status": "processing"})
	}))
	h := NewHandler(client)

	body, contentType := multipartUpload(t, "file", "chart.jpg", "fake image bytes")
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/ocr/documents", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UploadDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["documentId"] != "doc-1" {
		t.Errorf("expected documentId doc-1, got %s", resp["documentId"])
	}
	if resp["status"] != StatusProcessing {
		t.Errorf("expected status processing, got %s", resp["status"])
	}
}

func TestUploadDocument_MissingFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called without a file")
	}))
	h := NewHandler(client)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/ocr/documents", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.UploadDocument(c)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestGetDocument_CompletedIncludesTerms(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"documentId": "doc-2",
			"status":     "completed",
			"transcript": "Patient reports chest pain and shortness of breath.",
		})
	}))
	h := NewHandler(client)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ocr/documents/doc-2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("doc-2")

	if err := h.GetDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status string   `json:"status"`
		Terms  []string `json:"terms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", resp.Status)
	}
	if len(resp.Terms) == 0 {
		t.Fatal("expected extracted terms for completed transcript")
	}
	found := false
	for _, term := range resp.Terms {
		if term == "chest pain" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected term \"chest pain\" in %v", resp.Terms)
	}
}

func TestGetDocument_ProcessingOmitsTerms(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"documentId": "doc-3",
			"status":     "processing",
		})
	}))
	h := NewHandler(client)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ocr/documents/doc-3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("doc-3")

	if err := h.GetDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "\"terms\"") {
		t.Error("terms should be omitted while processing")
	}
}
