package ocr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the transcription pipeline over HTTP: upload an image,
// then poll the returned document id until the job is terminal.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ocr/documents", h.UploadDocument)
	api.GET("/ocr/documents/:id", h.GetDocument)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	id, err := h.client.Upload(c.Request().Context(), fh.Filename, contentType, f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"documentId": id,
		"status":     StatusProcessing,
	})
}

type documentResponse struct {
	Document
	Terms []string `json:"terms,omitempty"`
}

// GetDocument reports job state; once the transcript is in, the extracted
// medical terms ride along for intake prefill.
func (h *Handler) GetDocument(c echo.Context) error {
	doc, err := h.client.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := documentResponse{Document: *doc}
	if doc.Status == StatusCompleted {
		resp.Terms = ExtractTerms(doc.Transcript)
	}
	return c.JSON(http.StatusOK, resp)
}
