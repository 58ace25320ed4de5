package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/showlist/internal/ingest"
)

type jsendResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, jsendResponse{
		Status: "success",
		Data:   data,
	})
}

// ingestSummary is the data block of a batch ingest response.
type ingestSummary struct {
	Source   string            `json:"source"`
	Venue    string            `json:"venue_id"`
	Received int               `json:"received"`
	Result   ingest.SaveResult `json:"result"`
}

func successIngest(c echo.Context, summary ingestSummary) error {
	return success(c, summary)
}

// failBatch reports a batch rejected before any event was looked at.
func failBatch(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "Invalid scrape batch", map[string]any{
		"batch_error": err.Error(),
	})
}

func fail(c echo.Context, code int, message string, data any) error {
	resp := jsendResponse{
		Status:  "fail",
		Message: message,
	}
	if data != nil {
		resp.Data = data
	}
	return c.JSON(code, resp)
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendResponse{
		Status:  "error",
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
