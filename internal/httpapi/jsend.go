package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	jsendSuccess = "success"
	jsendFail    = "fail"
	jsendError   = "error"
)

// jsendResponse is the envelope for every API response. RequestID echoes the
// X-Request-Id assigned by the request id middleware.
type jsendResponse struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respond(c echo.Context, httpStatus int, body jsendResponse) error {
	body.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(httpStatus, body)
}

func success(c echo.Context, data any) error {
	return respond(c, http.StatusOK, jsendResponse{Status: jsendSuccess, Data: data})
}

func fail(c echo.Context, httpStatus int, message string, data any) error {
	return respond(c, httpStatus, jsendResponse{Status: jsendFail, Message: message, Data: data})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{"validation_errors": fieldErrors})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return respond(c, http.StatusInternalServerError, jsendResponse{
		Status:  jsendError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
