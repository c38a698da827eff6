package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/service"
)

// Envelope is the body of every non-webhook response; StatusCode mirrors the HTTP status
type Envelope struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Message: message, StatusCode: status, Data: data})
}

// respondError maps service errors onto HTTP statuses; unknown errors are logged and hidden
func respondError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return respond(c, status, "Internal server error", nil)
	}
	return respond(c, status, err.Error(), nil)
}

func statusFor(err error) int {
	var (
		validation *service.ValidationError
		signature  *service.SignatureError
		notFound   *service.NotFoundError
		state      *service.InvalidStateError
		gateway    *service.GatewayError
		httpErr    *echo.HTTPError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &signature):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.As(err, &gateway):
		return http.StatusBadGateway
	case errors.As(err, &httpErr):
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// errorHandler renders echo's own errors (404 routes, bind failures) in the envelope
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
		_ = respond(c, httpErr.Code, msg, nil)
		return
	}
	_ = respondError(c, err)
}
