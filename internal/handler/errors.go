package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"tourdesk/internal/service"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "Something went wrong. Please try again later."

// statusFor maps service error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// errorMessage hides internal failures behind a generic message and sets Retry-After when limited.
func errorMessage(c *gin.Context, log *zap.Logger, err error) (int, string) {
	code := statusFor(err)
	var limited *service.RateLimitError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
	}
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		return code, internalErrorMessage
	}
	return code, err.Error()
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	code, msg := errorMessage(c, log, err)
	c.JSON(code, response.Error(code, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
