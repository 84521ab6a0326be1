package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/hottubshop/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrMailDispatchFailed):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody turns err into the single message shown to the user.
func errorBody(err error) gin.H {
	body := gin.H{}
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		body["error"] = verr.Error()
		body["fieldErrors"] = verr.Fields
	case errors.Is(err, models.ErrValidationFailed):
		body["error"] = err.Error()
	case errors.Is(err, models.ErrNotFound):
		body["error"] = "not found"
	case errors.Is(err, models.ErrMailDispatchFailed):
		body["error"] = err.Error()
	case errors.Is(err, models.ErrPersistenceUnavailable):
		body["error"] = "storage is currently unavailable, please try again"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		body["error"] = "request cancelled, please retry"
	default:
		body["error"] = "internal error"
	}
	return body
}

// fail logs err with the operation and responds. extra is merged into the response body.
func (g *Gateway) fail(c *gin.Context, op string, err error, extra gin.H, fields ...zap.Field) {
	status := statusFor(err)
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	if status >= http.StatusInternalServerError {
		g.logger.Error("Request failed", fields...)
	} else {
		g.logger.Warn("Request rejected", fields...)
	}

	body := errorBody(err)
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
