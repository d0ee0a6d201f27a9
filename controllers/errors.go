package controllers

import (
	"context"
	"errors"
	"net/http"

	"civictrack-be/middlewares"
	"civictrack-be/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error kind onto the HTTP status returned to clients.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindInvalidArgument:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindAlreadyFlagged, services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, op string, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	message := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "Request timed out"
	case kind == services.KindUnknown:
		message = "Something went wrong"
	}

	l := middlewares.RequestLog(c)
	if status >= http.StatusInternalServerError {
		l.Error(op+"_failed", "err", err, "kind", kind.String())
	} else {
		l.Debug(op+"_rejected", "err", err, "kind", kind.String())
	}
	c.JSON(status, gin.H{"error": message})
}
