package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/saqreed/super-sto-sub000/internal/handler"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

// ErrorHandler turns errors attached to the gin context into the
// response envelope, mapping typed workflow errors to their HTTP status
// and surfacing machine-readable code and reason for caller retry logic.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		lastErr := c.Errors.Last().Err
		resp := &handler.Response{
			Status:  "error",
			Message: lastErr.Error(),
		}
		status := http.StatusInternalServerError

		if appErr := apperror.As(lastErr); appErr != nil {
			status = appErr.StatusCode()
			resp.Code = string(appErr.Code)
			resp.Reason = string(appErr.Reason)
			resp.Message = appErr.Message
		}

		c.JSON(status, resp)
	}
}
