package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID заголовок з ідентифікатором запиту
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestLogger присвоює кожному запиту request id і логує результат через logrus
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request completed with errors")
			return
		}
		entry.Debug("Request completed")
	}
}

// RequestIDFrom повертає request id поточного запиту
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
