package middleware

import (
	"github.com/gin-gonic/gin"
)

var ginContextSentryKey = "middleware-sentry"

// Sentry is the error reporting surface handlers may use. The concrete
// implementation lives on the engine; handlers reach it through the
// request context so they stay testable with a mock.
type Sentry interface {
	CaptureException(c *gin.Context, exception error)
	CaptureMessage(c *gin.Context, message string)
}

// InjectSentry puts the reporter into every request context.
func InjectSentry(sentry Sentry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ginContextSentryKey, sentry)
	}
}

// GetSentry extracts the reporter from the request context.
func GetSentry(c *gin.Context) (Sentry, bool) {
	sentryValue, ok := c.Get(ginContextSentryKey)
	if !ok {
		return nil, false
	}
	obj, ok := sentryValue.(Sentry)
	if !ok || obj == nil {
		return nil, false
	}
	return obj, true
}

// MustGetSentry extracts the reporter or panics.
func MustGetSentry(c *gin.Context) Sentry {
	if obj, ok := GetSentry(c); ok && obj != nil {
		return obj
	}
	panic("sentry reporter not found in context")
}

// CaptureException reports the error when a reporter was injected. A
// request served without one is a no-op.
func CaptureException(c *gin.Context, exception error) {
	obj, found := GetSentry(c)
	if !found {
		return
	}
	obj.CaptureException(c, exception)
}

// CaptureMessage reports the message when a reporter was injected.
func CaptureMessage(c *gin.Context, message string) {
	obj, found := GetSentry(c)
	if !found {
		return
	}
	obj.CaptureMessage(c, message)
}
