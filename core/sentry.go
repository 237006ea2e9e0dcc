package core

import (
	"net/http"
	"sync"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/upcrm/forms-transport/core/logger"
)

// Sentry wraps the error reporting SDK. Handlers push errors into the gin
// context; the middleware chain below converts them into captured events
// and a generic 500 response.
type Sentry struct {
	init         sync.Once
	SentryConfig sentry.ClientOptions
	Logger       logger.Logger
	DefaultError string
}

// InitSentrySDK initializes the SDK once. An empty DSN disables delivery
// without disabling the middleware chain.
func (s *Sentry) InitSentrySDK() {
	s.init.Do(func() {
		if err := sentry.Init(s.SentryConfig); err != nil {
			panic(err)
		}
	})
}

// CaptureException sends the error to Sentry with the request scope.
func (s *Sentry) CaptureException(c *gin.Context, exception error) {
	if exception == nil {
		return
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		s.setScopeTags(c, hub.Scope())
		hub.CaptureException(exception)
		return
	}
	_ = c.Error(exception)
}

// CaptureMessage sends the message to Sentry with the request scope.
func (s *Sentry) CaptureMessage(c *gin.Context, message string) {
	if message == "" {
		return
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		s.setScopeTags(c, hub.Scope())
		hub.CaptureMessage(message)
	}
}

// SentryMiddlewares returns the middleware chain handling panics and
// accumulated request errors.
func (s *Sentry) SentryMiddlewares() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			hub := sentry.GetHubFromContext(c.Request.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			s.setScopeTags(c, hub.Scope())
		},
		func(c *gin.Context) {
			defer func() {
				recovery := recover()
				privateErrors := c.Errors.ByType(gin.ErrorTypePrivate)

				if len(privateErrors) == 0 && recovery == nil {
					return
				}

				for _, err := range privateErrors {
					s.CaptureException(c, err)
				}

				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, gin.H{"error": s.DefaultError})
				}

				// will be caught by the Sentry recovery middleware
				if recovery != nil {
					panic(recovery)
				}
			}()

			c.Next()
		},
		gin.CustomRecovery(func(c *gin.Context, err interface{}) {
			if !c.Writer.Written() {
				c.JSON(http.StatusInternalServerError, gin.H{"error": s.DefaultError})
			}
		}),
		sentrygin.New(sentrygin.Options{Repanic: true}),
	}
}

func (s *Sentry) setScopeTags(c *gin.Context, scope *sentry.Scope) {
	scope.SetTag("endpoint", c.Request.RequestURI)
}
