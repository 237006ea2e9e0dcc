package core

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/errorutil"
	"github.com/upcrm/forms-transport/core/ingest"
	"github.com/upcrm/forms-transport/core/logger"
)

// handleFormWebhook ingests one third-party form submission addressed to
// a connector. The secret check responds with a generic message so probing
// requests learn nothing about which part failed.
func (e *Engine) handleFormWebhook(c *gin.Context) {
	connectorID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(errorutil.NotFound("connector not found"))
		return
	}

	connector, err := e.Connectors.ByID(connectorID)
	switch {
	case gorm.IsRecordNotFoundError(err):
		c.JSON(errorutil.NotFound("connector not found"))
		return
	case err != nil:
		e.failWebhook(c, err)
		return
	}

	if !connector.Activated() {
		c.JSON(errorutil.NotFound("connector not found"))
		return
	}

	log := e.Logger().ForConnector(connector.ID)

	payload, err := ingest.Normalize(c.Request, log)
	if err != nil {
		e.formCounter.HitFailed()
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	}

	if !ingest.VerifySecret(connector.Secret, payload[ingest.SecretField]) {
		e.formCounter.HitFailed()
		log.Warn("webhook secret mismatch", zap.String("remoteAddress", c.ClientIP()))
		c.JSON(errorutil.Forbidden("forbidden"))
		return
	}
	delete(payload, ingest.SecretField)

	contact, err := e.processor.Process(&connector, payload)
	switch {
	case errorutil.IsValidation(err):
		e.formCounter.HitFailed()
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	case errorutil.IsUniqueViolation(err):
		e.formCounter.HitFailed()
		c.JSON(errorutil.Conflict("duplicate record"))
		return
	case err != nil:
		e.formCounter.HitFailed()
		e.failWebhook(c, err)
		return
	}

	e.formCounter.HitProcessed()
	c.JSON(http.StatusOK, gin.H{"success": true, "contactId": contact.ID})
}

// failWebhook reports an unexpected error and responds 500.
func (e *Engine) failWebhook(c *gin.Context, err error) {
	e.Logger().Error("webhook processing failed", logger.Err(err))
	e.CaptureException(c, err)
	c.JSON(errorutil.InternalServerError(e.DefaultError))
}

// handleHealth reports liveness plus current throughput counters.
func (e *Engine) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"version": e.Config.GetVersion(),
		"webhooks": gin.H{
			"form": gin.H{
				"processed": e.formCounter.TotalProcessed(),
				"failed":    e.formCounter.TotalFailed(),
			},
			"facebook": gin.H{
				"processed": e.leadCounter.TotalProcessed(),
				"failed":    e.leadCounter.TotalFailed(),
			},
		},
	})
}
