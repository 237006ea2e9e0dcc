package core

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/errorutil"
	"github.com/upcrm/forms-transport/core/logger"
)

type connectorCreateRequest struct {
	Name        string               `json:"name" binding:"required,max=150"`
	URL         string               `json:"url" binding:"omitempty,max=255"`
	NotifyEmail string               `json:"notifyEmail" binding:"omitempty,email,max=150"`
	Tags        []string             `json:"tags"`
	Mapping     []models.MappingRule `json:"mapping" binding:"omitempty,dive"`
	UserID      int                  `json:"userId" binding:"required"`
}

// handleConnectorCreate registers a new form source. The shared secret is
// generated here and returned once; afterwards it is only available via
// explicit regeneration.
func (e *Engine) handleConnectorCreate(c *gin.Context) {
	var request connectorCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	}

	if field, duplicated := duplicateMappingTarget(request.Mapping); duplicated {
		c.JSON(errorutil.BadRequest(fmt.Sprintf("canonical field %q is mapped more than once", field)))
		return
	}

	secret, err := e.Secrets.Generate()
	if err != nil {
		e.failWebhook(c, err)
		return
	}

	connector := models.FormConnector{
		Name:        request.Name,
		URL:         request.URL,
		NotifyEmail: request.NotifyEmail,
		State:       models.ConnectorActivated,
		Tags:        models.ToStringArray(request.Tags),
		Mapping:     models.MappingRulesColumn(request.Mapping),
		Secret:      secret,
		UserID:      request.UserID,
	}

	if err := e.Connectors.Create(&connector); err != nil {
		if errorutil.IsUniqueViolation(err) {
			c.JSON(errorutil.Conflict("duplicate record"))
			return
		}
		e.failWebhook(c, err)
		return
	}

	connector.WebhookURL = e.webhookURL(connector.ID)
	if err := e.Connectors.Save(&connector); err != nil {
		e.failWebhook(c, err)
		return
	}

	e.Logger().ForConnector(connector.ID).Info("connector created",
		zap.String("name", connector.Name),
		zap.Int(logger.UserIDAttr, connector.UserID))

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"connector": connector,
		"secret":    connector.Secret,
	})
}

type connectorUpdateRequest struct {
	Name        *string               `json:"name" binding:"omitempty,max=150"`
	URL         *string               `json:"url" binding:"omitempty,max=255"`
	NotifyEmail *string               `json:"notifyEmail" binding:"omitempty,email,max=150"`
	State       *string               `json:"state" binding:"omitempty,oneof=activated deactivated"`
	Tags        *[]string             `json:"tags"`
	Mapping     *[]models.MappingRule `json:"mapping" binding:"omitempty,dive"`
}

// handleConnectorUpdate applies a partial update. Only fields present in
// the payload change; the secret never changes here.
func (e *Engine) handleConnectorUpdate(c *gin.Context) {
	connector, ok := e.connectorFromPath(c)
	if !ok {
		return
	}

	var request connectorUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	}

	if request.Mapping != nil {
		if field, duplicated := duplicateMappingTarget(*request.Mapping); duplicated {
			c.JSON(errorutil.BadRequest(fmt.Sprintf("canonical field %q is mapped more than once", field)))
			return
		}
		connector.Mapping = models.MappingRulesColumn(*request.Mapping)
	}
	if request.Name != nil {
		connector.Name = *request.Name
	}
	if request.URL != nil {
		connector.URL = *request.URL
	}
	if request.NotifyEmail != nil {
		connector.NotifyEmail = *request.NotifyEmail
	}
	if request.State != nil {
		connector.State = *request.State
	}
	if request.Tags != nil {
		connector.Tags = models.ToStringArray(*request.Tags)
	}

	if err := e.Connectors.Save(&connector); err != nil {
		e.failWebhook(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "connector": connector})
}

// handleConnectorSecretRotation replaces the shared secret. The previous
// secret stops matching immediately.
func (e *Engine) handleConnectorSecretRotation(c *gin.Context) {
	connector, ok := e.connectorFromPath(c)
	if !ok {
		return
	}

	secret, err := e.Secrets.Generate()
	if err != nil {
		e.failWebhook(c, err)
		return
	}

	if err := e.Connectors.UpdateSecret(connector.ID, secret); err != nil {
		e.failWebhook(c, err)
		return
	}

	e.Logger().ForConnector(connector.ID).Info("connector secret regenerated")

	c.JSON(http.StatusOK, gin.H{"success": true, "secret": secret})
}

func (e *Engine) connectorFromPath(c *gin.Context) (models.FormConnector, bool) {
	connectorID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(errorutil.NotFound("connector not found"))
		return models.FormConnector{}, false
	}

	connector, err := e.Connectors.ByID(connectorID)
	switch {
	case gorm.IsRecordNotFoundError(err):
		c.JSON(errorutil.NotFound("connector not found"))
		return models.FormConnector{}, false
	case err != nil:
		e.failWebhook(c, err)
		return models.FormConnector{}, false
	}

	return connector, true
}

func (e *Engine) webhookURL(connectorID int) string {
	return fmt.Sprintf("%s/webhook/form/%d", e.Config.GetHTTPConfig().Host, connectorID)
}
