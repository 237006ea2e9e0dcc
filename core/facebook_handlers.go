package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"

	"github.com/upcrm/forms-transport/core/db"
	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/errorutil"
	"github.com/upcrm/forms-transport/core/facebook"
	"github.com/upcrm/forms-transport/core/logger"
)

const hubModeSubscribe = "subscribe"

// handleFacebookVerification answers the Meta webhook handshake. It has
// no side effects and may be called by the provider at any time.
func (e *Engine) handleFacebookVerification(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != hubModeSubscribe || token != e.Config.GetFacebookConfig().VerifyToken {
		c.JSON(errorutil.Forbidden("verification failed"))
		return
	}

	c.String(http.StatusOK, challenge)
}

// handleFacebookLeadgen accepts a leadgen batch. The response is always a
// success acknowledgment: anything else would make the provider retry the
// whole batch, which the per-change isolation already handles better.
func (e *Engine) handleFacebookLeadgen(c *gin.Context) {
	var event facebook.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		e.leadCounter.HitFailed()
		e.Logger().Warn("undecodable leadgen delivery", logger.Err(err))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	stored := e.fbCollector.Collect(c.Request.Context(), event)
	if stored > 0 {
		e.leadCounter.HitProcessed()
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stored": stored})
}

// handleFacebookCallback finishes the OAuth flow. The state parameter
// carries the CRM user id issued at authorization time.
func (e *Engine) handleFacebookCallback(c *gin.Context) {
	code := c.Query("code")
	userID, err := strconv.Atoi(c.Query("state"))
	if code == "" || err != nil || userID <= 0 {
		c.JSON(errorutil.BadRequest("code and state are required"))
		return
	}

	conn, err := e.fbManager.Connect(c.Request.Context(), userID, code)
	if err != nil {
		var upstream *errorutil.UpstreamError
		if errors.As(err, &upstream) {
			c.JSON(errorutil.GetErrorResponse(http.StatusBadGateway, upstream.Error()))
			return
		}
		e.failWebhook(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "connection": conn.Sanitized()})
}

type pageSelectRequest struct {
	UserID int    `json:"userId" binding:"required"`
	PageID string `json:"pageId" binding:"required"`
}

type formRegisterRequest struct {
	ConnectionID int                  `json:"connectionId" binding:"required"`
	FormID       string               `json:"formId" binding:"required,max=70"`
	PageID       string               `json:"pageId" binding:"required,max=70"`
	Mapping      []models.MappingRule `json:"mapping" binding:"omitempty,dive"`
}

// handleFacebookFormRegister links a Lead Ads form to an existing
// connection. The (connection, form) pair must not be registered yet.
func (e *Engine) handleFacebookFormRegister(c *gin.Context) {
	var request formRegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	}

	if field, duplicated := duplicateMappingTarget(request.Mapping); duplicated {
		c.JSON(errorutil.BadRequest(fmt.Sprintf("canonical field %q is mapped more than once", field)))
		return
	}

	if _, err := e.Facebook.ConnectionByID(request.ConnectionID); err != nil {
		if gorm.IsRecordNotFoundError(err) {
			c.JSON(errorutil.NotFound("connection not found"))
			return
		}
		e.failWebhook(c, err)
		return
	}

	form := models.FacebookForm{
		ConnectionID: request.ConnectionID,
		FormID:       request.FormID,
		PageID:       request.PageID,
		Mapping:      models.MappingRulesColumn(request.Mapping),
		Active:       true,
	}

	switch err := e.Facebook.CreateForm(&form); {
	case errors.Is(err, db.ErrFormExists):
		c.JSON(errorutil.Conflict(err.Error()))
		return
	case err != nil:
		e.failWebhook(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "form": form})
}

// handleFacebookPageSelect records the page choice of a connected user.
func (e *Engine) handleFacebookPageSelect(c *gin.Context) {
	var request pageSelectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(errorutil.BadRequest(err.Error()))
		return
	}

	conn, err := e.fbManager.SelectPage(c.Request.Context(), request.UserID, request.PageID)
	switch {
	case errors.Is(err, facebook.ErrPageNotKnown), gorm.IsRecordNotFoundError(err):
		c.JSON(errorutil.NotFound("page not found"))
		return
	case err != nil:
		e.failWebhook(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "connection": conn.Sanitized()})
}
