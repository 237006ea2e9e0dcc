package facebook

import (
	"context"
	"errors"
	"time"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/logger"
)

// ErrPageNotKnown is returned when a page selection names a page the
// stored connection never listed.
var ErrPageNotKnown = errors.New("page is not among the connection pages")

// ConnectionStore is the persistence contract of the connection manager.
type ConnectionStore interface {
	SaveConnection(conn *models.FacebookConnection) error
	ConnectionByUserID(userID int) (models.FacebookConnection, error)
	SaveConnectionSelection(conn *models.FacebookConnection) error
}

// Manager drives the Facebook connection lifecycle: OAuth code exchange,
// page discovery and the page selection with its webhook subscription.
type Manager struct {
	client      *Client
	store       ConnectionStore
	log         logger.Logger
	redirectURL string
	now         func() time.Time
}

// NewManager returns a connection Manager.
func NewManager(client *Client, store ConnectionStore, log logger.Logger, redirectURL string) *Manager {
	return &Manager{
		client:      client,
		store:       store,
		log:         log,
		redirectURL: redirectURL,
		now:         time.Now,
	}
}

// Connect exchanges the OAuth code, discovers the user's pages and stores
// the connection. A user reconnecting replaces their previous connection
// entirely, including any prior page selection. Pages whose token the
// provider withheld are kept in the list so the user can see them, they
// just cannot be selected until reauthorization grants the token.
func (m *Manager) Connect(ctx context.Context, userID int, code string) (models.FacebookConnection, error) {
	token, err := m.client.ExchangeCodeWithRedirect(ctx, code, m.redirectURL)
	if err != nil {
		return models.FacebookConnection{}, err
	}

	user, err := m.client.User(ctx, token.AccessToken)
	if err != nil {
		return models.FacebookConnection{}, err
	}

	accounts, err := m.client.Accounts(ctx, token.AccessToken)
	if err != nil {
		return models.FacebookConnection{}, err
	}

	pages := make(models.Pages, 0, len(accounts))
	for _, account := range accounts {
		if account.AccessToken == "" {
			m.log.Warn("page token withheld by provider, page kept without token",
				zap.String(logger.PageIDAttr, account.ID),
				zap.Int(logger.UserIDAttr, userID))
		}
		pages = append(pages, models.Page{
			ID:          account.ID,
			Name:        account.Name,
			AccessToken: account.AccessToken,
		})
	}

	expiresAt := null.Time{}
	if at := token.ExpiresAt(m.now()); !at.IsZero() {
		expiresAt = null.TimeFrom(at)
	}

	conn := models.FacebookConnection{
		FacebookUserID: user.ID,
		AccessToken:    token.AccessToken,
		TokenExpiresAt: expiresAt,
		Pages:          pages,
		UserID:         userID,
	}

	if err := m.store.SaveConnection(&conn); err != nil {
		return models.FacebookConnection{}, err
	}

	m.log.Info("facebook connection stored",
		zap.Int(logger.UserIDAttr, userID),
		zap.String("facebookUserId", user.ID),
		zap.Int("pages", len(pages)))

	return conn, nil
}

// SelectPage records which page the user picked and subscribes the app to
// its leadgen webhook. The subscription is best effort: leads can still be
// captured once the page delivers events, so a subscription failure is
// logged but does not undo the selection.
func (m *Manager) SelectPage(ctx context.Context, userID int, pageID string) (models.FacebookConnection, error) {
	conn, err := m.store.ConnectionByUserID(userID)
	if err != nil {
		return models.FacebookConnection{}, err
	}

	page, found := conn.PageByID(pageID)
	if !found {
		return models.FacebookConnection{}, ErrPageNotKnown
	}
	if page.AccessToken == "" {
		return models.FacebookConnection{}, ErrPageNotKnown
	}

	conn.PageID = page.ID
	conn.PageToken = page.AccessToken
	if err := m.store.SaveConnectionSelection(&conn); err != nil {
		return models.FacebookConnection{}, err
	}

	if err := m.client.Subscribe(ctx, page.ID, page.AccessToken); err != nil {
		m.log.Warn("page webhook subscription failed, selection kept",
			zap.String(logger.PageIDAttr, page.ID),
			zap.Int(logger.UserIDAttr, userID),
			logger.Err(err))
	}

	return conn, nil
}
