package db

import (
	"errors"

	"github.com/jinzhu/gorm"

	"github.com/upcrm/forms-transport/core/db/models"
)

// ErrFormExists is returned on an attempt to register the same Lead Ads
// form twice for one connection. Uniqueness of (connectionId, formId) is
// enforced by this pre-insert check, not by the schema; two concurrent
// registrations may still race past it.
var ErrFormExists = errors.New("form is already registered for this connection")

// ConnectorStore persists form connectors.
type ConnectorStore struct {
	DB *gorm.DB
}

// ByID returns the connector with the given id.
func (s ConnectorStore) ByID(id int) (models.FormConnector, error) {
	var connector models.FormConnector
	err := s.DB.First(&connector, id).Error
	return connector, err
}

// ByUserID returns all connectors owned by the given user.
func (s ConnectorStore) ByUserID(userID int) ([]models.FormConnector, error) {
	var connectors []models.FormConnector
	err := s.DB.Where("user_id = ?", userID).Find(&connectors).Error
	return connectors, err
}

// Create persists a new connector.
func (s ConnectorStore) Create(connector *models.FormConnector) error {
	return s.DB.Create(connector).Error
}

// Save persists connector changes.
func (s ConnectorStore) Save(connector *models.FormConnector) error {
	return s.DB.Save(connector).Error
}

// UpdateSecret replaces the shared secret of a connector.
func (s ConnectorStore) UpdateSecret(id int, secret string) error {
	return s.DB.Model(&models.FormConnector{}).
		Where("id = ?", id).
		Update("secret", secret).Error
}

// ContactStore persists contacts.
type ContactStore struct {
	DB *gorm.DB
}

// Create inserts a contact. The ingestion engine never updates contacts,
// so repeated submissions from the same lead produce duplicates on purpose.
func (s ContactStore) Create(contact *models.Contact) error {
	return s.DB.Create(contact).Error
}

// FacebookStore persists connections, registered forms and raw leads.
type FacebookStore struct {
	DB *gorm.DB
}

// SaveConnection creates or replaces the connection keyed by CRM user id.
// A reconnecting user supersedes the prior connection, last write wins.
func (s FacebookStore) SaveConnection(conn *models.FacebookConnection) error {
	var existing models.FacebookConnection
	err := s.DB.Where("user_id = ?", conn.UserID).First(&existing).Error
	switch {
	case err == nil:
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		return s.DB.Save(conn).Error
	case gorm.IsRecordNotFoundError(err):
		return s.DB.Create(conn).Error
	default:
		return err
	}
}

// ConnectionByUserID returns the connection owned by the given CRM user.
func (s FacebookStore) ConnectionByUserID(userID int) (models.FacebookConnection, error) {
	var conn models.FacebookConnection
	err := s.DB.Where("user_id = ?", userID).First(&conn).Error
	return conn, err
}

// ConnectionByID returns a connection by primary key.
func (s FacebookStore) ConnectionByID(id int) (models.FacebookConnection, error) {
	var conn models.FacebookConnection
	err := s.DB.First(&conn, id).Error
	return conn, err
}

// SaveConnectionSelection persists the chosen page and its token.
func (s FacebookStore) SaveConnectionSelection(conn *models.FacebookConnection) error {
	return s.DB.Model(&models.FacebookConnection{}).
		Where("id = ?", conn.ID).
		Updates(map[string]interface{}{
			"page_id":    conn.PageID,
			"page_token": conn.PageToken,
		}).Error
}

// ActiveFormByFormID resolves a registered, active form by provider form id.
func (s FacebookStore) ActiveFormByFormID(formID string) (models.FacebookForm, error) {
	var form models.FacebookForm
	err := s.DB.Where("form_id = ? AND active = ?", formID, true).First(&form).Error
	return form, err
}

// CreateForm registers a form after checking the (connection, form) pair
// is not present yet.
func (s FacebookStore) CreateForm(form *models.FacebookForm) error {
	var existing models.FacebookForm
	err := s.DB.Where("connection_id = ? AND form_id = ?", form.ConnectionID, form.FormID).
		First(&existing).Error
	switch {
	case err == nil:
		return ErrFormExists
	case gorm.IsRecordNotFoundError(err):
		return s.DB.Create(form).Error
	default:
		return err
	}
}

// CreateLead stores a raw captured lead.
func (s FacebookStore) CreateLead(lead *models.Lead) error {
	return s.DB.Create(lead).Error
}
