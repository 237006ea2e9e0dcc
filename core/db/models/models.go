package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// Connector states.
const (
	ConnectorActivated   = "activated"
	ConnectorDeactivated = "deactivated"
)

// Contact defaults applied by the ingestion engine.
const (
	ContactStatusActive   = "Activo"
	ContactOriginForm     = "Formulario"
	ContactOriginFacebook = "Facebook"
)

// FormConnector model. One configured external form source ("Formulario")
// with its own webhook URL, shared secret and field-mapping table.
type FormConnector struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string             `gorm:"column:name; type:varchar(150); not null" json:"name" binding:"required,max=150"`
	URL         string             `gorm:"column:url; type:varchar(255)" json:"url,omitempty" binding:"omitempty,max=255"`
	NotifyEmail string             `gorm:"column:notify_email; type:varchar(150)" json:"notifyEmail,omitempty" binding:"omitempty,email,max=150"` // nolint:lll
	State       string             `gorm:"column:state; type:varchar(20); not null; default:'activated'" json:"state,omitempty"`
	Tags        StringArray        `gorm:"column:tags; type:text" json:"tags"`
	Mapping     MappingRulesColumn `gorm:"column:mapping; type:text" json:"mapping"`
	WebhookURL  string             `gorm:"column:webhook_url; type:varchar(255)" json:"webhookUrl,omitempty"`
	Secret      string             `gorm:"column:secret; type:varchar(64); not null; unique" json:"-"`
	UserID      int                `gorm:"column:user_id; not null" json:"userId,omitempty"`
	ID          int                `gorm:"primary_key" json:"id"`
}

// TableName for FormConnector.
func (FormConnector) TableName() string {
	return "formulario"
}

// Activated reports whether the connector accepts submissions.
func (f FormConnector) Activated() bool {
	return f.State == ConnectorActivated
}

// Contact model. Canonical lead record; the ingestion engine only ever
// creates these, it never updates them afterwards.
type Contact struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Name       string      `gorm:"column:nombre; type:varchar(150); not null" json:"nombre"`
	Surname    string      `gorm:"column:apellidos; type:varchar(150)" json:"apellidos,omitempty"`
	Email      string      `gorm:"column:email; type:varchar(150)" json:"email,omitempty"`
	Phone      string      `gorm:"column:telefono; type:varchar(40)" json:"telefono,omitempty"`
	Company    string      `gorm:"column:empresa; type:varchar(150)" json:"empresa,omitempty"`
	Address    string      `gorm:"column:direccion; type:varchar(255)" json:"direccion,omitempty"`
	Locality   string      `gorm:"column:localidad; type:varchar(150)" json:"localidad,omitempty"`
	Region     string      `gorm:"column:provincia; type:varchar(150)" json:"provincia,omitempty"`
	Country    string      `gorm:"column:pais; type:varchar(100)" json:"pais,omitempty"`
	PostalCode string      `gorm:"column:cp; type:varchar(20)" json:"cp,omitempty"`
	Status     string      `gorm:"column:estado; type:varchar(50); not null" json:"estado,omitempty"`
	Origin     string      `gorm:"column:origen; type:varchar(50)" json:"origen,omitempty"`
	Date       time.Time   `gorm:"column:fecha_creacion; not null" json:"fechaCreacion,omitempty"`
	Birthdate  null.Time   `gorm:"column:fecha_nacimiento" json:"fechaNacimiento,omitempty"`
	Tags       StringArray `gorm:"column:tags; type:text" json:"tags"`
	UserID     int         `gorm:"column:user_id; not null" json:"userId,omitempty"`
	ID         int         `gorm:"primary_key" json:"id"`
}

// TableName for Contact.
func (Contact) TableName() string {
	return "contacto"
}

// Page descriptor stored on a Facebook connection.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken,omitempty"`
}

// FacebookConnection model. At most one per CRM user.
type FacebookConnection struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FacebookUserID string    `gorm:"column:facebook_user_id; type:varchar(70)" json:"facebookUserId,omitempty"`
	AccessToken    string    `gorm:"column:access_token; type:varchar(512)" json:"-"`
	TokenExpiresAt null.Time `gorm:"column:token_expires_at" json:"tokenExpiresAt,omitempty"`
	Pages          Pages     `gorm:"column:pages; type:text" json:"pages"`
	PageID         string    `gorm:"column:page_id; type:varchar(70)" json:"pageId,omitempty"`
	PageToken      string    `gorm:"column:page_token; type:varchar(512)" json:"-"`
	UserID         int       `gorm:"column:user_id; not null; unique" json:"userId"`
	ID             int       `gorm:"primary_key" json:"id"`
}

// TableName for FacebookConnection.
func (FacebookConnection) TableName() string {
	return "facebook_connection"
}

// Sanitized returns a copy safe for API responses. Stored page tokens
// never leave the service.
func (c FacebookConnection) Sanitized() FacebookConnection {
	pages := make(Pages, len(c.Pages))
	for i, page := range c.Pages {
		page.AccessToken = ""
		pages[i] = page
	}
	c.Pages = pages
	return c
}

// PageByID returns the stored page descriptor with the given id.
func (c FacebookConnection) PageByID(pageID string) (Page, bool) {
	for _, page := range c.Pages {
		if page.ID == pageID {
			return page, true
		}
	}
	return Page{}, false
}

// FacebookForm links a Lead Ads form to a connection.
type FacebookForm struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FormID       string             `gorm:"column:form_id; type:varchar(70); not null" json:"formId" binding:"required"`
	PageID       string             `gorm:"column:page_id; type:varchar(70); not null" json:"pageId" binding:"required"`
	Mapping      MappingRulesColumn `gorm:"column:mapping; type:text" json:"mapping"`
	Active       bool               `gorm:"column:active; not null; default:true" json:"active"`
	ConnectionID int                `gorm:"column:connection_id; not null" json:"connectionId"`
	ID           int                `gorm:"primary_key" json:"id"`
}

// TableName for FacebookForm.
func (FacebookForm) TableName() string {
	return "facebook_form"
}

// Lead model. Raw captured Facebook lead payload, stored verbatim.
type Lead struct {
	CreatedAt time.Time
	LeadgenID string    `gorm:"column:leadgen_id; type:varchar(70); not null" json:"leadgenId"`
	FieldData RawFields `gorm:"column:field_data; type:text" json:"fieldData"`
	FormID    int       `gorm:"column:form_id; not null" json:"formId"`
	UserID    int       `gorm:"column:user_id; not null" json:"userId"`
	ID        int       `gorm:"primary_key" json:"id"`
}

// TableName for Lead.
func (Lead) TableName() string {
	return "lead"
}
