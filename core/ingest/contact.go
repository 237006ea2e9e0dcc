package ingest

import (
	"time"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/errorutil"
	"github.com/upcrm/forms-transport/core/logger"
	"github.com/upcrm/forms-transport/core/util"
)

// ErrNameRequired is returned when mapping produced no usable name.
// Checked before any write happens.
var ErrNameRequired = &errorutil.ValidationError{Msg: "name is required"}

const birthdateLayout = "2006-01-02"

// ContactStore is the persistence contract of the contact writer.
type ContactStore interface {
	Create(contact *models.Contact) error
}

// Processor turns a normalized payload into a persisted Contact using the
// connector's mapping rules. It only ever inserts: repeated submissions
// from the same lead intentionally create duplicates, merging is a manual
// CRM workflow.
type Processor struct {
	Store  ContactStore
	Log    logger.Logger
	Now    func() time.Time
	Origin string
}

// NewProcessor returns a Processor writing through the provided store.
func NewProcessor(store ContactStore, log logger.Logger) *Processor {
	return &Processor{Store: store, Log: log, Now: time.Now, Origin: models.ContactOriginForm}
}

// Process maps the payload and persists a new Contact owned by the
// connector's user. The payload must already be past the secret gate.
func (p *Processor) Process(connector *models.FormConnector, payload map[string]string) (*models.Contact, error) {
	mapped := ApplyMappings(payload, connector.Mapping)

	contact := p.buildContact(connector, mapped)
	if contact.Name == "" {
		return nil, ErrNameRequired
	}

	if err := p.Store.Create(contact); err != nil {
		return nil, err
	}

	p.Log.ForConnector(connector.ID).Info("contact created from webhook",
		zap.Int("contactId", contact.ID),
		zap.Int(logger.UserIDAttr, contact.UserID))

	return contact, nil
}

func (p *Processor) buildContact(connector *models.FormConnector, mapped Mapped) *models.Contact {
	now := p.Now()

	contact := &models.Contact{
		Name:       mapped.Get(models.FieldName),
		Surname:    mapped.Get(models.FieldSurname),
		Email:      mapped.Get(models.FieldEmail),
		Phone:      p.normalizePhone(connector, mapped.Get(models.FieldPhone)),
		Company:    mapped.Get(models.FieldCompany),
		Address:    mapped.Get(models.FieldAddress),
		Locality:   mapped.Get(models.FieldLocality),
		Region:     mapped.Get(models.FieldRegion),
		Country:    mapped.Get(models.FieldCountry),
		PostalCode: mapped.Get(models.FieldPostalCode),
		Status:     models.ContactStatusActive,
		Origin:     p.Origin,
		Date:       now,
		Birthdate:  parseBirthdate(mapped.Get(models.FieldBirthdate)),
		Tags:       MergeTags(models.ToStringArray(mapped.Get(models.FieldTags)), connector.Tags),
		UserID:     connector.UserID,
	}

	return contact
}

// normalizePhone formats the mapped phone to E.164, keeping the submitted
// value verbatim when it cannot be parsed.
func (p *Processor) normalizePhone(connector *models.FormConnector, phone string) string {
	if phone == "" {
		return ""
	}

	normalized, err := util.NormalizePhone(phone)
	if err != nil {
		p.Log.ForConnector(connector.ID).Debug("keeping unparseable phone verbatim",
			zap.String("phone", phone), logger.Err(err))
		return phone
	}

	return normalized
}

func parseBirthdate(value string) null.Time {
	if value == "" {
		return null.Time{}
	}

	parsed, err := time.Parse(birthdateLayout, value)
	if err != nil {
		return null.Time{}
	}

	return null.TimeFrom(parsed)
}
