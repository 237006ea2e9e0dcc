package facebook

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/ingest"
	"github.com/upcrm/forms-transport/core/logger"
)

const leadgenField = "leadgen"

// Event is the provider-shaped webhook batch payload.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one page-level entry of a webhook batch.
type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// Change is one field change inside an entry.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the leadgen references of a change.
type ChangeValue struct {
	LeadgenID   string `json:"leadgen_id"`
	PageID      string `json:"page_id"`
	FormID      string `json:"form_id"`
	CreatedTime int64  `json:"created_time"`
}

// LeadStore is the persistence contract of the leadgen collector.
type LeadStore interface {
	ActiveFormByFormID(formID string) (models.FacebookForm, error)
	ConnectionByID(id int) (models.FacebookConnection, error)
	CreateLead(lead *models.Lead) error
}

// Archiver stores a copy of an accepted raw payload. Implementations must
// be best effort: a failed archive write never affects lead capture.
type Archiver interface {
	Store(ctx context.Context, key string, payload []byte)
}

// Collector processes leadgen webhook batches. Each change is handled in
// isolation: an unresolvable or failing change is logged and skipped so
// one broken entry cannot drop the rest of the batch.
type Collector struct {
	client   *Client
	store    LeadStore
	contacts *ingest.Processor
	archive  Archiver
	log      logger.Logger
}

// NewCollector returns a leadgen Collector. The archiver may be nil.
func NewCollector(client *Client, store LeadStore, contacts *ingest.Processor, archive Archiver, log logger.Logger) *Collector {
	return &Collector{
		client:   client,
		store:    store,
		contacts: contacts,
		archive:  archive,
		log:      log,
	}
}

// Collect runs every leadgen change of the batch and reports how many
// leads were stored. It never fails: delivery acknowledgment must not
// depend on how many changes could be resolved.
func (c *Collector) Collect(ctx context.Context, event Event) int {
	stored := 0

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			if change.Field != leadgenField {
				continue
			}
			if c.collectChange(ctx, change.Value) {
				stored++
			}
		}
	}

	return stored
}

func (c *Collector) collectChange(ctx context.Context, value ChangeValue) bool {
	log := c.log.With(
		zap.String(logger.LeadIDAttr, value.LeadgenID),
		zap.String(logger.FormIDAttr, value.FormID),
		zap.String(logger.PageIDAttr, value.PageID))

	form, err := c.store.ActiveFormByFormID(value.FormID)
	if err != nil {
		log.Warn("no active form for leadgen change, skipping", logger.Err(err))
		return false
	}

	conn, err := c.store.ConnectionByID(form.ConnectionID)
	if err != nil {
		log.Warn("no connection for registered form, skipping", logger.Err(err))
		return false
	}

	token := conn.PageToken
	if token == "" {
		token = conn.AccessToken
	}

	lead, err := c.client.Lead(ctx, value.LeadgenID, token)
	if err != nil {
		log.Warn("lead retrieval failed, skipping", logger.Err(err))
		return false
	}

	fieldData, err := json.Marshal(lead.FieldData)
	if err != nil {
		log.Warn("cannot encode lead field data, skipping", logger.Err(err))
		return false
	}

	record := models.Lead{
		LeadgenID: lead.ID,
		FieldData: models.RawFields(fieldData),
		FormID:    form.ID,
		UserID:    conn.UserID,
	}
	if err := c.store.CreateLead(&record); err != nil {
		log.Error("cannot store lead", logger.Err(err))
		return false
	}

	log.Info("lead stored", zap.Int("leadRecordId", record.ID))

	if c.archive != nil {
		c.archive.Store(ctx, "leads/"+lead.ID+".json", fieldData)
	}

	c.createContact(&form, conn.UserID, lead, log)

	return true
}

// createContact maps the lead into a contact when the form carries mapping
// rules. Mapping failures only affect the contact, the lead itself is
// already stored.
func (c *Collector) createContact(form *models.FacebookForm, userID int, lead Lead, log logger.Logger) {
	if c.contacts == nil || len(form.Mapping) == 0 {
		return
	}

	connector := models.FormConnector{
		ID:      form.ID,
		UserID:  userID,
		Mapping: form.Mapping,
	}

	contact, err := c.contacts.Process(&connector, lead.FieldMap())
	if err != nil {
		log.Warn("lead stored but contact mapping failed", logger.Err(err))
		return
	}

	log.Info("contact created from lead", zap.Int("contactId", contact.ID))
}
