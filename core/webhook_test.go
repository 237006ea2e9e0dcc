package core

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const connectorRowsQuery = `SELECT \* FROM "formulario"`

func connectorColumns() []string {
	return []string{"id", "name", "secret", "tags", "mapping", "state", "user_id"}
}

func activeConnectorRow() *sqlmock.Rows {
	return sqlmock.NewRows(connectorColumns()).
		AddRow(1, "Landing", "s3cret", `["Web"]`,
			`[{"externalField":"full_name","canonicalField":"nombre"},`+
				`{"externalField":"tags","canonicalField":"tags"}]`,
			"activated", 3)
}

func formWebhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/form/1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestFormWebhook_CreatesContact(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "contacto"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	resp := serve(e, formWebhookRequest(
		`{"full_name":"  Ana  ","tags":["VIP"],"webhook_secret":"s3cret"}`))

	assert.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Success   bool `json:"success"`
		ContactID int  `json:"contactId"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 7, body.ContactID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_SecretMismatch(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())

	resp := serve(e, formWebhookRequest(`{"full_name":"Ana","webhook_secret":"wrong"}`))

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "forbidden")
	assert.NoError(t, mock.ExpectationsWereMet(), "no contact may be written on secret mismatch")
}

func TestFormWebhook_MissingSecret(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())

	resp := serve(e, formWebhookRequest(`{"full_name":"Ana"}`))

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_UnknownConnector(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(404).
		WillReturnRows(sqlmock.NewRows(connectorColumns()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/form/404",
		strings.NewReader(`{"full_name":"Ana","webhook_secret":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_DeactivatedConnector(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(connectorColumns()).
			AddRow(1, "Landing", "s3cret", `[]`, `[]`, "deactivated", 3))

	resp := serve(e, formWebhookRequest(`{"full_name":"Ana","webhook_secret":"s3cret"}`))

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_InvalidJSON(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())

	resp := serve(e, formWebhookRequest(`{"full_name":`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "not valid JSON")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_UnsupportedContentType(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())

	req := httptest.NewRequest(http.MethodPost, "/webhook/form/1", strings.NewReader("<lead/>"))
	req.Header.Set("Content-Type", "text/xml")
	resp := serve(e, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unsupported content type")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_NameRequired(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())

	resp := serve(e, formWebhookRequest(`{"full_name":"   ","webhook_secret":"s3cret"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "name is required")
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing may be written when the name is missing")
}

func TestFormWebhook_UniqueViolation(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "contacto"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	resp := serve(e, formWebhookRequest(`{"full_name":"Ana","webhook_secret":"s3cret"}`))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormWebhook_FormEncodedBody(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(connectorRowsQuery).WithArgs(1).WillReturnRows(activeConnectorRow())
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "contacto"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/webhook/form/1",
		strings.NewReader("full_name=Luis&webhook_secret=s3cret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := serve(e, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"contactId":8`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
