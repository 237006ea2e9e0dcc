package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upcrm/forms-transport/core/db/models"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	db.SingularTable(true)

	return db, mock
}

func TestConnectorStore_ByID(t *testing.T) {
	db, mock := newTestDB(t)
	store := ConnectorStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "formulario"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "secret", "tags", "mapping", "state"}).
			AddRow(1, "Landing", "s3cret", `["Web"]`, `[{"externalField":"full_name","canonicalField":"nombre"}]`, "activated"))

	connector, err := store.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", connector.Secret)
	assert.Equal(t, models.StringArray{"Web"}, connector.Tags)
	require.Len(t, connector.Mapping, 1)
	assert.Equal(t, models.FieldName, connector.Mapping[0].TargetField)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectorStore_ByID_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	store := ConnectorStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "formulario"`).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.ByID(404)
	assert.True(t, gorm.IsRecordNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactStore_Create(t *testing.T) {
	db, mock := newTestDB(t)
	store := ContactStore{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "contacto"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	contact := &models.Contact{Name: "Ana", Status: models.ContactStatusActive, UserID: 1}
	require.NoError(t, store.Create(contact))
	assert.Equal(t, 7, contact.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookStore_SaveConnection_CreatesWhenMissing(t *testing.T) {
	db, mock := newTestDB(t)
	store := FacebookStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "facebook_connection"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	conn := &models.FacebookConnection{UserID: 1, FacebookUserID: "fb-1"}
	require.NoError(t, store.SaveConnection(conn))
	assert.Equal(t, 3, conn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookStore_SaveConnection_ReplacesExisting(t *testing.T) {
	db, mock := newTestDB(t)
	store := FacebookStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 1))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "facebook_connection"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conn := &models.FacebookConnection{UserID: 1, FacebookUserID: "fb-1", AccessToken: "fresh"}
	require.NoError(t, store.SaveConnection(conn))
	assert.Equal(t, 3, conn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookStore_CreateForm_ChecksExistence(t *testing.T) {
	db, mock := newTestDB(t)
	store := FacebookStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs(3, "form-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "connection_id", "form_id"}).AddRow(5, 3, "form-1"))

	err := store.CreateForm(&models.FacebookForm{ConnectionID: 3, FormID: "form-1"})
	assert.ErrorIs(t, err, ErrFormExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookStore_ActiveFormByFormID_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	store := FacebookStore{DB: db}

	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs("unknown", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.ActiveFormByFormID("unknown")
	assert.True(t, gorm.IsRecordNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
