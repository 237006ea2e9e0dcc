package core

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"

	"github.com/upcrm/forms-transport/core/testutil"
)

func TestFacebookVerification_EchoesChallenge(t *testing.T) {
	e, _ := newTestEngine(t)

	resp := serve(e, httptest.NewRequest(http.MethodGet,
		"/webhook/facebook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "12345", resp.Body.String())
}

func TestFacebookVerification_WrongToken(t *testing.T) {
	e, _ := newTestEngine(t)

	resp := serve(e, httptest.NewRequest(http.MethodGet,
		"/webhook/facebook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestFacebookVerification_WrongMode(t *testing.T) {
	e, _ := newTestEngine(t)

	resp := serve(e, httptest.NewRequest(http.MethodGet,
		"/webhook/facebook?hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func leadgenDelivery(formID string) string {
	return `{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"time": 1709294400,
			"changes": [{
				"field": "leadgen",
				"value": {"leadgen_id": "lead-42", "page_id": "page-1", "form_id": "` + formID + `"}
			}]
		}]
	}`
}

func facebookFormColumns() []string {
	return []string{"id", "form_id", "page_id", "mapping", "active", "connection_id"}
}

func facebookConnectionColumns() []string {
	return []string{"id", "user_id", "access_token", "pages", "page_id", "page_token"}
}

func TestFacebookLeadgen_StoresLead(t *testing.T) {
	defer gock.Off()
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs("form-1", true).
		WillReturnRows(sqlmock.NewRows(facebookFormColumns()).
			AddRow(5, "form-1", "page-1", `[]`, true, 1))
	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()).
			AddRow(1, 3, "user-token", `[]`, "page-1", "page-token"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "lead"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	gock.New(testGraphURL).
		Get("/lead-42").
		MatchParam("access_token", "page-token").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"id":           "lead-42",
			"created_time": "2024-03-01T12:00:00+0000",
			"field_data": []map[string]interface{}{
				{"name": "full_name", "values": []string{"Luis"}},
			},
		})

	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook",
		strings.NewReader(leadgenDelivery("form-1")))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), `"stored":1`)
	assert.NoError(t, mock.ExpectationsWereMet())
	testutil.AssertNoUnmatchedRequests(t)
}

func TestFacebookLeadgen_UnknownFormStillAcknowledged(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs("form-unknown", true).
		WillReturnRows(sqlmock.NewRows(facebookFormColumns()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook",
		strings.NewReader(leadgenDelivery("form-unknown")))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"stored":0`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookLeadgen_UndecodableBodyStillAcknowledged(t *testing.T) {
	e, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook",
		strings.NewReader("not json at all"))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":true`)
}

func TestFacebookCallback_ConnectsUser(t *testing.T) {
	defer gock.Off()
	e, mock := newTestEngine(t)

	gock.New(testGraphURL).
		Get("/oauth/access_token").
		MatchParam("code", "auth-code").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{"access_token": "user-token", "expires_in": 3600})
	gock.New(testGraphURL).
		Get("/me").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{"id": "fb-1", "name": "Ana Admin"})
	gock.New(testGraphURL).
		Get("/me/accounts").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "page-1", "name": "Shop", "access_token": "page-token"},
			},
		})

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "facebook_connection"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	resp := serve(e, httptest.NewRequest(http.MethodGet,
		"/facebook/callback?code=auth-code&state=3", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"facebookUserId":"fb-1"`)
	assert.Contains(t, resp.Body.String(), `"page-1"`)
	assert.NotContains(t, resp.Body.String(), "page-token")
	assert.NoError(t, mock.ExpectationsWereMet())
	testutil.AssertNoUnmatchedRequests(t)
}

func TestFacebookCallback_MissingParams(t *testing.T) {
	e, _ := newTestEngine(t)

	resp := serve(e, httptest.NewRequest(http.MethodGet, "/facebook/callback?code=x", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = serve(e, httptest.NewRequest(http.MethodGet, "/facebook/callback?state=3", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFacebookCallback_ProviderErrorSurfaced(t *testing.T) {
	defer gock.Off()
	e, _ := newTestEngine(t)

	gock.New(testGraphURL).
		Get("/oauth/access_token").
		Reply(http.StatusBadRequest).
		JSON(map[string]interface{}{
			"error": map[string]interface{}{"message": "expired code", "code": 100},
		})

	resp := serve(e, httptest.NewRequest(http.MethodGet,
		"/facebook/callback?code=expired&state=3", nil))

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "expired code")
}

func TestFacebookPageSelect(t *testing.T) {
	defer gock.Off()
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()).
			AddRow(1, 3, "user-token",
				`[{"id":"page-1","name":"Shop","accessToken":"page-token"}]`, "", ""))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "facebook_connection"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gock.New(testGraphURL).
		Post("/page-1/subscribed_apps").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{"success": true})

	req := httptest.NewRequest(http.MethodPost, "/facebook/pages/select",
		strings.NewReader(`{"userId":3,"pageId":"page-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"pageId":"page-1"`)
	assert.NotContains(t, resp.Body.String(), "page-token")
	assert.NoError(t, mock.ExpectationsWereMet())
	testutil.AssertNoUnmatchedRequests(t)
}

func TestFacebookPageSelect_UnknownPage(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()).
			AddRow(1, 3, "user-token", `[]`, "", ""))

	req := httptest.NewRequest(http.MethodPost, "/facebook/pages/select",
		strings.NewReader(`{"userId":3,"pageId":"page-9"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookFormRegister(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()).
			AddRow(1, 3, "user-token", `[]`, "page-1", "page-token"))
	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs(1, "form-1").
		WillReturnRows(sqlmock.NewRows(facebookFormColumns()))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "facebook_form"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/facebook/forms",
		strings.NewReader(`{
			"connectionId": 1,
			"formId": "form-1",
			"pageId": "page-1",
			"mapping": [{"externalField": "full_name", "canonicalField": "nombre"}]
		}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"formId":"form-1"`)
	assert.Contains(t, resp.Body.String(), `"active":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookFormRegister_AlreadyRegistered(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()).
			AddRow(1, 3, "user-token", `[]`, "page-1", "page-token"))
	mock.ExpectQuery(`SELECT \* FROM "facebook_form"`).
		WithArgs(1, "form-1").
		WillReturnRows(sqlmock.NewRows(facebookFormColumns()).
			AddRow(5, "form-1", "page-1", `[]`, true, 1))

	req := httptest.NewRequest(http.MethodPost, "/facebook/forms",
		strings.NewReader(`{"connectionId":1,"formId":"form-1","pageId":"page-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookFormRegister_UnknownConnection(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT \* FROM "facebook_connection"`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(facebookConnectionColumns()))

	req := httptest.NewRequest(http.MethodPost, "/facebook/forms",
		strings.NewReader(`{"connectionId":9,"formId":"form-1","pageId":"page-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacebookFormRegister_DuplicateCanonicalTarget(t *testing.T) {
	e, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/facebook/forms",
		strings.NewReader(`{
			"connectionId": 1,
			"formId": "form-1",
			"pageId": "page-1",
			"mapping": [
				{"externalField": "a", "canonicalField": "email"},
				{"externalField": "b", "canonicalField": "email"}
			]
		}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "mapped more than once")
}

func TestFacebookPageSelect_InvalidPayload(t *testing.T) {
	e, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/facebook/pages/select",
		strings.NewReader(`{"userId":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(e, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
