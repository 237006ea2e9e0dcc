package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/h2non/gock"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upcrm/forms-transport/core/config"
	"github.com/upcrm/forms-transport/core/logger"
)

const testGraphURL = "https://graph.facebook.com/v19.0"

type fixedSecretSource struct {
	secret string
}

func (s fixedSecretSource) Generate() (string, error) {
	return s.secret, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Version:   "test",
		LogFormat: "console",
		HTTPServer: config.HTTPServerConfig{
			Host:   "https://forms.example.com",
			Listen: ":8080",
		},
		Facebook: config.FacebookConfig{
			AppID:       "app-id",
			AppSecret:   "app-secret",
			GraphURL:    testGraphURL,
			RedirectURL: "https://forms.example.com/facebook/callback",
			VerifyToken: "verify-me",
		},
	}
}

// newTestEngine builds a prepared engine on top of a sqlmock database and
// a gock-intercepted HTTP client.
func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	db.SingularTable(true)

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)

	e := New(AppInfo{Version: "test"})
	e.Config = testConfig()
	e.SetLogger(logger.NewNil())
	e.DB = db
	e.SetHTTPClient(httpClient)
	e.Secrets = fixedSecretSource{secret: "fixed-secret"}
	e.Prepare()

	return e, mock
}

func serve(e *Engine, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	e.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestEngine_PrepareWithoutConfig(t *testing.T) {
	assert.Panics(t, func() {
		New(AppInfo{}).Prepare()
	})
}

func TestEngine_PrepareTwice(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Panics(t, func() {
		e.Prepare()
	})
}

func TestEngine_RouterBeforePrepare(t *testing.T) {
	assert.Panics(t, func() {
		New(AppInfo{}).Router()
	})
}

func TestEngine_HTTPClientFallback(t *testing.T) {
	e := New(AppInfo{})
	assert.Equal(t, http.DefaultClient, e.HTTPClient())
}

func TestEngine_UseZabbixDisabledWithoutInterval(t *testing.T) {
	e, _ := newTestEngine(t)
	e.UseZabbix(nil)
	assert.Nil(t, e.Zabbix)
}

func TestEngine_MetricsCollectors(t *testing.T) {
	e, _ := newTestEngine(t)

	collectors := e.MetricsCollectors()
	require.Len(t, collectors, 2)
	assert.Contains(t, collectors[0].Collect(), "webhook_form_processed")
	assert.Contains(t, collectors[1].Collect(), "webhook_facebook_processed")
}

func TestEngine_MetricsCollectorsBeforePrepare(t *testing.T) {
	assert.Panics(t, func() {
		New(AppInfo{}).MetricsCollectors()
	})
}

func TestEngine_UseZabbixRegistersCounters(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Config.(*config.Config).ZabbixConfig = config.ZabbixConfig{
		ServerHost:   "zabbix.example.com",
		ServerPort:   10051,
		Host:         "forms.example.com",
		MetricPrefix: "forms_transport",
		Interval:     60,
	}

	e.UseZabbix(e.MetricsCollectors())
	assert.NotNil(t, e.Zabbix)
}

func TestEngine_GetApp(t *testing.T) {
	e, _ := newTestEngine(t)

	ctx := &gin.Context{}
	ctx.Set(AppContextKey, e)

	app, found := GetApp(ctx)
	assert.True(t, found)
	assert.Same(t, e, app)

	_, found = GetApp(&gin.Context{Keys: map[string]interface{}{}})
	assert.False(t, found)
}

func TestEngine_Health(t *testing.T) {
	e, _ := newTestEngine(t)

	resp := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), `"version":"test"`)
}

func TestAppInfo_Release(t *testing.T) {
	assert.Equal(t,
		`1.0 (42, built today, commit "abcdef")`,
		AppInfo{Version: "1.0", Build: "42", BuildDate: "today", Commit: "abcdef"}.Release())
	assert.Contains(t, AppInfo{}.Release(), "<unknown version>")
}
