package core

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blacked/go-zabbix"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	metrics "github.com/retailcrm/zabbix-metrics-collector"

	"github.com/upcrm/forms-transport/core/archive"
	"github.com/upcrm/forms-transport/core/config"
	"github.com/upcrm/forms-transport/core/db"
	"github.com/upcrm/forms-transport/core/db/models"
	"github.com/upcrm/forms-transport/core/facebook"
	"github.com/upcrm/forms-transport/core/ingest"
	"github.com/upcrm/forms-transport/core/logger"
	"github.com/upcrm/forms-transport/core/middleware"
	coremetrics "github.com/upcrm/forms-transport/core/metrics"
	"github.com/upcrm/forms-transport/core/util/httputil"
)

const (
	DefaultHTTPClientTimeout time.Duration = 30
	AppContextKey                          = "app"
)

var boolTrue = true

// DefaultHTTPClientConfig is used when the configuration carries no HTTP
// client section.
var DefaultHTTPClientConfig = &config.HTTPClientConfig{
	Timeout:         DefaultHTTPClientTimeout,
	SSLVerification: &boolTrue,
}

// AppInfo contains information about app version.
type AppInfo struct {
	Version   string
	Commit    string
	Build     string
	BuildDate string
}

// Release information for Sentry.
func (a AppInfo) Release() string {
	if a.Version == "" {
		a.Version = "<unknown version>"
	}
	if a.Build == "" {
		a.Build = "<unknown build>"
	}
	if a.BuildDate == "" {
		a.BuildDate = "<unknown build date>"
	}
	if a.Commit == "" {
		a.Commit = "<no commit info>"
	}
	return fmt.Sprintf("%s (%s, built %s, commit \"%s\")", a.Version, a.Build, a.BuildDate, a.Commit)
}

// Engine wires configuration, storage, the graph API client and the HTTP
// surface together. Fields left populated before Prepare (logger, DB,
// HTTP client) are kept, which lets tests substitute them.
type Engine struct {
	logger      logger.Logger
	AppInfo     AppInfo
	Config      config.Configuration
	Zabbix      metrics.Transport
	ginEngine   *gin.Engine
	httpClient  *http.Client
	Secrets     ingest.SecretSource
	Connectors  db.ConnectorStore
	Contacts    db.ContactStore
	Facebook    db.FacebookStore
	processor   *ingest.Processor
	fbManager   *facebook.Manager
	fbCollector *facebook.Collector
	archiver    *archive.Uploader
	formCounter *coremetrics.WebhookCounter
	leadCounter *coremetrics.WebhookCounter
	db.ORM
	Sentry
	mutex    sync.RWMutex
	prepared bool
}

// New Engine instance. Configuration must be assigned before Prepare.
func New(appInfo AppInfo) *Engine {
	return &Engine{
		AppInfo: appInfo,
		ORM:     db.ORM{},
		Sentry:  Sentry{},
	}
}

// Prepare engine for start.
func (e *Engine) Prepare() *Engine {
	if e.prepared {
		panic("engine already initialized")
	}
	if e.Config == nil {
		panic("engine.Config must be loaded before initializing")
	}

	if e.DefaultError == "" {
		e.DefaultError = "something went wrong"
	}

	logFormat := "json"
	if format := e.Config.GetLogFormat(); format != "" {
		logFormat = format
	}
	e.SetLogger(logger.NewDefault(logFormat, e.Config.IsDebug()))

	if e.DB == nil {
		e.CreateDB(e.Config.GetDBConfig())
	}
	if e.httpClient == nil {
		e.BuildHTTPClient()
	}

	e.Sentry.Logger = e.Logger()
	e.buildSentryConfig()
	e.InitSentrySDK()
	e.initComponents()
	e.prepared = true

	return e
}

// initComponents builds the stores and domain services on top of the
// configured DB and HTTP client.
func (e *Engine) initComponents() {
	initValidator()
	models.SetLogger(e.Logger())

	if e.Secrets == nil {
		e.Secrets = ingest.NewSecretSource()
	}

	e.Connectors = db.ConnectorStore{DB: e.DB}
	e.Contacts = db.ContactStore{DB: e.DB}
	e.Facebook = db.FacebookStore{DB: e.DB}

	e.processor = ingest.NewProcessor(e.Contacts, e.Logger())

	fbConfig := e.Config.GetFacebookConfig()
	graphClient := facebook.NewClient(e.HTTPClient(), fbConfig.GraphURL, fbConfig.AppID, fbConfig.AppSecret)
	e.fbManager = facebook.NewManager(graphClient, e.Facebook, e.Logger(), fbConfig.RedirectURL)

	uploader, err := archive.NewUploader(e.Logger(), e.Config.GetArchiveConfig())
	if err != nil {
		panic(err)
	}
	e.archiver = uploader

	leadProcessor := ingest.NewProcessor(e.Contacts, e.Logger())
	leadProcessor.Origin = models.ContactOriginFacebook
	e.fbCollector = facebook.NewCollector(graphClient, e.Facebook, leadProcessor, e.archiver, e.Logger())

	e.formCounter = coremetrics.NewWebhookCounter("webhook_form")
	e.leadCounter = coremetrics.NewWebhookCounter("webhook_facebook")
}

func (e *Engine) initGin() {
	if !e.Config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(AppContextKey, e)
	})
	r.Use(e.SentryMiddlewares()...)
	r.Use(middleware.InjectSentry(&e.Sentry))
	r.Use(logger.GinMiddleware(e.Logger()))

	e.registerRoutes(r)
	e.ginEngine = r
}

func (e *Engine) registerRoutes(r *gin.Engine) {
	r.GET("/health", e.handleHealth)

	r.POST("/webhook/form/:id", e.handleFormWebhook)

	r.GET("/webhook/facebook", e.handleFacebookVerification)
	r.POST("/webhook/facebook", e.handleFacebookLeadgen)
	r.GET("/facebook/callback", e.handleFacebookCallback)
	r.POST("/facebook/pages/select", e.handleFacebookPageSelect)
	r.POST("/facebook/forms", e.handleFacebookFormRegister)

	r.POST("/connectors", e.handleConnectorCreate)
	r.PATCH("/connectors/:id", e.handleConnectorUpdate)
	r.POST("/connectors/:id/secret", e.handleConnectorSecretRotation)
}

// UseZabbix starts pushing the provided collectors to the configured
// Zabbix server. A zero interval disables the transport entirely.
func (e *Engine) UseZabbix(collectors []metrics.Collector) *Engine {
	if e.Config == nil || e.Config.GetZabbixConfig().Interval == 0 {
		return e
	}
	if e.Zabbix != nil {
		for _, col := range collectors {
			e.Zabbix.WithCollector(col)
		}
		return e
	}
	cfg := e.Config.GetZabbixConfig()
	sender := zabbix.NewSender(cfg.ServerHost, cfg.ServerPort)
	e.Zabbix = metrics.NewZabbix(collectors, sender, cfg.Host, cfg.Interval, logger.ZabbixCollectorAdapter(e.Logger()))
	return e
}

// MetricsCollectors returns the webhook throughput counters in the form
// the Zabbix transport accepts. Prepare the engine first.
func (e *Engine) MetricsCollectors() []metrics.Collector {
	if !e.prepared {
		panic("prepare engine first")
	}

	return []metrics.Collector{e.formCounter, e.leadCounter}
}

// Router will return current gin.Engine or panic if engine is not prepared.
func (e *Engine) Router() *gin.Engine {
	if !e.prepared {
		panic("prepare engine first")
	}
	if e.ginEngine == nil {
		e.initGin()
	}

	return e.ginEngine
}

// ConfigureRouter will call provided callback with current gin.Engine.
func (e *Engine) ConfigureRouter(callback func(*gin.Engine)) *Engine {
	callback(e.Router())
	return e
}

// Run the server loop.
func (e *Engine) Run() error {
	if e.Zabbix != nil {
		go e.Zabbix.Run()
	}
	return e.Router().Run(e.Config.GetHTTPConfig().Listen)
}

// Logger returns current logger.
func (e *Engine) Logger() logger.Logger {
	return e.logger
}

// SetLogger sets provided logger instance to engine. A logger assigned
// before Prepare is not overwritten.
func (e *Engine) SetLogger(l logger.Logger) *Engine {
	if l == nil {
		return e
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.prepared && e.logger != nil {
		return e
	}
	e.logger = l
	return e
}

// BuildHTTPClient builds HTTP client with provided configuration.
func (e *Engine) BuildHTTPClient() *Engine {
	client, err := httputil.NewHTTPClientBuilder().
		WithLogger(e.Logger()).
		SetLogging(e.Config.IsDebug()).
		FromConfig(e.GetHTTPClientConfig()).
		Build()

	if err != nil {
		panic(err)
	}

	e.httpClient = client
	return e
}

// GetHTTPClientConfig returns configuration for HTTP client.
func (e *Engine) GetHTTPClientConfig() *config.HTTPClientConfig {
	if e.Config.GetHTTPClientConfig() != nil {
		return e.Config.GetHTTPClientConfig()
	}

	return DefaultHTTPClientConfig
}

// SetHTTPClient sets HTTP client to engine.
func (e *Engine) SetHTTPClient(client *http.Client) *Engine {
	if client != nil {
		e.httpClient = client
	}

	return e
}

// HTTPClient returns inner http client or default http client.
func (e *Engine) HTTPClient() *http.Client {
	if e.httpClient == nil {
		return http.DefaultClient
	}

	return e.httpClient
}

// buildSentryConfig from app configuration.
func (e *Engine) buildSentryConfig() {
	if e.AppInfo.Version == "" {
		e.AppInfo.Version = e.Config.GetVersion()
	}
	e.SentryConfig = sentry.ClientOptions{
		Dsn:              e.Config.GetSentryDSN(),
		ServerName:       e.Config.GetHTTPConfig().Host,
		Release:          e.AppInfo.Release(),
		AttachStacktrace: true,
		Debug:            e.Config.IsDebug(),
	}
}

// GetApp extracts the engine from a request context.
func GetApp(c *gin.Context) (app *Engine, exists bool) {
	item, exists := c.Get(AppContextKey)
	if !exists {
		return nil, false
	}
	converted, ok := item.(*Engine)
	if !ok {
		return nil, false
	}
	return converted, true
}

func MustGetApp(c *gin.Context) *Engine {
	return c.MustGet(AppContextKey).(*Engine)
}
