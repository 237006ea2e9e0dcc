package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration settings data structure.
type Configuration interface {
	GetVersion() string
	GetSentryDSN() string
	GetLogFormat() string
	GetHTTPConfig() HTTPServerConfig
	GetZabbixConfig() ZabbixConfig
	GetDBConfig() DatabaseConfig
	GetHTTPClientConfig() *HTTPClientConfig
	GetFacebookConfig() FacebookConfig
	GetArchiveConfig() ArchiveConfig
	IsDebug() bool
}

// Config struct.
type Config struct {
	HTTPClientConfig *HTTPClientConfig `yaml:"http_client"`
	Facebook         FacebookConfig    `yaml:"facebook"`
	Archive          ArchiveConfig     `yaml:"archive"`
	HTTPServer       HTTPServerConfig  `yaml:"http_server"`
	ZabbixConfig     ZabbixConfig      `yaml:"zabbix"`
	Version          string            `yaml:"version"`
	SentryDSN        string            `yaml:"sentry_dsn"`
	LogFormat        string            `yaml:"log_format"`
	Database         DatabaseConfig    `yaml:"database"`
	Debug            bool              `yaml:"debug"`
}

// FacebookConfig holds the Meta app credentials and webhook settings.
type FacebookConfig struct {
	AppID       string `yaml:"app_id"`
	AppSecret   string `yaml:"app_secret"`
	GraphURL    string `yaml:"graph_url"`
	RedirectURL string `yaml:"redirect_url"`
	VerifyToken string `yaml:"verify_token"`
}

// ArchiveConfig holds S3-compatible storage settings for raw payload archiving.
type ArchiveConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	FolderName      string `yaml:"folder_name"`
	Enabled         bool   `yaml:"enabled"`
}

// DatabaseConfig struct.
type DatabaseConfig struct {
	Connection         interface{} `yaml:"connection"`
	MaxOpenConnections int         `yaml:"max_open_connections"`
	MaxIdleConnections int         `yaml:"max_idle_connections"`
	ConnectionLifetime int         `yaml:"connection_lifetime"`
	Logging            bool        `yaml:"logging"`
}

// HTTPClientConfig struct.
type HTTPClientConfig struct {
	SSLVerification *bool         `yaml:"ssl_verification"`
	MockAddress     string        `yaml:"mock_address"`
	MockedDomains   []string      `yaml:"mocked_domains"`
	Timeout         time.Duration `yaml:"timeout"`
}

// HTTPServerConfig struct.
type HTTPServerConfig struct {
	Host   string `yaml:"host"`
	Listen string `yaml:"listen"`
}

// ZabbixConfig contains information about Zabbix connection.
type ZabbixConfig struct {
	ServerHost   string `yaml:"server_host"`
	Host         string `yaml:"host"`
	ServerPort   int    `yaml:"server_port"`
	MetricPrefix string `yaml:"metric_prefix"`
	Interval     uint64 `yaml:"interval"`
}

// NewConfig reads configuration file and returns config instance
// Usage:
//
//	NewConfig("config.yml")
func NewConfig(path string) *Config {
	return (&Config{}).LoadConfig(path)
}

// LoadConfig read & load configuration file.
func (c *Config) LoadConfig(path string) *Config {
	return c.LoadConfigFromData(c.GetConfigData(path))
}

// LoadConfigFromData loads config from byte sequence.
func (c *Config) LoadConfigFromData(data []byte) *Config {
	if err := yaml.Unmarshal(data, c); err != nil {
		panic(err)
	}

	return c
}

// GetConfigData returns config file data in form of byte sequence.
func (c *Config) GetConfigData(path string) []byte {
	var err error

	path, err = filepath.Abs(path)
	if err != nil {
		panic(err)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	return source
}

// GetSentryDSN sentry connection dsn.
func (c Config) GetSentryDSN() string {
	return c.SentryDSN
}

// GetVersion transport version.
func (c Config) GetVersion() string {
	return c.Version
}

// GetLogFormat returns the logger output format.
func (c Config) GetLogFormat() string {
	return c.LogFormat
}

// IsDebug debug flag.
func (c Config) IsDebug() bool {
	return c.Debug
}

// GetDBConfig database configuration.
func (c Config) GetDBConfig() DatabaseConfig {
	return c.Database
}

// GetHTTPConfig server configuration.
func (c Config) GetHTTPConfig() HTTPServerConfig {
	return c.HTTPServer
}

// GetZabbixConfig returns zabbix configuration.
func (c Config) GetZabbixConfig() ZabbixConfig {
	return c.ZabbixConfig
}

// GetHTTPClientConfig returns http client config.
func (c Config) GetHTTPClientConfig() *HTTPClientConfig {
	return c.HTTPClientConfig
}

// GetFacebookConfig returns the Meta app configuration.
func (c Config) GetFacebookConfig() FacebookConfig {
	return c.Facebook
}

// GetArchiveConfig returns raw payload archive configuration.
func (c Config) GetArchiveConfig() ArchiveConfig {
	return c.Archive
}

// IsSSLVerificationEnabled returns SSL verification flag (default is true).
func (h *HTTPClientConfig) IsSSLVerificationEnabled() bool {
	if h.SSLVerification == nil {
		return true
	}

	return *h.SSLVerification
}
