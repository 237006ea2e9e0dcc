package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/config"
	"github.com/upcrm/forms-transport/core/logger"
)

const (
	defaultDialerTimeout         = 30 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 100
)

// HTTPClientBuilder builds http client with mocks (if necessary) and timeout.
// Example:
//
//	// Build HTTP client with timeout = 10 sec, without SSL certificates
//	// verification and with mocked graph.facebook.com
//	client, err := NewHTTPClientBuilder().
//		SetTimeout(10).
//		SetMockAddress("api_mock:3004").
//		AddMockedDomain("graph.facebook.com").
//		SetSSLVerification(false).
//		Build()
type HTTPClientBuilder struct {
	logger        logger.Logger
	httpClient    *http.Client
	httpTransport *http.Transport
	dialer        *net.Dialer
	mockAddress   string
	mockHost      string
	mockPort      string
	mockedDomains []string
	timeout       time.Duration
	logging       bool
	built         bool
}

// NewHTTPClientBuilder returns HTTPClientBuilder with default values.
func NewHTTPClientBuilder() *HTTPClientBuilder {
	return &HTTPClientBuilder{
		built:      false,
		httpClient: &http.Client{},
		httpTransport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialerTimeout,
				KeepAlive: defaultDialerTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          defaultMaxIdleConns,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		},
		timeout:       defaultDialerTimeout,
		mockAddress:   "",
		mockedDomains: []string{},
		logging:       false,
	}
}

// WithLogger sets provided logger into HTTPClientBuilder.
func (b *HTTPClientBuilder) WithLogger(logger logger.Logger) *HTTPClientBuilder {
	if logger != nil {
		b.logger = logger
	}

	return b
}

// SetTimeout sets timeout for http client.
func (b *HTTPClientBuilder) SetTimeout(seconds time.Duration) *HTTPClientBuilder {
	seconds *= time.Second
	b.timeout = seconds
	b.httpClient.Timeout = seconds
	return b
}

// SetMockAddress sets mock address.
func (b *HTTPClientBuilder) SetMockAddress(address string) *HTTPClientBuilder {
	b.mockAddress = address
	return b
}

// AddMockedDomain adds new mocked domain.
func (b *HTTPClientBuilder) AddMockedDomain(domain string) *HTTPClientBuilder {
	b.mockedDomains = append(b.mockedDomains, domain)
	return b
}

// SetMockedDomains sets mocked domains from slice.
func (b *HTTPClientBuilder) SetMockedDomains(domains []string) *HTTPClientBuilder {
	b.mockedDomains = domains
	return b
}

// SetSSLVerification enables or disables SSL certificates verification in client.
func (b *HTTPClientBuilder) SetSSLVerification(enabled bool) *HTTPClientBuilder {
	if b.httpTransport.TLSClientConfig == nil {
		b.httpTransport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	b.httpTransport.TLSClientConfig.InsecureSkipVerify = !enabled

	return b
}

// SetLogging enables or disables logging in mocks.
func (b *HTTPClientBuilder) SetLogging(flag bool) *HTTPClientBuilder {
	b.logging = flag
	return b
}

// FromConfig fulfills mock configuration from HTTPClientConfig.
func (b *HTTPClientBuilder) FromConfig(config *config.HTTPClientConfig) *HTTPClientBuilder {
	if config == nil {
		return b
	}

	if config.MockAddress != "" {
		b.SetMockAddress(config.MockAddress)
		b.SetMockedDomains(config.MockedDomains)
	}

	if config.Timeout > 0 {
		b.SetTimeout(config.Timeout)
	}

	b.SetSSLVerification(config.IsSSLVerificationEnabled())

	return b
}

// buildDialer initializes dialer with provided timeout.
func (b *HTTPClientBuilder) buildDialer() *HTTPClientBuilder {
	b.dialer = &net.Dialer{
		Timeout:   b.timeout,
		KeepAlive: b.timeout,
	}

	return b
}

// parseAddress parses address and returns error in case of error (port is necessary).
func (b *HTTPClientBuilder) parseAddress() error {
	if b.mockAddress == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(b.mockAddress)
	if err != nil {
		return fmt.Errorf("cannot split host and port: %w", err)
	}

	b.mockHost = host
	b.mockPort = port
	return nil
}

// buildMocks builds mocks for http client.
func (b *HTTPClientBuilder) buildMocks() error {
	if b.dialer == nil {
		return fmt.Errorf("dialer must be built first")
	}

	if b.mockHost == "" || b.mockPort == "" || len(b.mockedDomains) == 0 {
		return nil
	}

	b.log("mock address has been set", zap.String("address", net.JoinHostPort(b.mockHost, b.mockPort)))

	b.httpTransport.Proxy = nil
	b.httpTransport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return b.dialer.DialContext(ctx, network, addr)
		}

		for _, mock := range b.mockedDomains {
			if mock == host {
				oldAddr := addr

				if b.mockPort == "0" {
					addr = net.JoinHostPort(b.mockHost, port)
				} else {
					addr = net.JoinHostPort(b.mockHost, b.mockPort)
				}

				b.log("mocking request", zap.String("from", oldAddr), zap.String("to", addr))
			}
		}

		return b.dialer.DialContext(ctx, network, addr)
	}

	return nil
}

func (b *HTTPClientBuilder) log(msg string, fields ...zap.Field) {
	if b.logging && b.logger != nil {
		b.logger.Info(msg, fields...)
	}
}

// Build builds the client.
func (b *HTTPClientBuilder) Build() (*http.Client, error) {
	if err := b.buildDialer().parseAddress(); err != nil {
		return nil, err
	}

	if err := b.buildMocks(); err != nil {
		return nil, err
	}

	b.built = true
	b.httpClient.Transport = b.httpTransport

	return b.httpClient, nil
}
