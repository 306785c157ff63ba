// Package httpclient provides an HTTP client with retry, circuit
// breaker, and TLS support, built on gojek/heimdall. Used for shipping
// audit entries to external collectors.
package httpclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bignyap/tenantstore/logger/api"
	heimdall "github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/gojek/heimdall/v7/hystrix"
)

// Client defines a high-level HTTP client interface with common methods.
type Client interface {
	Get(path string, queryParams map[string]string, response any) error
	Post(path string, data any, response any) error
	Put(path string, data any, response any) error
	Delete(path string) error
	WithOverrideBaseURL(url string) Client
	DoRequest(method, path string, queryParams map[string]string, requestBody any, responseBody any, headers map[string]string) error
}

// ClientConfig defines configuration for retries, backoff, and circuit breaker.
type ClientConfig struct {
	Timeout                time.Duration
	RetryCount             int
	BackoffInitial         time.Duration
	BackoffMax             time.Duration
	CircuitBreakerCommand  string
	CircuitBreakerTimeout  time.Duration
	MaxConcurrentRequests  int
	ErrorPercentThreshold  int
	SleepWindow            int
	RequestVolumeThreshold int
	TLSClientConfig        TLSClientConfig
}

// TLSClientConfig supports TLS and mTLS configurations.
type TLSClientConfig struct {
	SkipTLSVerify bool
	CACertPaths   []string

	// mTLS client authentication, PEM-encoded
	ClientCertPath string
	ClientKeyPath  string
	ClientCertPEM  string
	ClientKeyPEM   string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:                30 * time.Second,
		RetryCount:             3,
		BackoffInitial:         100 * time.Millisecond,
		BackoffMax:             5 * time.Second,
		CircuitBreakerCommand:  "http-client",
		CircuitBreakerTimeout:  10 * time.Second,
		MaxConcurrentRequests:  100,
		ErrorPercentThreshold:  25,
		SleepWindow:            10,
		RequestVolumeThreshold: 10,
	}
}

func (c *ClientConfig) applyDefaults() {
	defaults := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RetryCount == 0 {
		c.RetryCount = defaults.RetryCount
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = defaults.BackoffInitial
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = defaults.BackoffMax
	}
	if c.CircuitBreakerCommand == "" {
		c.CircuitBreakerCommand = defaults.CircuitBreakerCommand
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = defaults.CircuitBreakerTimeout
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = defaults.MaxConcurrentRequests
	}
	if c.ErrorPercentThreshold == 0 {
		c.ErrorPercentThreshold = defaults.ErrorPercentThreshold
	}
	if c.SleepWindow == 0 {
		c.SleepWindow = defaults.SleepWindow
	}
	if c.RequestVolumeThreshold == 0 {
		c.RequestVolumeThreshold = defaults.RequestVolumeThreshold
	}
}

type circuitClient struct {
	baseURL string
	client  *hystrix.Client
}

// NewHystrixClient creates a client with retries, exponential backoff,
// a circuit breaker, and optional TLS/mTLS.
func NewHystrixClient(baseURL string, config ClientConfig, fallbackFn func(error) error) (Client, error) {
	config.applyDefaults()

	transport, err := createCustomTransport(config.TLSClientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS transport: %w", err)
	}

	bo := heimdall.NewExponentialBackoff(config.BackoffInitial, config.BackoffMax, 2.0, config.BackoffMax)
	httpClient := httpclient.NewClient(
		httpclient.WithHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		}),
		httpclient.WithRetryCount(config.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(bo)),
	)

	hystrixClient := hystrix.NewClient(
		hystrix.WithHTTPClient(httpClient),
		hystrix.WithCommandName(config.CircuitBreakerCommand),
		hystrix.WithHystrixTimeout(config.CircuitBreakerTimeout),
		hystrix.WithMaxConcurrentRequests(config.MaxConcurrentRequests),
		hystrix.WithErrorPercentThreshold(config.ErrorPercentThreshold),
		hystrix.WithSleepWindow(config.SleepWindow),
		hystrix.WithRequestVolumeThreshold(config.RequestVolumeThreshold),
		hystrix.WithFallbackFunc(fallbackFn),
	)

	return &circuitClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  hystrixClient,
	}, nil
}

func (c *circuitClient) Get(path string, queryParams map[string]string, response any) error {
	return c.DoRequest(http.MethodGet, path, queryParams, nil, response, nil)
}

func (c *circuitClient) Post(path string, data any, response any) error {
	return c.DoRequest(http.MethodPost, path, nil, data, response, nil)
}

func (c *circuitClient) Put(path string, data any, response any) error {
	return c.DoRequest(http.MethodPut, path, nil, data, response, nil)
}

func (c *circuitClient) Delete(path string) error {
	return c.DoRequest(http.MethodDelete, path, nil, nil, nil, nil)
}

func (c *circuitClient) WithOverrideBaseURL(baseURL string) Client {
	return &circuitClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  c.client,
	}
}

// DoRequest is the core unified request method.
func (c *circuitClient) DoRequest(method, path string, queryParams map[string]string, requestBody any, responseBody any, headers map[string]string) error {
	var body io.Reader
	switch v := requestBody.(type) {
	case nil:
	case io.Reader:
		body = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	finalURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		finalURL = c.buildURL(path)
	}
	finalURL = injectQueryParams(finalURL, queryParams)

	req, err := http.NewRequest(method, finalURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	propagateTraceID(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(b))
	}

	if responseBody != nil {
		return json.NewDecoder(resp.Body).Decode(responseBody)
	}
	return nil
}

func (c *circuitClient) buildURL(paths ...string) string {
	base := strings.TrimRight(c.baseURL, "/")
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		if trimmed := strings.Trim(p, "/"); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return base + "/" + strings.Join(parts, "/")
}

func injectQueryParams(rawURL string, queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range queryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// propagateTraceID copies the trace id from the request context to the
// X-Trace-ID header for cross-service correlation.
func propagateTraceID(req *http.Request) {
	if req == nil {
		return
	}
	if traceID := api.GetTraceIDFromContext(req.Context()); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
}

func createCustomTransport(cfg TLSClientConfig) (*http.Transport, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}

	if len(cfg.CACertPaths) > 0 {
		certPool := x509.NewCertPool()
		for _, path := range cfg.CACertPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read CA cert: %w", err)
			}
			if !certPool.AppendCertsFromPEM(data) {
				return nil, fmt.Errorf("append CA cert failed: %s", path)
			}
		}
		tlsConfig.RootCAs = certPool
	}

	if cert, ok, err := loadClientCertificate(cfg); err != nil {
		return nil, err
	} else if ok {
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return &http.Transport{TLSClientConfig: tlsConfig}, nil
}

func loadClientCertificate(cfg TLSClientConfig) (tls.Certificate, bool, error) {
	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("load PEM certs: %w", err)
		}
		return cert, true, nil
	}

	if cfg.ClientCertPEM != "" && cfg.ClientKeyPEM != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.ClientCertPEM), []byte(cfg.ClientKeyPEM))
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("parse in-memory PEM: %w", err)
		}
		return cert, true, nil
	}

	return tls.Certificate{}, false, nil
}
