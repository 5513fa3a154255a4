// Package http builds configured *http.Client instances shared by every
// downloader, so timeout and transport tuning lives in one place.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientConfig controls how NewClient builds its transport.
type ClientConfig struct {
	Timeout                 time.Duration
	MaxRetries              int
	DisableSSLVerification  bool
	MaxIdleConns            int
	IdleConnTimeout         time.Duration
	TLSHandshakeTimeout     time.Duration
	ResponseHeaderTimeout   time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:                30 * time.Second,
		MaxRetries:             3,
		DisableSSLVerification: false,
		MaxIdleConns:           10,
		IdleConnTimeout:        90 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
	}
}

// NewClient builds an *http.Client from config. MaxRetries is carried on
// the config for callers that wrap the client with their own retry
// policy (the downloaders apply retries at the resolver level, not here).
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

func NewClientWithTimeout(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	return NewClient(config)
}

func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}

// HTTPSResolverClientConfig tunes the client used by the https LinkResolver:
// a short fixed timeout matching the resolver's original single-attempt
// download budget.
func HTTPSResolverClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 5 * time.Second
	config.ResponseHeaderTimeout = 5 * time.Second
	return config
}

// IPFSResolverClientConfig tunes the client used by the ipfs LinkResolver:
// gateway fetches can be slower than a direct https fetch, so this allows
// more time before giving up.
func IPFSResolverClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 20 * time.Second
	config.ResponseHeaderTimeout = 20 * time.Second
	return config
}
