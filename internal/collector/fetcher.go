package collector

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ReversalSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchBars(symbol, interval string, limit int) ([]model.OHLCV, error)
	Name() string
}

// Options configures NewFetcher.
type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	WSURL    string
	Proxy    string
}

// NewFetcher builds the fetcher for the configured provider.
func NewFetcher(opts Options) (Fetcher, error) {
	switch opts.Provider {
	case "", "binance":
		f := NewBinanceFetcher(opts.BaseURL, opts.Proxy)
		if opts.WSURL != "" {
			f.WSURL = opts.WSURL
		}
		return f, nil
	case "yahoo":
		f := NewYahooFetcher(opts.Proxy)
		if opts.BaseURL != "" {
			f.BaseURL = opts.BaseURL
		}
		return f, nil
	case "vstrader":
		return NewVsTraderFetcher(opts.BaseURL, opts.APIKey, opts.Proxy), nil
	case "mock":
		return &MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", opts.Provider)
	}
}

// newHTTPClient returns a client with optional proxy support.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
