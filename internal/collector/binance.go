package collector

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ReversalSentinel/internal/model"
)

const (
	binanceRESTURL = "https://api.binance.com"
	binanceWSURL   = "wss://stream.binance.com:9443/ws"
	binanceMaxBars = 1000
)

var binanceIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// BinanceFetcher implements Fetcher using the Binance spot klines API.
type BinanceFetcher struct {
	BaseURL string
	WSURL   string
	Client  *http.Client
	now     func() time.Time
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
func NewBinanceFetcher(baseURL, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = binanceRESTURL
	}
	return &BinanceFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		WSURL:   binanceWSURL,
		Client:  newHTTPClient(proxyURL),
		now:     time.Now,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchBars returns up to limit closed klines, oldest first. A kline that is
// still forming is dropped.
func (f *BinanceFetcher) FetchBars(symbol, interval string, limit int) ([]model.OHLCV, error) {
	if !binanceIntervals[interval] {
		return nil, fmt.Errorf("binance: unsupported interval %q", interval)
	}
	if limit <= 0 || limit > binanceMaxBars {
		limit = binanceMaxBars
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := f.BaseURL + "/api/v3/klines?" + q.Encode()

	resp, err := f.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("binance fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: status %d, msg: %s", resp.StatusCode, gjson.GetBytes(body, "msg").String())
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("binance: invalid JSON payload")
	}

	nowMs := f.now().UnixMilli()
	rows := gjson.ParseBytes(body).Array()
	bars := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		bar, closeTime, err := parseKlineRow(row)
		if err != nil {
			return nil, err
		}
		if closeTime >= nowMs {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKlineRow decodes one positional kline:
// [openTime, open, high, low, close, volume, closeTime, ...]
func parseKlineRow(row gjson.Result) (model.OHLCV, int64, error) {
	if !row.IsArray() || len(row.Array()) < 7 {
		return model.OHLCV{}, 0, fmt.Errorf("binance: malformed kline %s", row.Raw)
	}
	v := row.Array()
	return model.OHLCV{
		Time:   v[0].Int(),
		Open:   v[1].Float(),
		High:   v[2].Float(),
		Low:    v[3].Float(),
		Close:  v[4].Float(),
		Volume: v[5].Float(),
	}, v[6].Int(), nil
}
