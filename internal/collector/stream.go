package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"ReversalSentinel/internal/model"
)

const (
	streamReadTimeout = 60 * time.Second
	streamPingEvery   = 20 * time.Second
	streamMaxBackoff  = 30 * time.Second
	// streamQueueSize is how many closed bars may wait while fn is busy.
	streamQueueSize = 4
)

// ClosedBarFunc receives each kline once Binance marks it closed.
type ClosedBarFunc func(bar model.OHLCV)

// StreamClosedBars subscribes to <symbol>@kline_<interval> and calls fn for each
// closed kline. It reconnects with exponential backoff until ctx is cancelled.
// fn runs on its own goroutine, one bar at a time, so a slow fn never stalls
// the read loop; bars arriving while the queue is full are dropped.
func (f *BinanceFetcher) StreamClosedBars(ctx context.Context, symbol, interval string, log zerolog.Logger, fn ClosedBarFunc) {
	stream := fmt.Sprintf("%s/%s@kline_%s", strings.TrimRight(f.WSURL, "/"), strings.ToLower(symbol), interval)
	deliver, stop := dispatch(fn, streamQueueSize, log.With().Str("stream", stream).Logger())
	defer stop()

	backoff := 1 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		d := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := d.DialContext(ctx, stream, nil)
		if err != nil {
			log.Warn().Err(err).Str("stream", stream).Msg("kline stream dial failed")
			if !sleepContext(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, streamMaxBackoff)
			continue
		}

		log.Info().Str("stream", stream).Msg("kline stream connected")
		backoff = 1 * time.Second

		err = readKlines(ctx, conn, deliver)
		_ = conn.Close()
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("kline stream read loop exit")
		}

		if !sleepContext(ctx, backoff) {
			return
		}
		backoff = minDuration(backoff*2, streamMaxBackoff)
	}
}

func readKlines(ctx context.Context, conn *websocket.Conn, fn ClosedBarFunc) error {
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return nil
	})

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(streamPingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second))
			}
		}
	}()
	defer close(done)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		if bar, ok := parseClosedKline(b); ok {
			fn(bar)
		}
	}
}

// dispatch runs fn on a single worker goroutine fed by a queue of size. The
// returned deliver never blocks. stop closes the queue; the worker finishes the
// bars already queued.
func dispatch(fn ClosedBarFunc, size int, log zerolog.Logger) (deliver ClosedBarFunc, stop func()) {
	queue := make(chan model.OHLCV, size)
	go func() {
		for bar := range queue {
			fn(bar)
		}
	}()
	deliver = func(bar model.OHLCV) {
		select {
		case queue <- bar:
		default:
			log.Warn().Int64("bar", bar.Time).Msg("handler busy, closed bar dropped")
		}
	}
	return deliver, func() { close(queue) }
}

// parseClosedKline extracts the bar from a kline event when k.x is true.
func parseClosedKline(b []byte) (model.OHLCV, bool) {
	k := gjson.GetBytes(b, "k")
	if !k.Exists() || !k.Get("x").Bool() {
		return model.OHLCV{}, false
	}
	return model.OHLCV{
		Time:   k.Get("t").Int(),
		Open:   k.Get("o").Float(),
		High:   k.Get("h").Float(),
		Low:    k.Get("l").Float(),
		Close:  k.Get("c").Float(),
		Volume: k.Get("v").Float(),
	}, true
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
