// Package rates fetches crypto fiat quotes from the public Bitkub API for
// the panel's rates screen.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	logx "taskbot/pkg/logx"
)

const (
	tickerURL     = "https://api.bitkub.com/api/v3/market/ticker"
	retryAttempts = 3
	retryBackoff  = 1500 * time.Millisecond
)

// Ticker is one symbol entry of the v3 market ticker response.
type Ticker struct {
	Symbol        string  `json:"symbol"`
	Last          float64 `json:"last"`
	PercentChange float64 `json:"percent_change"`
	High24Hr      float64 `json:"high_24_hr"`
	Low24Hr       float64 `json:"low_24_hr"`
}

type Client struct {
	http *http.Client
	url  string
	log  logx.Logger
}

func New(log logx.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 8 * time.Second},
		url:  tickerURL,
		log:  log,
	}
}

// Fetch returns the ticker for one symbol, e.g. "USDT_THB". Network errors
// are retried with exponential backoff; a missing symbol is an error without
// retries.
func (c *Client) Fetch(ctx context.Context, symbol string) (Ticker, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff * (1 << (attempt - 1))
			c.log.Warn("ticker fetch retry",
				logx.Int("attempt", attempt+1), logx.Duration("wait", wait), logx.Err(lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Ticker{}, ctx.Err()
			}
		}

		t, err := c.fetchOnce(ctx, symbol)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return Ticker{}, fmt.Errorf("bitkub ticker: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, symbol string) (Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Ticker{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Ticker{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Ticker{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var items []Ticker
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Ticker{}, err
	}
	for _, it := range items {
		if it.Symbol == symbol {
			return it, nil
		}
	}
	return Ticker{}, fmt.Errorf("symbol %q not in ticker response", symbol)
}

// FormatUSDTTHB renders the rates screen body. Fetch failures degrade to a
// "try later" line instead of an error.
func (c *Client) FormatUSDTTHB(ctx context.Context) string {
	t, err := c.Fetch(ctx, "USDT_THB")
	if err != nil {
		c.log.Warn("usdt/thb fetch failed", logx.Err(err))
		return "💱 USDT/THB\n⚠️ Не удалось получить данные. Попробуй позже."
	}

	p16 := t.Last * (1 - 0.016)
	p20 := t.Last * (1 - 0.02)
	p50 := t.Last * (1 - 0.05)

	return fmt.Sprintf(
		"💱 USDT / THB  (Bitkub)\n\nКурс:   %.2f ฿\n\n-1.6%%   %.2f ฿\n-2%%     %.2f ฿\n-5%%     %.2f ฿",
		t.Last, p16, p20, p50)
}
