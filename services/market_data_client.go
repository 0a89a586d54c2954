// services/market_data_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"prediction-bet-system/utils"
)

// RetryPolicy is injected into outbound collaborators instead of hand-rolled
// retry loops at each call site.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}

// TokenStat is the third-party provider's view of one token.
type TokenStat struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Chain          string  `json:"chain"`
	PriceUSD       float64 `json:"price_usd"`
	Change24h      float64 `json:"change_24h"`
	Volume24h      float64 `json:"volume_24h"`
	MarketCap      float64 `json:"market_cap"`
	SentimentScore float64 `json:"sentiment"`
}

type MarketDataClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryPolicy
}

func NewMarketDataClient() *MarketDataClient {
	return &MarketDataClient{
		BaseURL:    os.Getenv("MARKET_DATA_URL"),
		HTTPClient: utils.HTTPClient,
		Retry:      DefaultRetryPolicy,
	}
}

// FetchTokenStats pulls the current stats for all tracked tokens, retrying
// per the injected policy with linear backoff.
func (c *MarketDataClient) FetchTokenStats(ctx context.Context) ([]TokenStat, error) {
	var lastErr error
	for attempt := 1; attempt <= c.Retry.MaxAttempts; attempt++ {
		stats, err := c.fetchOnce(ctx)
		if err == nil {
			return stats, nil
		}
		lastErr = err

		if attempt < c.Retry.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.Retry.Backoff):
			}
		}
	}
	return nil, fmt.Errorf("market data fetch failed after %d attempts: %w", c.Retry.MaxAttempts, lastErr)
}

func (c *MarketDataClient) fetchOnce(ctx context.Context) ([]TokenStat, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/tokens", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call market data provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("market data provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Tokens []TokenStat `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode market data response: %w", err)
	}

	return response.Tokens, nil
}
