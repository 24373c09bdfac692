// Package fx adapts the external exchange-rate API to the ports.RateGateway
// contract. The adapter is a pure boundary call with no retries and no
// caching; resilience policy lives with the caller.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"wallet-ledger/config"

	"github.com/rs/zerolog"
)

// Client implements ports.RateGateway against the exchangerate-api v6
// pair endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an FX client. The HTTP client carries the configured
// timeout so a slow gateway surfaces as ConversionFailed upstream instead
// of blocking a transfer indefinitely.
func NewClient(cfg config.FXConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type pairResponse struct {
	Result         string  `json:"result"`
	ErrorType      string  `json:"error-type"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Rate fetches the conversion multiplier from base to target currency.
func (c *Client) Rate(ctx context.Context, base, target string) (float64, error) {
	url := fmt.Sprintf("%s/%s/pair/%s/%s", c.baseURL, c.apiKey, base, target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call rate gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate gateway returned status %d", resp.StatusCode)
	}

	var body pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	if body.Result != "success" {
		return 0, fmt.Errorf("rate gateway error: %s", body.ErrorType)
	}
	if body.ConversionRate <= 0 {
		return 0, fmt.Errorf("rate gateway returned non-positive rate %f", body.ConversionRate)
	}

	c.log.Debug().
		Str("base", base).
		Str("target", target).
		Float64("rate", body.ConversionRate).
		Msg("fetched FX rate")

	return body.ConversionRate, nil
}
