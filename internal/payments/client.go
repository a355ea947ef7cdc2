// Package payments talks to the payment processor. The gateway issues
// payment intents; the client application completes them out-of-band
// with the returned client secret.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type Client struct {
	baseURL  string
	apiKey   string
	currency string
	http     *http.Client
}

// NewClient builds the gateway client once at startup; handlers receive
// it by injection.
func NewClient(baseURL, apiKey, currency string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

// CreateIntent requests a payment intent for amountCents minor units.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", c.currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return Intent{}, fmt.Errorf("payment gateway: %s (status %d)", apiErr.Error.Message, resp.StatusCode)
		}
		return Intent{}, fmt.Errorf("payment gateway: status %d", resp.StatusCode)
	}

	var in Intent
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil {
		return Intent{}, fmt.Errorf("payment gateway: decode response: %w", err)
	}
	if in.ClientSecret == "" {
		return Intent{}, fmt.Errorf("payment gateway: empty client secret")
	}
	return in, nil
}
