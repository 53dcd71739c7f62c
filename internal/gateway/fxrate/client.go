package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// 為替レート取得。フォールバック通貨での再計算に使う。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// FetchRate はfrom→toのレートを返す。
func (c *Client) FetchRate(ctx context.Context, from string, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	endpoint := c.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("exchange rate fetch returned %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]json.Number `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}

	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", to)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, err
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("invalid rate %s", raw)
	}
	return rate, nil
}
