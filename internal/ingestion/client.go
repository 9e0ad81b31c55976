package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/finbase/stock-ingestor/pkg/metrics"
)

const (
	FunctionDailySeries = "TIME_SERIES_DAILY_ADJUSTED"
	FunctionGlobalQuote = "GLOBAL_QUOTE"
)

// Payload is the decoded provider response. Exactly one of the data blocks
// is populated on success; the notice fields are set when the provider
// replies 200 with an error or throttling message instead of data.
type Payload struct {
	MetaData    map[string]string            `json:"Meta Data"`
	TimeSeries  map[string]map[string]string `json:"Time Series (Daily)"`
	GlobalQuote map[string]string            `json:"Global Quote"`

	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// Client issues one HTTP request per call to the provider's quote endpoint.
// It never retries; retry policy belongs to the orchestrator.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDaily retrieves the daily adjusted time series for one symbol.
func (c *Client) FetchDaily(ctx context.Context, symbol string) (*Payload, error) {
	return c.fetch(ctx, FunctionDailySeries, symbol)
}

// FetchQuote retrieves the latest global quote for one symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*Payload, error) {
	return c.fetch(ctx, FunctionGlobalQuote, symbol)
}

func (c *Client) fetch(ctx context.Context, function, symbol string) (*Payload, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	// The API key stays out of logs and error messages.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Symbol: symbol, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(function, "transport_error")
		return nil, &FetchError{Kind: KindTransport, Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderRequest(function, "http_error")
		return nil, &FetchError{
			Kind:   KindTransport,
			Symbol: symbol,
			Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordProviderRequest(function, "transport_error")
		return nil, &FetchError{Kind: KindTransport, Symbol: symbol, Err: err}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordProviderRequest(function, "malformed")
		return nil, &FetchError{Kind: KindMalformed, Symbol: symbol, Err: err}
	}

	// The free tier answers 200 with a notice instead of data once the
	// request budget is exhausted.
	if payload.Note != "" || payload.Information != "" {
		notice := payload.Note
		if notice == "" {
			notice = payload.Information
		}
		metrics.RecordProviderRequest(function, "rate_limited")
		return nil, &FetchError{Kind: KindRateLimited, Symbol: symbol, Detail: notice}
	}

	if payload.ErrorMessage != "" {
		metrics.RecordProviderRequest(function, "rejected")
		return nil, &FetchError{Kind: KindTransport, Symbol: symbol, Detail: payload.ErrorMessage}
	}

	metrics.RecordProviderRequest(function, "success")
	return &payload, nil
}
