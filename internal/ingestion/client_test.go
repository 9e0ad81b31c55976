package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyPayload = `{
	"Meta Data": {
		"1. Information": "Daily Time Series with Splits and Dividend Events",
		"2. Symbol": "AAPL",
		"3. Last Refreshed": "2024-06-03"
	},
	"Time Series (Daily)": {
		"2024-06-03": {
			"1. open": "192.90",
			"2. high": "194.99",
			"3. low": "192.52",
			"4. close": "194.03",
			"5. adjusted close": "194.03",
			"6. volume": "50080539"
		}
	}
}`

func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, "test-key", 5*time.Second)
}

func TestClientFetchDaily(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"function": r.URL.Query().Get("function"),
			"symbol":   r.URL.Query().Get("symbol"),
			"apikey":   r.URL.Query().Get("apikey"),
		}
		w.Write([]byte(dailyPayload))
	}))
	defer server.Close()

	payload, err := newTestClient(server).FetchDaily(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, FunctionDailySeries, gotQuery["function"])
	assert.Equal(t, "AAPL", gotQuery["symbol"])
	assert.Equal(t, "test-key", gotQuery["apikey"])

	require.NotNil(t, payload.TimeSeries)
	assert.Contains(t, payload.TimeSeries, "2024-06-03")
	assert.Equal(t, "194.03", payload.TimeSeries["2024-06-03"]["4. close"])
}

func TestClientRateLimitNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchDaily(context.Background(), "AAPL")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindRateLimited, fetchErr.Kind)
	assert.Contains(t, fetchErr.Detail, "rate limit")
}

func TestClientProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchDaily(context.Background(), "NOPE")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTransport, fetchErr.Kind)
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchDaily(context.Background(), "AAPL")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTransport, fetchErr.Kind)
}

func TestClientMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchDaily(context.Background(), "AAPL")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindMalformed, fetchErr.Kind)
}

func TestClientSingleRequestPerCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchDaily(context.Background(), "AAPL")
	require.Error(t, err)

	// No internal retry; that belongs to the orchestrator.
	assert.Equal(t, 1, calls)
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server).FetchQuote(context.Background(), "AAPL")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTransport, fetchErr.Kind)
	assert.True(t, errors.Unwrap(fetchErr) != nil)
}
