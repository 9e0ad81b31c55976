package ingestion

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayEntry(open, high, low, close, adjClose, volume string) map[string]string {
	return map[string]string{
		fieldOpen:          open,
		fieldHigh:          high,
		fieldLow:           low,
		fieldClose:         close,
		fieldAdjustedClose: adjClose,
		fieldVolume:        volume,
	}
}

func TestNormalizeDaily(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		TimeSeries: map[string]map[string]string{
			"2024-06-04": dayEntry("195.40", "196.90", "194.34", "196.45", "196.45", "47471445"),
			"2024-06-03": dayEntry("192.90", "194.99", "192.52", "194.03", "194.03", "50080539"),
		},
	}

	records, err := parser.NormalizeDaily("aapl", payload)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by trading day, symbol uppercased.
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), records[0].TradingDay)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), records[1].TradingDay)

	require.NotNil(t, records[0].Close)
	assert.Equal(t, "194.03", records[0].Close.String())
	require.NotNil(t, records[0].Volume)
	assert.Equal(t, int64(50080539), *records[0].Volume)
}

func TestNormalizeDailyPartialFields(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		TimeSeries: map[string]map[string]string{
			"2024-06-03": dayEntry("192.90", "194.99", "192.52", "not-a-number", "194.03", "50080539"),
		},
	}

	records, err := parser.NormalizeDaily("AAPL", payload)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// One bad field nulls that field, not the whole day.
	assert.Nil(t, records[0].Close)
	require.NotNil(t, records[0].Open)
	assert.Equal(t, "192.9", records[0].Open.String())
	require.NotNil(t, records[0].Volume)
}

func TestNormalizeDailyMissingFields(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		TimeSeries: map[string]map[string]string{
			"2024-06-03": {fieldClose: "194.03"},
		},
	}

	records, err := parser.NormalizeDaily("AAPL", payload)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].Open)
	assert.Nil(t, records[0].Volume)
	require.NotNil(t, records[0].Close)
}

func TestNormalizeDailyNoSeries(t *testing.T) {
	parser := NewParser()

	_, err := parser.NormalizeDaily("AAPL", &Payload{
		MetaData: map[string]string{"2. Symbol": "AAPL"},
	})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "no time series", parseErr.Reason)
}

func TestNormalizeDailyEmptySeries(t *testing.T) {
	parser := NewParser()

	// Present but empty series is not an error: the provider simply had
	// nothing new.
	records, err := parser.NormalizeDaily("AAPL", &Payload{
		TimeSeries: map[string]map[string]string{},
	})

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeDailyRejectsNegative(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		TimeSeries: map[string]map[string]string{
			"2024-06-03": dayEntry("-1.50", "194.99", "192.52", "194.03", "194.03", "-5"),
		},
	}

	records, err := parser.NormalizeDaily("AAPL", payload)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].Open)
	assert.Nil(t, records[0].Volume)
}

func TestNormalizeDailySkipsBadDayKey(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		TimeSeries: map[string]map[string]string{
			"not-a-date": dayEntry("1", "1", "1", "1", "1", "1"),
			"2024-06-03": dayEntry("192.90", "194.99", "192.52", "194.03", "194.03", "50080539"),
		},
	}

	records, err := parser.NormalizeDaily("AAPL", payload)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNormalizeQuote(t *testing.T) {
	parser := NewParser()

	payload := &Payload{
		GlobalQuote: map[string]string{
			"01. symbol":    "MSFT",
			quoteOpen:       "424.01",
			quoteHigh:       "425.36",
			quoteLow:        "420.66",
			quotePrice:      "421.53",
			quoteVolume:     "16272103",
			quoteTradingDay: "2024-06-03",
		},
	}

	records, err := parser.NormalizeQuote("MSFT", payload)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "MSFT", record.Symbol)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), record.TradingDay)
	require.NotNil(t, record.CurrentPrice)
	assert.Equal(t, "421.53", record.CurrentPrice.String())
	require.NotNil(t, record.Close)
	assert.Equal(t, "421.53", record.Close.String())
	require.NotNil(t, record.AdjustedClose)
	assert.Equal(t, "421.53", record.AdjustedClose.String())
}

func TestNormalizeQuoteMissingBlock(t *testing.T) {
	parser := NewParser()

	_, err := parser.NormalizeQuote("MSFT", &Payload{})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestNormalizeQuoteZeroPrice(t *testing.T) {
	parser := NewParser()

	_, err := parser.NormalizeQuote("MSFT", &Payload{
		GlobalQuote: map[string]string{quotePrice: "0.0000"},
	})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "invalid quote price", parseErr.Reason)
}

func TestNormalizeQuoteEmptyBlock(t *testing.T) {
	parser := NewParser()

	// An unknown or misconfigured symbol comes back as an empty quote
	// block; that is a failed symbol, not a successful empty run.
	_, err := parser.NormalizeQuote("BOGUS", &Payload{
		GlobalQuote: map[string]string{},
	})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "invalid quote price", parseErr.Reason)
}

func BenchmarkNormalizeDaily(b *testing.B) {
	parser := NewParser()

	series := make(map[string]map[string]string, 100)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		price := fmt.Sprintf("%.2f", 150.0+float64(i%30))
		series[day.Format(tradingDayLayout)] = dayEntry(price, price, price, price, price, "1000000")
		day = day.AddDate(0, 0, 1)
	}
	payload := &Payload{TimeSeries: series}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := parser.NormalizeDaily("AAPL", payload); err != nil {
			b.Fatal(err)
		}
	}
}
