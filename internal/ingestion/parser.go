package ingestion

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/shopspring/decimal"
)

// Field labels inside each daily entry of the provider payload.
const (
	fieldOpen          = "1. open"
	fieldHigh          = "2. high"
	fieldLow           = "3. low"
	fieldClose         = "4. close"
	fieldAdjustedClose = "5. adjusted close"
	fieldVolume        = "6. volume"
)

// Field labels inside a global quote block.
const (
	quoteOpen       = "02. open"
	quoteHigh       = "03. high"
	quoteLow        = "04. low"
	quotePrice      = "05. price"
	quoteVolume     = "06. volume"
	quoteTradingDay = "07. latest trading day"
)

const tradingDayLayout = "2006-01-02"

// Parser converts a decoded payload into normalized price records. Numeric
// fields are parsed defensively: an absent or non-numeric value becomes a
// NULL field, never a discarded day.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// NormalizeDaily flattens the per-day time series into records sorted by
// trading day. A payload without the time-series key is a ParseError so the
// caller can tell "unexpected format" apart from "nothing new", which is an
// empty slice and a nil error.
func (p *Parser) NormalizeDaily(symbol string, payload *Payload) ([]domain.PriceRecord, error) {
	if payload == nil || payload.TimeSeries == nil {
		return nil, &ParseError{Symbol: symbol, Reason: "no time series"}
	}

	records := make([]domain.PriceRecord, 0, len(payload.TimeSeries))
	for day, fields := range payload.TimeSeries {
		tradingDay, err := time.Parse(tradingDayLayout, day)
		if err != nil {
			// An unparseable key cannot be keyed in the destination
			// table; skip the entry rather than fail the symbol.
			continue
		}

		records = append(records, domain.PriceRecord{
			Symbol:        strings.ToUpper(symbol),
			TradingDay:    tradingDay,
			Open:          parseDecimal(fields[fieldOpen]),
			High:          parseDecimal(fields[fieldHigh]),
			Low:           parseDecimal(fields[fieldLow]),
			Close:         parseDecimal(fields[fieldClose]),
			AdjustedClose: parseDecimal(fields[fieldAdjustedClose]),
			Volume:        parseVolume(fields[fieldVolume]),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TradingDay.Before(records[j].TradingDay)
	})

	return records, nil
}

// NormalizeQuote converts a global quote block into a single record for the
// quote's latest trading day, with current_price set alongside the session
// prices. A missing block is a ParseError, and so is a block without a
// usable price: the provider answers an unknown symbol with an empty quote
// and a throttled-but-undetected request with a zero price.
func (p *Parser) NormalizeQuote(symbol string, payload *Payload) ([]domain.PriceRecord, error) {
	if payload == nil || payload.GlobalQuote == nil {
		return nil, &ParseError{Symbol: symbol, Reason: "no global quote"}
	}

	quote := payload.GlobalQuote

	price := parseDecimal(quote[quotePrice])
	if price == nil || price.IsZero() {
		return nil, &ParseError{Symbol: symbol, Reason: "invalid quote price"}
	}

	tradingDay, err := time.Parse(tradingDayLayout, quote[quoteTradingDay])
	if err != nil {
		tradingDay = time.Now().Truncate(24 * time.Hour)
	}

	record := domain.PriceRecord{
		Symbol:       strings.ToUpper(symbol),
		TradingDay:   tradingDay,
		Open:         parseDecimal(quote[quoteOpen]),
		High:         parseDecimal(quote[quoteHigh]),
		Low:          parseDecimal(quote[quoteLow]),
		Close:        price,
		CurrentPrice: price,
		Volume:       parseVolume(quote[quoteVolume]),
	}
	// The quote endpoint carries no adjusted close; mirror the session
	// close so the row stays self-consistent.
	record.AdjustedClose = price

	return []domain.PriceRecord{record}, nil
}

func parseDecimal(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func parseVolume(raw string) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
