package api

import (
	"time"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/shopspring/decimal"
)

type PriceResponse struct {
	Symbol        string           `json:"symbol"`
	TradingDay    string           `json:"trading_day"`
	Open          *decimal.Decimal `json:"open"`
	High          *decimal.Decimal `json:"high"`
	Low           *decimal.Decimal `json:"low"`
	Close         *decimal.Decimal `json:"close"`
	AdjustedClose *decimal.Decimal `json:"adjusted_close"`
	Volume        *int64           `json:"volume"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	LastUpdated   time.Time        `json:"last_updated"`
}

func toPriceResponse(r domain.PriceRecord) PriceResponse {
	return PriceResponse{
		Symbol:        r.Symbol,
		TradingDay:    r.TradingDay.Format("2006-01-02"),
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		AdjustedClose: r.AdjustedClose,
		Volume:        r.Volume,
		CurrentPrice:  r.CurrentPrice,
		LastUpdated:   r.LastUpdated,
	}
}

type HistoryResponse struct {
	Symbol string          `json:"symbol"`
	Count  int             `json:"count"`
	Prices []PriceResponse `json:"prices"`
}

type RunResponse struct {
	Status        domain.RunStatus           `json:"status"`
	RecordsTotal  int64                      `json:"records_total"`
	CountByStatus map[domain.FetchStatus]int `json:"count_by_status"`
	Outcomes      []domain.FetchOutcome      `json:"outcomes"`
	Duration      string                     `json:"duration"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
