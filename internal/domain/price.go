package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one trading day's observation for one symbol. Price fields
// are pointers because the provider may omit any of them; a nil field is
// written as NULL and overwrites whatever the row held before.
type PriceRecord struct {
	Symbol        string           `db:"symbol"`
	TradingDay    time.Time        `db:"trading_day"`
	Open          *decimal.Decimal `db:"open"`
	High          *decimal.Decimal `db:"high"`
	Low           *decimal.Decimal `db:"low"`
	Close         *decimal.Decimal `db:"close"`
	AdjustedClose *decimal.Decimal `db:"adjusted_close"`
	Volume        *int64           `db:"volume"`
	CurrentPrice  *decimal.Decimal `db:"current_price"`
	LastUpdated   time.Time        `db:"last_updated"`
}
