package models

// Candle is one OHLCV bucket. OpenTime/CloseTime are ms epoch, the window is
// half-open: [OpenTime, CloseTime). Only the last candle of a series is ever
// mutated; everything before it is frozen.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// TradeTick is a single aggregated trade event from the market data stream.
type TradeTick struct {
	Symbol    string
	Price     float64
	Size      float64
	Timestamp int64 // ms epoch, exchange time
}

// TimeframeMs maps a timeframe label to its bucket width in milliseconds.
var TimeframeMs = map[string]int64{
	"1m":  60_000,
	"5m":  300_000,
	"15m": 900_000,
	"30m": 1_800_000,
	"1h":  3_600_000,
	"4h":  14_400_000,
}
