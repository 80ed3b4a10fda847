package models

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is one entry recorded by a strategy instance. It is created at order
// submission with a nil EntryPrice; EntryPrice, Status and the pnl fields are
// the only mutations after creation (fill reconciliation and exit handling).
type Trade struct {
	EntryTime     int64       `json:"entry_time"` // ms epoch
	Symbol        string      `json:"symbol"`
	Strategy      string      `json:"strategy"`
	Side          Side        `json:"side"`
	EntryPrice    *float64    `json:"entry_price"` // nil until the entry order fills
	Quantity      float64     `json:"quantity"`
	Status        TradeStatus `json:"status"`
	UnrealizedPnl float64     `json:"unrealized_pnl"`
	RealizedPnl   float64     `json:"realized_pnl"`
	EntryOrderID  int64       `json:"entry_order_id"`
}

// Direction is +1 for longs and -1 for shorts, for pnl arithmetic.
func (t Trade) Direction() float64 {
	if t.Side == SideSell {
		return -1
	}
	return 1
}
