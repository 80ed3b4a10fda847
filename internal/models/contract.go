package models

import "math"

// Contract describes a tradable instrument. Immutable after creation, owned by
// the exchange gateway; strategies hold references only.
type Contract struct {
	Symbol           string
	BaseAsset        string
	QuoteAsset       string
	PriceDecimals    int
	QuantityDecimals int
	TickSize         float64 // 10^-PriceDecimals
	LotSize          float64 // 10^-QuantityDecimals
	Exchange         string
}

func NewContract(symbol, base, quote string, priceDec, qtyDec int, exchange string) Contract {
	return Contract{
		Symbol:           symbol,
		BaseAsset:        base,
		QuoteAsset:       quote,
		PriceDecimals:    priceDec,
		QuantityDecimals: qtyDec,
		TickSize:         1 / math.Pow10(priceDec),
		LotSize:          1 / math.Pow10(qtyDec),
		Exchange:         exchange,
	}
}

// RoundToLot snaps a quantity to the contract lot size.
func (c Contract) RoundToLot(qty float64) float64 {
	if c.LotSize <= 0 {
		return qty
	}
	return math.Round(math.Round(qty/c.LotSize)*c.LotSize*1e8) / 1e8
}

// RoundToTick snaps a price to the contract tick size.
func (c Contract) RoundToTick(price float64) float64 {
	if c.TickSize <= 0 {
		return price
	}
	return math.Round(math.Round(price/c.TickSize)*c.TickSize*1e8) / 1e8
}

// Asset is one balance entry of the futures account.
type Asset struct {
	Name              string
	WalletBalance     float64
	MarginBalance     float64
	InitialMargin     float64
	UnrealizedPnl     float64
	MaintenanceMargin float64
}
