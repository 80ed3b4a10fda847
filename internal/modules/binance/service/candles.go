package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"signal_engine/internal/models"

	"github.com/pkg/errors"
)

// HistoricalCandles loads the closed candles a new strategy seeds its series
// from. Kline rows mix JSON numbers and strings:
// [openTime, "o", "h", "l", "c", "vol", closeTime, ...]
func (c *Client) HistoricalCandles(ctx context.Context, contract models.Contract, timeframe string) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(c.seedLimit))

	var rows [][]any
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/klines", params, false, &rows); err != nil {
		return nil, errors.Wrapf(err, "klines %s %s", contract.Symbol, timeframe)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime:  asInt64(row[0]),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
			CloseTime: asInt64(row[6]),
		})
	}
	return candles, nil
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}
