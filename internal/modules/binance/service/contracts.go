package service

import (
	"context"
	"net/http"

	"signal_engine/internal/models"

	"github.com/pkg/errors"
)

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol            string `json:"symbol"`
		Status            string `json:"status"`
		BaseAsset         string `json:"baseAsset"`
		QuoteAsset        string `json:"quoteAsset"`
		PricePrecision    int    `json:"pricePrecision"`
		QuantityPrecision int    `json:"quantityPrecision"`
	} `json:"symbols"`
}

// Contracts loads the tradable instruments, keyed by symbol.
func (c *Client) Contracts(ctx context.Context) (map[string]models.Contract, error) {
	var payload exchangeInfoResponse
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, &payload); err != nil {
		return nil, errors.Wrap(err, "exchange info")
	}

	contracts := make(map[string]models.Contract, len(payload.Symbols))
	for _, s := range payload.Symbols {
		if s.Status != "" && s.Status != "TRADING" {
			continue
		}
		contracts[s.Symbol] = models.NewContract(
			s.Symbol, s.BaseAsset, s.QuoteAsset,
			s.PricePrecision, s.QuantityPrecision,
			exchangeName,
		)
	}
	return contracts, nil
}
