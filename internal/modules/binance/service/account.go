package service

import (
	"context"
	"net/http"
	"strconv"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/pkg/errors"
)

type accountResponse struct {
	Assets []struct {
		Asset            string `json:"asset"`
		WalletBalance    string `json:"walletBalance"`
		MarginBalance    string `json:"marginBalance"`
		InitialMargin    string `json:"initialMargin"`
		UnrealizedProfit string `json:"unrealizedProfit"`
		MaintMargin      string `json:"maintMargin"`
	} `json:"assets"`
}

// Balances loads the futures account assets, keyed by asset name.
func (c *Client) Balances(ctx context.Context) (map[string]models.Asset, error) {
	var payload accountResponse
	if err := c.request(ctx, http.MethodGet, "/fapi/v2/account", nil, true, &payload); err != nil {
		return nil, errors.Wrap(err, "account")
	}

	balances := make(map[string]models.Asset, len(payload.Assets))
	for _, a := range payload.Assets {
		wallet, _ := strconv.ParseFloat(a.WalletBalance, 64)
		margin, _ := strconv.ParseFloat(a.MarginBalance, 64)
		initial, _ := strconv.ParseFloat(a.InitialMargin, 64)
		upl, _ := strconv.ParseFloat(a.UnrealizedProfit, 64)
		maint, _ := strconv.ParseFloat(a.MaintMargin, 64)
		balances[a.Asset] = models.Asset{
			Name:              a.Asset,
			WalletBalance:     wallet,
			MarginBalance:     margin,
			InitialMargin:     initial,
			UnrealizedPnl:     upl,
			MaintenanceMargin: maint,
		}
	}
	return balances, nil
}

// TradeSize converts a balance percentage into a base quantity at the given
// price. ok=false means balance data was unavailable; the caller aborts the
// entry, nothing is raised.
func (c *Client) TradeSize(ctx context.Context, contract models.Contract, price float64, balancePct float64) (float64, bool) {
	balances, err := c.Balances(ctx)
	if err != nil {
		logger.Error("[SIZE] %s: balances unavailable: %v", contract.Symbol, err)
		return 0, false
	}
	quote, ok := balances[contract.QuoteAsset]
	if !ok || price <= 0 {
		return 0, false
	}

	size := contract.RoundToLot(quote.WalletBalance * balancePct / 100 / price)
	logger.Info("[SIZE] %s: balance=%.8f %s pct=%.2f price=%.8f -> %.8f",
		contract.Symbol, quote.WalletBalance, contract.QuoteAsset, balancePct, price, size)
	return size, true
}
