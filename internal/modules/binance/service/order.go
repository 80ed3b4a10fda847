package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"signal_engine/internal/models"

	"github.com/pkg/errors"
)

type orderResponse struct {
	OrderID  int64  `json:"orderId"`
	Status   string `json:"status"`
	AvgPrice string `json:"avgPrice"`
}

func (r orderResponse) toModel() models.OrderStatusResponse {
	avg, _ := strconv.ParseFloat(r.AvgPrice, 64)
	return models.OrderStatusResponse{
		OrderID:  r.OrderID,
		Status:   models.OrderStatus(r.Status),
		AvgPrice: avg,
	}
}

// PlaceOrder submits an order and returns the immediate status snapshot.
func (c *Client) PlaceOrder(ctx context.Context, contract models.Contract, side models.Side, qty float64, ordType models.OrderType) (models.OrderStatusResponse, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("side", string(side))
	params.Set("quantity", strconv.FormatFloat(contract.RoundToLot(qty), 'f', -1, 64))
	params.Set("type", string(ordType))

	var payload orderResponse
	if err := c.request(ctx, http.MethodPost, "/fapi/v1/order", params, true, &payload); err != nil {
		return models.OrderStatusResponse{}, errors.Wrapf(err, "place order %s %s", contract.Symbol, side)
	}
	return payload.toModel(), nil
}

// OrderStatus fetches the current state of an order.
func (c *Client) OrderStatus(ctx context.Context, contract models.Contract, orderID int64) (models.OrderStatusResponse, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	var payload orderResponse
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/order", params, true, &payload); err != nil {
		return models.OrderStatusResponse{}, errors.Wrapf(err, "order status %s %d", contract.Symbol, orderID)
	}
	return payload.toModel(), nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, contract models.Contract, orderID int64) (models.OrderStatusResponse, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	var payload orderResponse
	if err := c.request(ctx, http.MethodDelete, "/fapi/v1/order", params, true, &payload); err != nil {
		return models.OrderStatusResponse{}, errors.Wrapf(err, "cancel order %s %d", contract.Symbol, orderID)
	}
	return payload.toModel(), nil
}
