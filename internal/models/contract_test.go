package models

import "testing"

func TestNewContractSteps(t *testing.T) {
	c := NewContract("BTCUSDT", "BTC", "USDT", 1, 3, "binance_futures")
	if c.TickSize != 0.1 {
		t.Errorf("TickSize = %v, want 0.1", c.TickSize)
	}
	if c.LotSize != 0.001 {
		t.Errorf("LotSize = %v, want 0.001", c.LotSize)
	}
}

func TestRoundToLot(t *testing.T) {
	c := NewContract("BTCUSDT", "BTC", "USDT", 1, 3, "binance_futures")

	tests := []struct {
		qty  float64
		want float64
	}{
		{0.12345, 0.123},
		{0.1239, 0.124},
		{0.0004, 0},
		{2, 2},
	}
	for _, tt := range tests {
		if got := c.RoundToLot(tt.qty); got != tt.want {
			t.Errorf("RoundToLot(%v) = %v, want %v", tt.qty, got, tt.want)
		}
	}
}

func TestRoundToTick(t *testing.T) {
	c := NewContract("ETHUSDT", "ETH", "USDT", 2, 3, "binance_futures")

	tests := []struct {
		price float64
		want  float64
	}{
		{1234.5678, 1234.57},
		{1234.561, 1234.56},
		{0.004, 0},
		{10, 10},
	}
	for _, tt := range tests {
		if got := c.RoundToTick(tt.price); got != tt.want {
			t.Errorf("RoundToTick(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderFilled, OrderCanceled, OrderRejected, OrderExpired}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", st)
		}
	}
	for _, st := range []OrderStatus{OrderNew, OrderPartiallyFilled} {
		if st.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", st)
		}
	}
}
