package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Ticks is the aggregated-trade stream, filtered to subscribed symbols.
func (c *Client) Ticks() <-chan models.TradeTick {
	return c.ticks
}

// SubscribeTrades registers a symbol's aggTrade stream. When the socket is up
// the subscription goes out immediately, otherwise the next (re)connect
// replays it.
func (c *Client) SubscribeTrades(symbol string) error {
	stream := strings.ToLower(symbol) + "@aggTrade"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribed[stream] {
		return nil
	}
	c.subscribed[stream] = true

	if c.conn == nil {
		return nil
	}
	return c.sendSubscribe(c.conn, []string{stream})
}

type wsConn interface {
	WriteJSON(v any) error
}

func (c *Client) sendSubscribe(conn wsConn, streams []string) error {
	payload := map[string]any{
		"method": "SUBSCRIBE",
		"params": streams,
		"id":     c.streamID,
	}
	c.streamID++
	if err := conn.WriteJSON(payload); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	logger.Info("[WS] subscribed %v", streams)
	return nil
}

type aggTradeFrame struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	Price    string `json:"p"`
	Quantity string `json:"q"`
	Time     int64  `json:"T"`
}

// RunStream keeps one WebSocket alive until the context dies, replaying all
// registered subscriptions after every reconnect.
func (c *Client) RunStream(ctx context.Context) {
	defer close(c.ticks)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			logger.Error("[WS] dial %s: %v", c.wsURL, err)
			time.Sleep(time.Second)
			continue
		}
		logger.Info("[WS] connected %s", c.wsURL)
		if c.ConnState != nil {
			c.ConnState(true)
		}

		c.mu.Lock()
		c.conn = conn
		streams := make([]string, 0, len(c.subscribed))
		for s := range c.subscribed {
			streams = append(streams, s)
		}
		var subErr error
		if len(streams) > 0 {
			subErr = c.sendSubscribe(conn, streams)
		}
		c.mu.Unlock()
		if subErr != nil {
			logger.Error("[WS] resubscribe: %v", subErr)
			_ = conn.Close()
			continue
		}

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		if c.ConnState != nil {
			c.ConnState(false)
		}

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Error("[WS] read: %v", err)
			_ = conn.Close()
			return
		}

		var frame aggTradeFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Event != "aggTrade" {
			continue
		}

		price, err1 := strconv.ParseFloat(frame.Price, 64)
		size, err2 := strconv.ParseFloat(frame.Quantity, 64)
		if err1 != nil || err2 != nil || price <= 0 {
			continue
		}

		tick := models.TradeTick{
			Symbol:    frame.Symbol,
			Price:     price,
			Size:      size,
			Timestamp: frame.Time,
		}
		select {
		case c.ticks <- tick:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}
