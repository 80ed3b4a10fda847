package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"

	"github.com/gorilla/websocket"
)

const exchangeName = "binance_futures"

// Client talks to Binance USD-M futures: signed REST plus one aggTrade
// WebSocket shared by all subscribed symbols.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string

	http      *http.Client
	wsDialer  *websocket.Dialer
	seedLimit int

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed map[string]bool
	streamID   int

	ticks chan models.TradeTick

	// ConnState is called on every WebSocket connect/disconnect. Optional.
	ConnState func(connected bool)
}

func New(cfg *config.Config) *Client {
	baseURL := "https://fapi.binance.com"
	wsURL := "wss://fstream.binance.com/ws"
	if cfg.Binance.Testnet {
		baseURL = "https://testnet.binancefuture.com"
		wsURL = "wss://stream.binancefuture.com/ws"
	}
	seedLimit := cfg.SeedCandleLimit
	if seedLimit <= 0 || seedLimit > 1000 {
		seedLimit = 1000
	}
	return &Client{
		apiKey:     cfg.Binance.APIKey,
		apiSecret:  cfg.Binance.APISecret,
		baseURL:    baseURL,
		wsURL:      wsURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		wsDialer:   websocket.DefaultDialer,
		seedLimit:  seedLimit,
		subscribed: make(map[string]bool),
		streamID:   1,
		ticks:      make(chan models.TradeTick, 1024),
	}
}

func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// request performs one REST call and decodes the 2xx body into out. Signed
// requests get a timestamp and an HMAC-SHA256 signature over the query.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("signature", c.sign(params.Encode()))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
