package strategy

import (
	"sync/atomic"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/pkg/errors"
)

type TickResult int

const (
	TickSameCandle TickResult = iota
	TickNewCandle
	TickDropped
)

// nowMs is swapped in tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// streamLagMs: above this distance between wall clock and exchange timestamp
// the tick is logged as lagging. Ingestion continues regardless.
const streamLagMs = 1000

// Series is the ordered, gap-free candle sequence of one instrument+timeframe
// pair. Written only from the tick path, never concurrently.
type Series struct {
	Symbol    string
	Timeframe string
	BucketMs  int64
	Candles   []models.Candle

	// Lagged receives the observed stream lag in ms, when any. Optional.
	Lagged func(ms int64)

	length atomic.Int64
}

func NewSeries(symbol, timeframe string, bucketMs int64) *Series {
	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		BucketMs:  bucketMs,
	}
}

// Seed installs the historical candles the live stream will continue from.
// An empty history is a hard failure: Ingest needs a last candle to extend.
func (s *Series) Seed(candles []models.Candle) error {
	if len(candles) == 0 {
		return errors.Errorf("no historical candles for %s %s", s.Symbol, s.Timeframe)
	}
	s.Candles = append(s.Candles[:0], candles...)
	s.length.Store(int64(len(s.Candles)))
	return nil
}

// Len reports the candle count. Candles itself belongs to the tick path;
// Len is the one view other goroutines may take.
func (s *Series) Len() int {
	return int(s.length.Load())
}

func (s *Series) Last() *models.Candle {
	if len(s.Candles) == 0 {
		return nil
	}
	return &s.Candles[len(s.Candles)-1]
}

// Ingest folds one trade tick into the series. Three cases: the tick lands in
// the current bucket, it opens the next bucket, or it skips buckets because no
// trade happened for a while — then zero-volume fillers are chained in first,
// each seeded with the previous close.
func (s *Series) Ingest(price, size float64, timestamp int64) TickResult {
	if lag := nowMs() - timestamp; lag >= streamLagMs {
		logger.Warn("[LAG] %s %s: trade is %d ms behind wall clock", s.Symbol, s.Timeframe, lag)
		if s.Lagged != nil {
			s.Lagged(lag)
		}
	}

	last := s.Last()
	w := s.BucketMs

	// stale tick from before the current bucket — never rewrite history
	if timestamp < last.OpenTime {
		logger.Warn("[DROP] %s %s: out-of-order tick ts=%d < open_time=%d", s.Symbol, s.Timeframe, timestamp, last.OpenTime)
		return TickDropped
	}

	// current bucket, strict <: a tick exactly on the boundary opens the next one
	if timestamp < last.OpenTime+w {
		last.Close = price
		last.Volume += size
		if price > last.High {
			last.High = price
		}
		if price < last.Low {
			last.Low = price
		}
		return TickSameCandle
	}

	// skipped buckets: fill with flat zero-volume candles off the previous close
	if timestamp >= last.OpenTime+2*w {
		missing := (timestamp-last.OpenTime)/w - 1
		for i := int64(0); i < missing; i++ {
			filler := models.Candle{
				OpenTime:  last.OpenTime + w,
				CloseTime: last.OpenTime + 2*w,
				Open:      last.Close,
				High:      last.Close,
				Low:       last.Close,
				Close:     last.Close,
				Volume:    0,
			}
			s.Candles = append(s.Candles, filler)
			last = s.Last()
		}
		logger.Info("[GAP] %s %s: %d filler candles added", s.Symbol, s.Timeframe, missing)
	}

	s.Candles = append(s.Candles, models.Candle{
		OpenTime:  last.OpenTime + w,
		CloseTime: last.OpenTime + 2*w,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    size,
	})
	s.length.Store(int64(len(s.Candles)))
	return TickNewCandle
}
