package strategy

import (
	"math"
	"testing"

	"signal_engine/internal/models"
)

func newTestSeries(t *testing.T, seed ...models.Candle) *Series {
	t.Helper()
	s := NewSeries("BTCUSDT", "1m", 60_000)
	if len(seed) == 0 {
		seed = []models.Candle{{
			OpenTime:  0,
			CloseTime: 60_000,
			Open:      100, High: 100, Low: 100, Close: 100,
			Volume: 1,
		}}
	}
	if err := s.Seed(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestSeriesSeedEmpty(t *testing.T) {
	s := NewSeries("BTCUSDT", "1m", 60_000)
	if err := s.Seed(nil); err == nil {
		t.Fatal("expected error on empty seed")
	}
}

func TestSeriesSameBucket(t *testing.T) {
	s := newTestSeries(t)

	ticks := []struct {
		price, size float64
		ts          int64
	}{
		{101, 2, 1_000},
		{99, 3, 30_000},
		{100.5, 1, 59_999}, // last ms of the bucket, still strict <
	}
	for _, tk := range ticks {
		if got := s.Ingest(tk.price, tk.size, tk.ts); got != TickSameCandle {
			t.Fatalf("Ingest(%v) = %v, want TickSameCandle", tk, got)
		}
	}

	if len(s.Candles) != 1 {
		t.Fatalf("candle count = %d, want 1", len(s.Candles))
	}
	last := s.Last()
	if last.High != 101 || last.Low != 99 {
		t.Errorf("high/low = %v/%v, want 101/99", last.High, last.Low)
	}
	if last.Close != 100.5 {
		t.Errorf("close = %v, want last price 100.5", last.Close)
	}
	if want := 1.0 + 2 + 3 + 1; math.Abs(last.Volume-want) > 1e-9 {
		t.Errorf("volume = %v, want %v", last.Volume, want)
	}
}

func TestSeriesBoundaryOpensNewBucket(t *testing.T) {
	s := newTestSeries(t)

	// exactly open_time + w belongs to the next bucket
	if got := s.Ingest(105, 2, 60_000); got != TickNewCandle {
		t.Fatalf("Ingest at boundary = %v, want TickNewCandle", got)
	}
	if len(s.Candles) != 2 {
		t.Fatalf("candle count = %d, want 2", len(s.Candles))
	}
	last := s.Last()
	if last.OpenTime != 60_000 || last.CloseTime != 120_000 {
		t.Errorf("window = [%d, %d), want [60000, 120000)", last.OpenTime, last.CloseTime)
	}
	if last.Open != 105 || last.High != 105 || last.Low != 105 || last.Close != 105 {
		t.Errorf("new candle OHLC = %+v, want all 105", *last)
	}
	if last.Volume != 2 {
		t.Errorf("volume = %v, want 2", last.Volume)
	}
}

func TestSeriesGapFill(t *testing.T) {
	s := newTestSeries(t)

	// three buckets ahead: two fillers plus the real candle
	if got := s.Ingest(120, 5, 185_000); got != TickNewCandle {
		t.Fatalf("Ingest = %v, want TickNewCandle", got)
	}
	if len(s.Candles) != 4 {
		t.Fatalf("candle count = %d, want 4", len(s.Candles))
	}

	for i, wantOpen := range []int64{60_000, 120_000} {
		filler := s.Candles[1+i]
		if filler.OpenTime != wantOpen {
			t.Errorf("filler[%d].OpenTime = %d, want %d", i, filler.OpenTime, wantOpen)
		}
		if filler.Open != 100 || filler.High != 100 || filler.Low != 100 || filler.Close != 100 {
			t.Errorf("filler[%d] OHLC = %+v, want all 100 (previous close)", i, filler)
		}
		if filler.Volume != 0 {
			t.Errorf("filler[%d].Volume = %v, want 0", i, filler.Volume)
		}
	}

	last := s.Last()
	if last.OpenTime != 180_000 {
		t.Errorf("last.OpenTime = %d, want 180000", last.OpenTime)
	}
	if last.Close != 120 || last.Volume != 5 {
		t.Errorf("last close/volume = %v/%v, want 120/5", last.Close, last.Volume)
	}
}

func TestSeriesGapFillChainsCloses(t *testing.T) {
	s := newTestSeries(t)

	// move the close first, fillers must seed from the updated close
	s.Ingest(111, 1, 10_000)
	s.Ingest(200, 1, 185_000)

	if got := s.Candles[1].Open; got != 111 {
		t.Errorf("first filler open = %v, want 111", got)
	}
	if got := s.Candles[2].Open; got != 111 {
		t.Errorf("second filler open = %v, want 111 (chained close)", got)
	}
}

func TestSeriesOutOfOrderDropped(t *testing.T) {
	s := newTestSeries(t)
	s.Ingest(105, 1, 60_000)

	if got := s.Ingest(90, 1, 30_000); got != TickDropped {
		t.Fatalf("Ingest(stale) = %v, want TickDropped", got)
	}
	if len(s.Candles) != 2 {
		t.Errorf("candle count = %d, want 2 (stale tick must not append)", len(s.Candles))
	}
	if s.Last().Close != 105 {
		t.Errorf("close = %v, stale tick must not mutate the series", s.Last().Close)
	}
}

// Len is read from the HTTP presentation goroutine while the tick path
// appends; it must never touch the candle slice itself.
func TestSeriesLenFromAnotherGoroutine(t *testing.T) {
	s := newTestSeries(t)
	if s.Len() != 1 {
		t.Fatalf("Len after seed = %d, want 1", s.Len())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			if n := s.Len(); n < 1 {
				t.Errorf("Len = %d mid-ingest", n)
				return
			}
		}
	}()

	for ts := int64(60_000); ts < 360_000; ts += 20_000 {
		s.Ingest(100, 1, ts)
	}
	<-done

	if s.Len() != len(s.Candles) {
		t.Errorf("Len = %d, want %d", s.Len(), len(s.Candles))
	}
}

func TestSeriesLagSignalDoesNotBlockIngestion(t *testing.T) {
	savedNow := nowMs
	nowMs = func() int64 { return 70_000 }
	defer func() { nowMs = savedNow }()

	s := newTestSeries(t)
	var lag int64
	s.Lagged = func(ms int64) { lag = ms }

	if got := s.Ingest(101, 1, 5_000); got != TickSameCandle {
		t.Fatalf("Ingest = %v, want TickSameCandle despite lag", got)
	}
	if lag != 65_000 {
		t.Errorf("lag = %d, want 65000", lag)
	}
}
