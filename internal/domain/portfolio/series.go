package portfolio

import (
	"sort"
	"time"

	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/market"
)

// BucketWidthMs is the width of one series bucket (one hour).
const BucketWidthMs int64 = 60 * 60 * 1000

type PriceDataPoint struct {
	Time  time.Time
	Value float64
}

// CoinAmount is a native-coin holding as used by the series reconstruction.
type CoinAmount struct {
	CoinID string
	Amount float64
}

// NativeAmounts lists one entry per native-coin holding, in holding order.
func NativeAmounts(holdings []Holding) []CoinAmount {
	var out []CoinAmount
	for _, h := range holdings {
		if _, ok := h.Currency.(currency.NativeCoin); !ok {
			continue
		}
		out = append(out, CoinAmount{CoinID: h.Currency.Info().ID, Amount: h.Amount})
	}
	return out
}

// Bucket floors a millisecond timestamp to the start of its hour.
func Bucket(tsMs int64) int64 {
	mod := tsMs % BucketWidthMs
	if mod < 0 {
		mod += BucketWidthMs
	}
	return tsMs - mod
}

// ReconstructSeries sums amount*price per hour bucket across every coin
// holding. Buckets without samples are absent, and the result is ascending by time.
func ReconstructSeries(coins []CoinAmount, history market.History) []PriceDataPoint {
	sums := make(map[int64]float64)
	for _, coin := range coins {
		for _, s := range history[coin.CoinID] {
			sums[Bucket(s.TimestampMs)] += coin.Amount * s.Price
		}
	}

	keys := make([]int64, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	series := make([]PriceDataPoint, 0, len(keys))
	for _, k := range keys {
		series = append(series, PriceDataPoint{Time: time.UnixMilli(k).UTC(), Value: sums[k]})
	}
	return series
}
