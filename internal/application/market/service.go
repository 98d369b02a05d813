package market

import (
	"context"
	"strconv"
	"strings"
	"time"

	"portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/domain/market"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultHistoryWindow = 24 * time.Hour

// Recorder receives cache and provider outcomes.
type Recorder interface {
	ProviderError(provider, operation string)
	CacheLookup(cache string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ProviderError(string, string) {}
func (nopRecorder) CacheLookup(string, bool)     {}

// Caches groups the three caches the service reads through.
type Caches struct {
	Coins   domain.Cache[string, market.CoinMarket]
	Tokens  domain.Cache[string, market.TokenPrice]
	History domain.Cache[string, []market.PriceSample]
}

// Service wraps a primary market.Provider and an optional fallback with
// cache-aside caching and rate limiting. It never fails: a provider error
// degrades to whatever the cache had, possibly nothing. Only primary results
// are cached; fallback answers are served for the current call and dropped.
type Service struct {
	caches      Caches
	primary     market.Provider
	fallback    market.Provider
	rateLimiter domain.RateLimiterService

	historyWindow time.Duration
	now           func() time.Time

	logger  *logger.Logger
	metrics Recorder
}

func NewService(caches Caches, rateLimiter domain.RateLimiterService, log *logger.Logger, metrics Recorder) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		caches:        caches,
		rateLimiter:   rateLimiter,
		historyWindow: DefaultHistoryWindow,
		now:           time.Now,
		logger:        log,
		metrics:       metrics,
	}
}

// SetProviders sets the primary and fallback market data providers. The
// fallback may be nil, which is the default for live runs.
func (s *Service) SetProviders(primary, fallback market.Provider) {
	s.primary = primary
	s.fallback = fallback
}

func (s *Service) SetHistoryWindow(d time.Duration) {
	if d > 0 {
		s.historyWindow = d
	}
}

// CoinsMarketData returns market records for the requested coin ids, in request order.
// Ids the providers know nothing about are omitted.
func (s *Service) CoinsMarketData(ctx context.Context, ids []string) []market.CoinMarket {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return []market.CoinMarket{}
	}

	found := s.caches.Coins.GetBatch(ctx, ids)
	missed := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := found[id]
		s.metrics.CacheLookup("coins", ok)
		return !ok
	})

	if len(missed) > 0 {
		fetched, src := fetch(ctx, s, "coins", func(ctx context.Context, p market.Provider) ([]market.CoinMarket, error) {
			return p.CoinsMarketData(ctx, missed)
		})
		if src != fromNone {
			fresh := lo.SliceToMap(fetched, func(c market.CoinMarket) (string, market.CoinMarket) {
				return c.ID, c
			})
			if src == fromPrimary {
				s.caches.Coins.SetBatch(ctx, fresh)
			}
			for id, c := range fresh {
				found[id] = c
			}
		}
	}

	out := make([]market.CoinMarket, 0, len(found))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// TokensMarketData returns prices keyed by lowercased contract address.
func (s *Service) TokensMarketData(ctx context.Context, contracts []string) market.TokenPrices {
	keys := lo.Uniq(lo.Compact(lo.Map(contracts, func(c string, _ int) string {
		return strings.ToLower(c)
	})))
	out := make(market.TokenPrices, len(keys))
	if len(keys) == 0 {
		return out
	}

	for k, v := range s.caches.Tokens.GetBatch(ctx, keys) {
		out[k] = v
	}
	missed := lo.Filter(keys, func(k string, _ int) bool {
		_, ok := out[k]
		s.metrics.CacheLookup("tokens", ok)
		return !ok
	})

	if len(missed) > 0 {
		fetched, src := fetch(ctx, s, "tokens", func(ctx context.Context, p market.Provider) (market.TokenPrices, error) {
			return p.TokensMarketData(ctx, missed)
		})
		if src != fromNone {
			fresh := make(map[string]market.TokenPrice, len(fetched))
			for k, v := range fetched {
				fresh[strings.ToLower(k)] = v
			}
			if src == fromPrimary {
				s.caches.Tokens.SetBatch(ctx, fresh)
			}
			for k, v := range fresh {
				out[k] = v
			}
		}
	}

	return out
}

// HistoricalPrices returns the coin's price samples over the trailing history window.
// Cache entries are per coin and hour so a window is reused within the same hour.
func (s *Service) HistoricalPrices(ctx context.Context, coinID string) []market.PriceSample {
	if coinID == "" {
		return []market.PriceSample{}
	}

	to := s.now()
	from := to.Add(-s.historyWindow)
	key := coinID + ":" + strconv.FormatInt(to.Truncate(time.Hour).Unix(), 10)

	if samples, ok := s.caches.History.Get(ctx, key); ok {
		s.metrics.CacheLookup("history", true)
		return samples
	}
	s.metrics.CacheLookup("history", false)

	samples, src := fetch(ctx, s, "history", func(ctx context.Context, p market.Provider) ([]market.PriceSample, error) {
		return p.HistoricalPrices(ctx, coinID, from, to)
	})
	if src == fromNone || samples == nil {
		return []market.PriceSample{}
	}

	if src == fromPrimary {
		s.caches.History.Set(ctx, key, samples)
	}
	return samples
}

type source int

const (
	fromNone source = iota
	fromPrimary
	fromFallback
)

// fetch runs call against the primary provider, rate limited, then against
// the fallback. It reports which provider answered, fromNone when neither did.
func fetch[T any](ctx context.Context, s *Service, op string, call func(context.Context, market.Provider) (T, error)) (T, source) {
	var zero T

	if s.primary != nil {
		res, err := callPrimary(ctx, s, call)
		if err == nil {
			return res, fromPrimary
		}
		s.metrics.ProviderError("primary", op)
		s.logger.Warn("Primary market provider failed",
			zap.String("operation", op),
			zap.Error(err),
		)
	}

	if s.fallback == nil {
		s.logger.Warn("Returning empty market data", zap.String("operation", op))
		return zero, fromNone
	}

	res, err := call(ctx, s.fallback)
	if err != nil {
		s.metrics.ProviderError("fallback", op)
		s.logger.Warn("Fallback market provider failed, returning empty market data",
			zap.String("operation", op),
			zap.Error(err),
		)
		return zero, fromNone
	}

	return res, fromFallback
}

func callPrimary[T any](ctx context.Context, s *Service, call func(context.Context, market.Provider) (T, error)) (T, error) {
	var zero T
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return zero, err
		}
	}
	return call(ctx, s.primary)
}
