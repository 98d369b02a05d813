package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	loggeradapter "portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/market"
	"portfoliotracker/internal/domain/portfolio"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoSnapshot     = errors.New("no portfolio snapshot yet")
	ErrPassSuperseded = errors.New("aggregation pass superseded by a newer one")
	ErrLoadInputs     = errors.New("failed to load aggregation inputs")
	ErrPassAborted    = errors.New("aggregation pass ran out of time")
)

// MarketData is the never-failing market data source a pass reads from.
type MarketData interface {
	CoinsMarketData(ctx context.Context, ids []string) []market.CoinMarket
	TokensMarketData(ctx context.Context, contracts []string) market.TokenPrices
	HistoricalPrices(ctx context.Context, coinID string) []market.PriceSample
}

// Recorder receives pass outcomes.
type Recorder interface {
	ObservePass(outcome string, d time.Duration)
	PassDiscarded()
	SetPortfolioTotal(v float64)
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(string, time.Duration) {}
func (nopRecorder) PassDiscarded()                    {}
func (nopRecorder) SetPortfolioTotal(float64)         {}

type Config struct {
	PassTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{PassTimeout: 30 * time.Second}
}

type Service struct {
	accounts   account.Repository
	currencies currency.Repository
	market     MarketData
	store      *SnapshotStore

	cfg     Config
	now     func() time.Time
	logger  *loggeradapter.Logger
	metrics Recorder

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewService(
	accounts account.Repository,
	currencies currency.Repository,
	marketData MarketData,
	store *SnapshotStore,
	cfg Config,
	logger *loggeradapter.Logger,
	metrics Recorder,
) *Service {
	if logger == nil {
		logger = loggeradapter.NewNopLogger()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if store == nil {
		store = NewSnapshotStore()
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DefaultConfig().PassTimeout
	}
	return &Service{
		accounts:   accounts,
		currencies: currencies,
		market:     marketData,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
		metrics:    metrics,
	}
}

// Snapshot returns the latest committed snapshot.
func (s *Service) Snapshot() (portfolio.Snapshot, error) {
	snap, ok := s.store.Latest()
	if !ok {
		return portfolio.Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

type inputs struct {
	accounts []*account.Account
	registry *currency.Registry
}

func (s *Service) load(ctx context.Context) (inputs, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return inputs{}, fmt.Errorf("%w: accounts: %v", ErrLoadInputs, err)
	}
	wallets, err := s.accounts.ListCustomWallets(ctx)
	if err != nil {
		return inputs{}, fmt.Errorf("%w: custom wallets: %v", ErrLoadInputs, err)
	}
	list, err := s.currencies.List(ctx)
	if err != nil {
		return inputs{}, fmt.Errorf("%w: currencies: %v", ErrLoadInputs, err)
	}
	registry, err := currency.NewRegistry(list)
	if err != nil {
		return inputs{}, fmt.Errorf("%w: currencies: %v", ErrLoadInputs, err)
	}

	for _, w := range wallets {
		accounts = append(accounts, w.Accounts(registry.Resolve)...)
	}

	return inputs{accounts: accounts, registry: registry}, nil
}

// fetchMarket gathers current prices and one history per native coin
// concurrently. Every fetch starts at once; the market service's rate
// limiter paces the provider calls.
func (s *Service) fetchMarket(ctx context.Context, q portfolio.Query) (market.Data, market.History) {
	var (
		mu      sync.Mutex
		data    market.Data
		history = make(market.History, len(q.CoinIDs))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		coins := s.market.CoinsMarketData(gctx, q.CoinIDs)
		mu.Lock()
		data.Coins = coins
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		tokens := s.market.TokensMarketData(gctx, q.Contracts)
		mu.Lock()
		data.Tokens = tokens
		mu.Unlock()
		return nil
	})
	for _, id := range q.CoinIDs {
		id := id
		g.Go(func() error {
			samples := s.market.HistoricalPrices(gctx, id)
			mu.Lock()
			history[id] = samples
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return data, history
}

// Refresh runs one aggregation pass and commits its snapshot. The pass is
// detached from ctx cancellation and bounded only by PassTimeout. When the
// inputs cannot be loaded or the pass runs out of time the previous snapshot
// is kept.
func (s *Service) Refresh(ctx context.Context) (portfolio.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PassTimeout)
	defer cancel()

	seq := s.store.Begin()
	start := s.now()
	log := s.logger.WithFields(zap.Uint64("sequence", seq))

	in, err := s.load(ctx)
	if err != nil {
		s.store.Abandon(seq)
		s.metrics.ObservePass("error", s.now().Sub(start))
		log.Error("Failed to run aggregation pass", zap.Error(err))
		return portfolio.Snapshot{}, err
	}

	resolved := portfolio.ResolveAccounts(in.accounts, in.registry)
	q := portfolio.BuildQuery(resolved)

	var (
		data    market.Data
		history market.History
	)
	if !q.Empty() {
		data, history = s.fetchMarket(ctx, q)
	}

	snap := portfolio.Aggregate(in.accounts, in.registry, data, history)
	snap.Sequence = seq
	snap.GeneratedAt = s.now().UTC()

	elapsed := s.now().Sub(start)
	// market data fetched after the deadline is empty, not stale
	if err := ctx.Err(); err != nil {
		s.store.Abandon(seq)
		s.metrics.ObservePass("aborted", elapsed)
		log.Warn("Aborted aggregation pass, keeping previous snapshot", zap.Error(err))
		return portfolio.Snapshot{}, fmt.Errorf("%w: %v", ErrPassAborted, err)
	}
	if !s.store.Commit(snap) {
		s.metrics.PassDiscarded()
		s.metrics.ObservePass("discarded", elapsed)
		log.Warn("Discarded stale aggregation pass", zap.Uint64("latest", s.store.Dispatched()))
		return snap, ErrPassSuperseded
	}

	s.metrics.ObservePass("ok", elapsed)
	s.metrics.SetPortfolioTotal(snap.Stats.TotalBalance)
	log.Info("Committed portfolio snapshot",
		zap.Int("accounts", len(resolved)),
		zap.Int("wallets", len(snap.Wallets)),
		zap.Int("tokens", len(snap.Tokens)),
		zap.Int("series_points", len(snap.Series)),
		zap.Float64("total_usd", snap.Stats.TotalBalance),
		zap.Duration("elapsed", elapsed),
	)
	return snap, nil
}

// Trigger starts a pass in the background. It is a no-op once Wait has
// been called.
func (s *Service) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("Ignoring pass trigger during shutdown")
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		// errors are logged by Refresh
		_, _ = s.Refresh(context.Background())
	}()
}

// Wait stops accepting triggers and blocks until every triggered pass has
// finished.
func (s *Service) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

// Run refreshes immediately and then every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	_, _ = s.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping portfolio refresh loop")
			return
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}
