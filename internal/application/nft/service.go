package nft

import (
	"context"
	"strings"

	loggeradapter "portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/nft"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultChain = "ethereum"

// Service lists collectibles for an address, caching results per chain and
// address. Lookups never fail; a provider error yields an empty list.
type Service struct {
	provider nft.Provider
	accounts account.Repository
	cache    domain.Cache[string, []nft.Nft]
	logger   *loggeradapter.Logger
}

func NewService(provider nft.Provider, accounts account.Repository, cache domain.Cache[string, []nft.Nft], logger *loggeradapter.Logger) *Service {
	if logger == nil {
		logger = loggeradapter.NewNopLogger()
	}
	return &Service{provider: provider, accounts: accounts, cache: cache, logger: logger}
}

// List returns the NFTs held by address on chain. An empty address falls
// back to the first ethereum account.
func (s *Service) List(ctx context.Context, chain, address string) []nft.Nft {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if chain == "" {
		chain = DefaultChain
	}

	address = strings.TrimSpace(address)
	if address == "" {
		address = s.defaultAddress(ctx)
		if address == "" {
			return []nft.Nft{}
		}
	}

	key := chain + ":" + strings.ToLower(address)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached
	}

	nfts, err := s.provider.ListNFTs(ctx, chain, address)
	if err != nil {
		s.logger.Warn("Failed to fetch NFTs",
			zap.String("chain", chain),
			zap.String("address", address),
			zap.Error(err),
		)
		return []nft.Nft{}
	}
	if nfts == nil {
		nfts = []nft.Nft{}
	}

	s.cache.Set(ctx, key, nfts)
	return nfts
}

func (s *Service) defaultAddress(ctx context.Context) string {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		s.logger.Warn("Failed to list accounts for NFT lookup", zap.Error(err))
		return ""
	}
	first, ok := lo.Find(accounts, func(a *account.Account) bool {
		return a.CurrencyID == DefaultChain && a.Address != ""
	})
	if !ok {
		return ""
	}
	return first.Address
}
