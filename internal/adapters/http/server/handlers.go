package server

import (
	"errors"
	"net/http"
	"time"

	"portfoliotracker/internal/adapters/logger"
	portfolioservice "portfoliotracker/internal/application/portfolio"
	"portfoliotracker/internal/application/wallet"
	"portfoliotracker/internal/domain/account"

	httpports "portfoliotracker/internal/ports/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HandlerAdapter adapts application services to HTTP handlers
type HandlerAdapter struct {
	portfolioService httpports.PortfolioService
	walletService    httpports.WalletService
	nftService       httpports.NFTService
	logger           *logger.Logger
	version          string
}

func NewHandlerAdapter(
	portfolioService httpports.PortfolioService,
	walletService httpports.WalletService,
	nftService httpports.NFTService,
	logger *logger.Logger,
	version string,
) *HandlerAdapter {
	return &HandlerAdapter{
		portfolioService: portfolioService,
		walletService:    walletService,
		nftService:       nftService,
		logger:           logger,
		version:          version,
	}
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, httpports.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolioservice.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	case errors.Is(err, account.ErrInvalidAccount),
		errors.Is(err, account.ErrInvalidWallet),
		errors.Is(err, wallet.ErrUnknownCurrency):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, account.ErrWalletNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *HandlerAdapter) fail(c echo.Context, msg string, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return errorJSON(c, status, err.Error())
}

func (h *HandlerAdapter) GetPortfolio(c echo.Context) error {
	snap, err := h.portfolioService.Snapshot()
	if err != nil {
		return h.fail(c, "Failed to get portfolio", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPSnapshot(snap))
}

func (h *HandlerAdapter) GetWallets(c echo.Context) error {
	snap, err := h.portfolioService.Snapshot()
	if err != nil {
		return h.fail(c, "Failed to get wallets", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPWallets(snap.Wallets))
}

func (h *HandlerAdapter) GetTokens(c echo.Context) error {
	snap, err := h.portfolioService.Snapshot()
	if err != nil {
		return h.fail(c, "Failed to get tokens", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPTokens(snap.Tokens))
}

func (h *HandlerAdapter) GetHistory(c echo.Context) error {
	snap, err := h.portfolioService.Snapshot()
	if err != nil {
		return h.fail(c, "Failed to get history", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPHistory(snap.Series))
}

func (h *HandlerAdapter) GetStats(c echo.Context) error {
	snap, err := h.portfolioService.Snapshot()
	if err != nil {
		return h.fail(c, "Failed to get stats", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPStats(snap.Stats))
}

// RefreshPortfolio handles POST /api/v1/portfolio/refresh. A pass overtaken
// by a newer one, or one that ran out of time, answers with the latest
// committed snapshot.
func (h *HandlerAdapter) RefreshPortfolio(c echo.Context) error {
	snap, err := h.portfolioService.Refresh(c.Request().Context())
	if errors.Is(err, portfolioservice.ErrPassSuperseded) || errors.Is(err, portfolioservice.ErrPassAborted) {
		snap, err = h.portfolioService.Snapshot()
	}
	if err != nil {
		return h.fail(c, "Failed to refresh portfolio", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPSnapshot(snap))
}

func (h *HandlerAdapter) GetCurrencies(c echo.Context) error {
	cs, err := h.walletService.ListCurrencies(c.Request().Context())
	if err != nil {
		return h.fail(c, "Failed to list currencies", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPCurrencies(cs))
}

func (h *HandlerAdapter) GetAccounts(c echo.Context) error {
	accounts, err := h.walletService.ListAccounts(c.Request().Context())
	if err != nil {
		return h.fail(c, "Failed to list accounts", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPAccounts(accounts))
}

// ImportAccounts handles PUT /api/v1/accounts
func (h *HandlerAdapter) ImportAccounts(c echo.Context) error {
	var req httpports.ImportAccountsRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	accounts, err := httpports.ToDomainAccounts(req.Accounts)
	if err != nil {
		return h.fail(c, "Account import rejected", err)
	}
	if err := h.walletService.ImportAccounts(c.Request().Context(), accounts); err != nil {
		return h.fail(c, "Account import failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *HandlerAdapter) GetCustomWallets(c echo.Context) error {
	ws, err := h.walletService.ListCustomWallets(c.Request().Context())
	if err != nil {
		return h.fail(c, "Failed to list custom wallets", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPCustomWallets(ws))
}

// AddExternalWallet handles POST /api/v1/wallets/external
func (h *HandlerAdapter) AddExternalWallet(c echo.Context) error {
	var req httpports.AddExternalWalletRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Address == "" || req.CurrencyID == "" {
		return errorJSON(c, http.StatusBadRequest, "address and currency_id are required")
	}

	a, err := h.walletService.AddExternalWallet(c.Request().Context(), req.Name, req.Address, req.CurrencyID)
	if err != nil {
		return h.fail(c, "External wallet creation failed", err)
	}
	return c.JSON(http.StatusCreated, httpports.ToHTTPAccount(a))
}

// AddCustomWallet handles POST /api/v1/wallets/custom
func (h *HandlerAdapter) AddCustomWallet(c echo.Context) error {
	var req httpports.AddCustomWalletRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	w, err := h.walletService.AddCustomWallet(c.Request().Context(), req.Name, req.Amounts)
	if err != nil {
		return h.fail(c, "Custom wallet creation failed", err)
	}
	return c.JSON(http.StatusCreated, httpports.ToHTTPCustomWallet(w))
}

func (h *HandlerAdapter) SyncWallets(c echo.Context) error {
	res, err := h.walletService.SyncBalances(c.Request().Context())
	if err != nil {
		return h.fail(c, "Balance sync failed", err)
	}
	return c.JSON(http.StatusOK, httpports.ToHTTPSyncResult(res))
}

// RenameWallet handles PATCH /api/v1/wallets/:walletID
func (h *HandlerAdapter) RenameWallet(c echo.Context) error {
	id := c.Param("walletID")

	var req httpports.RenameWalletRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	if err := h.walletService.RenameWallet(c.Request().Context(), id, req.Name); err != nil {
		return h.fail(c, "Wallet rename failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteWallet handles DELETE /api/v1/wallets/:walletID
func (h *HandlerAdapter) DeleteWallet(c echo.Context) error {
	if err := h.walletService.DeleteWallet(c.Request().Context(), c.Param("walletID")); err != nil {
		return h.fail(c, "Wallet deletion failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HandlerAdapter) GetNFTs(c echo.Context) error {
	nfts := h.nftService.List(c.Request().Context(), c.QueryParam("chain"), c.QueryParam("address"))
	return c.JSON(http.StatusOK, httpports.ToHTTPNfts(nfts))
}

func (h *HandlerAdapter) HealthCheck(c echo.Context) error {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "portfolio-tracker",
		"version":   h.version,
	}
	if _, err := h.portfolioService.Snapshot(); err != nil {
		status["portfolio"] = "warming up"
	} else {
		status["portfolio"] = "ready"
	}
	return c.JSON(http.StatusOK, status)
}
