package server

import (
	"net/http"

	_ "portfoliotracker/docs"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func registerRoutes(e *echo.Echo, handler *HandlerAdapter, metricsHandler http.Handler) {
	e.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	portfolio := v1.Group("/portfolio")
	portfolio.GET("", handler.GetPortfolio)
	portfolio.GET("/wallets", handler.GetWallets)
	portfolio.GET("/tokens", handler.GetTokens)
	portfolio.GET("/history", handler.GetHistory)
	portfolio.GET("/stats", handler.GetStats)
	portfolio.POST("/refresh", handler.RefreshPortfolio)

	v1.GET("/currencies", handler.GetCurrencies)

	v1.GET("/accounts", handler.GetAccounts)
	v1.PUT("/accounts", handler.ImportAccounts)

	wallets := v1.Group("/wallets")
	wallets.GET("/custom", handler.GetCustomWallets)
	wallets.POST("/external", handler.AddExternalWallet)
	wallets.POST("/custom", handler.AddCustomWallet)
	wallets.POST("/sync", handler.SyncWallets)
	wallets.PATCH("/:walletID", handler.RenameWallet)
	wallets.DELETE("/:walletID", handler.DeleteWallet)

	v1.GET("/nfts", handler.GetNFTs)
}
