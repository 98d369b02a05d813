// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "produces": ["application/json"],
  "consumes": ["application/json"],
  "paths": {
    "/portfolio": {"get": {"summary": "Latest portfolio snapshot", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}, "503": {"description": "No snapshot yet"}}}},
    "/portfolio/wallets": {"get": {"summary": "Wallet-grouped holdings", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}, "503": {"description": "No snapshot yet"}}}},
    "/portfolio/tokens": {"get": {"summary": "Holdings aggregated by currency", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}, "503": {"description": "No snapshot yet"}}}},
    "/portfolio/history": {"get": {"summary": "Hourly portfolio value series", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}, "503": {"description": "No snapshot yet"}}}},
    "/portfolio/stats": {"get": {"summary": "Total balance and profit", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}, "503": {"description": "No snapshot yet"}}}},
    "/portfolio/refresh": {"post": {"summary": "Run an aggregation pass now", "tags": ["portfolio"], "responses": {"200": {"description": "OK"}}}},
    "/currencies": {"get": {"summary": "Currency registry", "tags": ["currencies"], "responses": {"200": {"description": "OK"}}}},
    "/accounts": {
      "get": {"summary": "All accounts", "tags": ["accounts"], "responses": {"200": {"description": "OK"}}},
      "put": {"summary": "Replace imported ledger accounts", "tags": ["accounts"], "responses": {"204": {"description": "Imported"}, "400": {"description": "Invalid account"}}}
    },
    "/wallets/custom": {
      "get": {"summary": "Custom wallets", "tags": ["wallets"], "responses": {"200": {"description": "OK"}}},
      "post": {"summary": "Add a custom wallet", "tags": ["wallets"], "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid wallet"}}}
    },
    "/wallets/external": {"post": {"summary": "Track an address", "tags": ["wallets"], "responses": {"201": {"description": "Created"}, "409": {"description": "Address already tracked"}}}},
    "/wallets/sync": {"post": {"summary": "Refresh on-chain balances", "tags": ["wallets"], "responses": {"200": {"description": "OK"}}}},
    "/wallets/{walletID}": {
      "patch": {"summary": "Rename a wallet", "tags": ["wallets"], "parameters": [{"name": "walletID", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Renamed"}, "404": {"description": "Not found"}}},
      "delete": {"summary": "Delete a wallet", "tags": ["wallets"], "parameters": [{"name": "walletID", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}}
    },
    "/nfts": {"get": {"summary": "NFTs held by an address", "tags": ["nfts"], "parameters": [{"name": "chain", "in": "query", "type": "string"}, {"name": "address", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}}
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Portfolio Tracker API",
	Description:      "Aggregated crypto portfolio valuation across wallets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
