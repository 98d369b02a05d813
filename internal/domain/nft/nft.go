package nft

import (
	"context"
	"time"
)

type Nft struct {
	Identifier    string
	Collection    string
	Contract      string
	TokenStandard string
	Name          string
	Description   string
	ImageURL      string
	MetadataURL   string
	OpenSeaURL    string
	UpdatedAt     time.Time
	IsDisabled    bool
	IsNSFW        bool
}

type Provider interface {
	ListNFTs(ctx context.Context, chain string, address string) ([]Nft, error)
}
