package models

import "github.com/shopspring/decimal"

// MarketAsset is one tradable entry of the market catalogue
type MarketAsset struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Change float64         `json:"change"`
	Color  string          `json:"color"`
	Logo   string          `json:"logo,omitempty"`
}
