package market

import (
	"noblechain/models"

	"github.com/shopspring/decimal"
)

type listing struct {
	symbol string
	name   string
	price  string
	change float64
	color  string
}

// catalogue is the seeded market, in display order
var catalogue = []listing{
	{"BTC", "Bitcoin", "45000", 1.2, "#f7931a"},
	{"ETH", "Ethereum", "3000", -0.4, "#627eea"},
	{"USDT", "Tether", "1", 0.0, "#26a17b"},
	{"LTC", "Litecoin", "150", 0.5, "#b8b8b8"},
	{"ADA", "Cardano", "0.45", 2.1, "#0033ad"},
	{"SOL", "Solana", "100", 3.4, "#00FFA3"},
	{"DOT", "Polkadot", "6.5", -1.0, "#e6007a"},
	{"XRP", "XRP", "0.6", -0.2, "#346aa9"},
	{"DOGE", "Dogecoin", "0.12", 5.6, "#ba9f33"},
	{"BNB", "Binance Coin", "350", 0.8, "#f3ba2f"},
	{"SHIB", "Shiba Inu", "0.00001", 12.0, "#f97316"},
	{"AVAX", "Avalanche", "25", -0.6, "#e84142"},
	{"MATIC", "Polygon", "1.2", 0.9, "#8247e5"},
	{"LINK", "Chainlink", "7.5", -0.3, "#2a5ada"},
	{"UNI", "Uniswap", "6.0", 1.8, "#ff3e8d"},
	{"AAPL", "Apple Inc.", "170", 0.4, "#666666"},
	{"TSLA", "Tesla Inc.", "230", -2.2, "#cc0000"},
	{"AMZN", "Amazon.com", "130", 0.7, "#ff9900"},
}

func seedAssets() ([]string, map[string]*models.MarketAsset) {
	order := make([]string, 0, len(catalogue))
	assets := make(map[string]*models.MarketAsset, len(catalogue))
	for _, l := range catalogue {
		order = append(order, l.symbol)
		assets[l.symbol] = &models.MarketAsset{
			Symbol: l.symbol,
			Name:   l.name,
			Price:  decimal.RequireFromString(l.price),
			Change: l.change,
			Color:  l.color,
			Logo:   "resources/icons/" + l.symbol + ".svg",
		}
	}
	return order, assets
}
