package market

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"solana-sniper-bot-go/internal/solana"
)

// Mock analytics shown when the chain-query network cannot serve real data.
// Every figure is drawn from a PRNG seeded by a hash of the address, so the
// same address always renders the same numbers, across processes and ports.

var platforms = []string{"raydium", "jupiter", "orca", "serum", "pumpfun"}

// TraderMetrics is a display row for a followed trader.
type TraderMetrics struct {
	Address      string  `json:"address"`
	Profit       string  `json:"profit"`
	ProfitValue  float64 `json:"profitValue"`
	WinRate      string  `json:"winRate"`
	WinRateValue float64 `json:"winRateValue"`
	Followers    int     `json:"followers"`
	Trades       int     `json:"trades"`
	TradeVolume  string  `json:"tradeVolume"`
	Platform     string  `json:"platform"`
}

// TokenMetrics is a display row for a watched token.
type TokenMetrics struct {
	Address              string  `json:"address"`
	Price                string  `json:"price"`
	PriceValue           float64 `json:"priceValue"`
	MarketCap            string  `json:"marketCap"`
	MarketCapValue       float64 `json:"marketCapValue"`
	Volume24h            string  `json:"volume24h"`
	Volume24hValue       float64 `json:"volume24hValue"`
	BondingCurveProgress float64 `json:"bondingCurveProgress"`
	Liquidity            string  `json:"liquidity"`
	LiquidityValue       float64 `json:"liquidityValue"`
	Txns24h              int     `json:"txns24h"`
}

func seededRand(address string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(address))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// TraderMetricsFor fabricates consistent metrics for a trader address.
func TraderMetricsFor(address string) TraderMetrics {
	rng := seededRand(address)

	profit := rng.Float64()*2000 - 500 // SOL, skewed positive
	winRate := 40 + rng.Float64()*50   // percent
	volume := rng.Float64() * 500_000

	profitLabel := fmt.Sprintf("%+.2f SOL", profit)

	return TraderMetrics{
		Address:      address,
		Profit:       profitLabel,
		ProfitValue:  profit,
		WinRate:      fmt.Sprintf("%.1f%%", winRate),
		WinRateValue: winRate,
		Followers:    rng.Intn(50_000),
		Trades:       rng.Intn(5_000) + 10,
		TradeVolume:  fmt.Sprintf("%.0f SOL", volume),
		Platform:     platforms[rng.Intn(len(platforms))],
	}
}

// TokenMetricsFor fabricates consistent metrics for a token mint address.
func TokenMetricsFor(address string) TokenMetrics {
	rng := seededRand(address)

	price := rng.Float64() * 0.01
	marketCap := rng.Float64() * 10_000_000
	volume := rng.Float64() * 1_000_000
	liquidity := rng.Float64() * 500_000
	progress := rng.Float64() * 100

	return TokenMetrics{
		Address:              address,
		Price:                fmt.Sprintf("%.6f SOL", price),
		PriceValue:           price,
		MarketCap:            fmt.Sprintf("$%.0f", marketCap),
		MarketCapValue:       marketCap,
		Volume24h:            fmt.Sprintf("$%.0f", volume),
		Volume24hValue:       volume,
		BondingCurveProgress: progress,
		Liquidity:            fmt.Sprintf("$%.0f", liquidity),
		LiquidityValue:       liquidity,
		Txns24h:              rng.Intn(2_000),
	}
}

// TraderMetricsFromActivity builds a display row from live chain history.
// Trade count and win rate come from the signatures, profit and volume from
// the sampled balance deltas; figures the chain cannot answer (followers,
// platform) keep their seeded values so the row stays stable per address.
func TraderMetricsFromActivity(address string, sigs []solana.SignatureInfo, deltas []float64) TraderMetrics {
	row := TraderMetricsFor(address)
	if len(sigs) == 0 {
		return row
	}

	succeeded := 0
	for i := range sigs {
		if !sigs[i].Failed() {
			succeeded++
		}
	}
	winRate := float64(succeeded) / float64(len(sigs)) * 100

	row.Trades = len(sigs)
	row.WinRate = fmt.Sprintf("%.1f%%", winRate)
	row.WinRateValue = winRate

	if len(deltas) > 0 {
		var profit, volume float64
		for _, d := range deltas {
			profit += d
			volume += math.Abs(d)
		}
		row.Profit = fmt.Sprintf("%+.2f SOL", profit)
		row.ProfitValue = profit
		row.TradeVolume = fmt.Sprintf("%.0f SOL", volume)
	}
	return row
}

// TokenMetricsFromActivity overlays live 24h activity on the seeded row.
// Price, cap and liquidity stay seeded; the chain-query interface has no
// market-data method to answer them.
func TokenMetricsFromActivity(address string, sigs []solana.SignatureInfo) TokenMetrics {
	row := TokenMetricsFor(address)
	if len(sigs) == 0 {
		return row
	}

	cutoff := time.Now().Add(-24 * time.Hour).Unix()
	recent := 0
	for i := range sigs {
		if sigs[i].BlockTime != nil && *sigs[i].BlockTime >= cutoff {
			recent++
		}
	}
	row.Txns24h = recent
	return row
}
