package market

import (
	"testing"
	"time"

	"solana-sniper-bot-go/internal/solana"

	"github.com/stretchr/testify/assert"
)

func TestTraderMetricsFor_Deterministic(t *testing.T) {
	first := TraderMetricsFor("trader-address-1")
	second := TraderMetricsFor("trader-address-1")
	assert.Equal(t, first, second)

	other := TraderMetricsFor("trader-address-2")
	assert.NotEqual(t, first, other)
}

func TestTraderMetricsFor_Ranges(t *testing.T) {
	m := TraderMetricsFor("trader-address-1")

	assert.Equal(t, "trader-address-1", m.Address)
	assert.GreaterOrEqual(t, m.ProfitValue, -500.0)
	assert.Less(t, m.ProfitValue, 1500.0)
	assert.GreaterOrEqual(t, m.WinRateValue, 40.0)
	assert.Less(t, m.WinRateValue, 90.0)
	assert.GreaterOrEqual(t, m.Trades, 10)
	assert.Contains(t, platforms, m.Platform)
	assert.Contains(t, m.Profit, "SOL")
}

func TestTokenMetricsFor_Deterministic(t *testing.T) {
	first := TokenMetricsFor("mint-address-1")
	second := TokenMetricsFor("mint-address-1")
	assert.Equal(t, first, second)

	assert.Equal(t, "mint-address-1", first.Address)
	assert.GreaterOrEqual(t, first.PriceValue, 0.0)
	assert.Less(t, first.PriceValue, 0.01)
	assert.GreaterOrEqual(t, first.BondingCurveProgress, 0.0)
	assert.Less(t, first.BondingCurveProgress, 100.0)
}

func TestTraderMetricsFromActivity(t *testing.T) {
	sigs := []solana.SignatureInfo{
		{Signature: "sig-1"},
		{Signature: "sig-2", Err: map[string]any{"InstructionError": "Custom"}},
		{Signature: "sig-3"},
		{Signature: "sig-4"},
	}

	row := TraderMetricsFromActivity("trader-address-1", sigs, []float64{0.5, -0.2})

	assert.Equal(t, 4, row.Trades)
	assert.InDelta(t, 75.0, row.WinRateValue, 1e-9)
	assert.Equal(t, "75.0%", row.WinRate)
	assert.InDelta(t, 0.3, row.ProfitValue, 1e-9)
	assert.Equal(t, "+0.30 SOL", row.Profit)
	assert.Equal(t, "1 SOL", row.TradeVolume)

	// Figures the chain cannot answer keep their seeded values.
	seeded := TraderMetricsFor("trader-address-1")
	assert.Equal(t, seeded.Followers, row.Followers)
	assert.Equal(t, seeded.Platform, row.Platform)
}

func TestTraderMetricsFromActivity_EmptyHistoryFallsBack(t *testing.T) {
	row := TraderMetricsFromActivity("trader-address-1", nil, nil)
	assert.Equal(t, TraderMetricsFor("trader-address-1"), row)
}

func TestTokenMetricsFromActivity(t *testing.T) {
	recent := time.Now().Add(-time.Hour).Unix()
	stale := time.Now().Add(-48 * time.Hour).Unix()
	sigs := []solana.SignatureInfo{
		{Signature: "sig-1", BlockTime: &recent},
		{Signature: "sig-2", BlockTime: &stale},
		{Signature: "sig-3"}, // unknown block time does not count
	}

	row := TokenMetricsFromActivity("mint-address-1", sigs)
	assert.Equal(t, 1, row.Txns24h)

	seeded := TokenMetricsFor("mint-address-1")
	assert.Equal(t, seeded.PriceValue, row.PriceValue)
	assert.Equal(t, seeded.LiquidityValue, row.LiquidityValue)
}
