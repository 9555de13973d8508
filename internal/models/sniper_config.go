package models

import "strconv"

// NotificationPrefs holds the user's delivery preferences. They are cosmetic;
// the notifier decides how a message is actually presented.
type NotificationPrefs struct {
	Telegram bool `json:"telegram"`
	Email    bool `json:"email"`
}

// SniperConfig is a user's intent to simulate trading a token. Amounts and
// thresholds are kept as the decimal strings the user typed; the accessor
// methods apply the parsing rules the engine relies on.
type SniperConfig struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	TokenAddress  string            `json:"tokenAddress"`
	BuyAmount     string            `json:"buyAmount"`
	SellTarget    string            `json:"sellTarget"`  // percent
	StopLoss      string            `json:"stopLoss"`    // percent
	MaxSlippage   string            `json:"maxSlippage"` // percent
	TokenType     TokenType         `json:"tokenType"`
	AutoApprove   bool              `json:"autoApprove"`
	Notifications NotificationPrefs `json:"notifications"`
}

// BuyAmountValue parses the configured buy amount, falling back to 0.1 when
// the field is empty or unparseable.
func (c *SniperConfig) BuyAmountValue() float64 {
	v, err := strconv.ParseFloat(c.BuyAmount, 64)
	if err != nil || v <= 0 {
		return 0.1
	}
	return v
}

// SellTargetValue returns the take-profit threshold in percent, or 0 when the
// field is empty or unparseable.
func (c *SniperConfig) SellTargetValue() float64 {
	return parsePercent(c.SellTarget)
}

// StopLossValue returns the stop-loss threshold in percent, or 0 when the
// field is empty or unparseable.
func (c *SniperConfig) StopLossValue() float64 {
	return parsePercent(c.StopLoss)
}

// Denomination returns the token type, defaulting to SOL for configs created
// before the field existed.
func (c *SniperConfig) Denomination() TokenType {
	if c.TokenType == "" {
		return TokenSOL
	}
	return c.TokenType
}

// DisplayName returns the configured name or a placeholder.
func (c *SniperConfig) DisplayName() string {
	if c.Name == "" {
		return "Unknown Token"
	}
	return c.Name
}

func parsePercent(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
