package models

// Side is the direction of a simulated trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Status is the lifecycle state of an order. Orders are created as pending
// and move exactly once to confirmed or failed; both are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// TokenType is the denomination the order is priced in.
type TokenType string

const (
	TokenSOL  TokenType = "sol"
	TokenWSOL TokenType = "wsol"
)

// Order is one simulated trade event. The JSON field names match the wire
// shape the ledger has always persisted, so existing ledgers read back cleanly.
type Order struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TokenName    string    `json:"tokenName"`
	TokenAddress string    `json:"tokenAddress"`
	Side         Side      `json:"type"`
	Amount       int64     `json:"amount"`
	Price        float64   `json:"price"`
	Profit       *float64  `json:"profit,omitempty"`
	Status       Status    `json:"status"`
	Timestamp    int64     `json:"timestamp"` // epoch milliseconds
	ExternalRef  string    `json:"txId"`      // always prefixed "simulated-", never a real signature
	TokenType    TokenType `json:"tokenType,omitempty"`
}

// Terminal reports whether the order has reached a final status.
func (o *Order) Terminal() bool {
	return o.Status == StatusConfirmed || o.Status == StatusFailed
}
