package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"solana-sniper-bot-go/internal/config"
	"solana-sniper-bot-go/internal/notify"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// degradedNoticeThreshold is how many consecutive total failures it takes
// before the user is told the chain-query service is degraded, and
// degradedNoticeInterval throttles how often that message repeats.
const (
	degradedNoticeThreshold = 3
	degradedNoticeInterval  = time.Minute
)

// QueryClient is the read-only chain-query surface the rest of the
// application depends on. Every method is fallible and latency-bearing;
// balances degrade to zero instead of surfacing transport errors, while the
// history methods return errors so callers can fall back to mock data.
type QueryClient interface {
	GetNativeBalance(ctx context.Context, address string) float64
	GetWrappedBalance(ctx context.Context, address string) float64
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error)
}

// Client is a Solana JSON-RPC client with a single-backup-retry policy: every
// query goes to the primary endpoint first and is retried once against the
// backup before giving up.
type Client struct {
	primary  *resty.Client
	backup   *resty.Client
	logger   *zap.Logger
	limiter  *rate.Limiter
	notifier notify.Notifier

	mu             sync.Mutex
	failures       int // consecutive total failures across both endpoints
	lastDegradedAt time.Time
}

// ensure Client implements the interface
var _ QueryClient = (*Client)(nil)

// NewClient creates a new chain-query client.
func NewClient(cfg *config.Solana, logger *zap.Logger, notifier notify.Notifier) *Client {
	logger.Info("Using Solana RPC endpoints",
		zap.String("primary", cfg.Endpoint),
		zap.String("backup", cfg.BackupEndpoint),
	)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		primary:  resty.New().SetBaseURL(cfg.Endpoint),
		backup:   resty.New().SetBaseURL(cfg.BackupEndpoint),
		logger:   logger,
		limiter:  limiter,
		notifier: notifier,
	}
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call executes one JSON-RPC request against a single endpoint.
func (c *Client) call(ctx context.Context, client *resty.Client, method string, params []any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var env rpcEnvelope
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&env).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s request failed with status %s", method, resp.Status())
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s returned RPC error %d: %s", method, env.Error.Code, env.Error.Message)
	}
	return env.Result, nil
}

// query runs a request with the primary/backup fallback. It returns an error
// only when both endpoints fail.
func (c *Client) query(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	result, err := c.call(ctx, c.primary, method, params)
	if err == nil {
		c.recordSuccess()
		return result, nil
	}
	c.logger.Warn("Primary RPC endpoint failed, retrying on backup",
		zap.String("method", method), zap.Error(err))

	result, backupErr := c.call(ctx, c.backup, method, params)
	if backupErr == nil {
		c.recordSuccess()
		return result, nil
	}
	c.recordFailure()
	return nil, fmt.Errorf("both endpoints failed: primary: %v; backup: %w", err, backupErr)
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

// recordFailure counts consecutive total failures and, past a threshold,
// tells the user the balance display is degraded. The notice is rate-limited
// so a defunct endpoint does not spam the presenter.
func (c *Client) recordFailure() {
	c.mu.Lock()
	c.failures++
	shouldNotify := c.failures >= degradedNoticeThreshold &&
		time.Since(c.lastDegradedAt) >= degradedNoticeInterval
	if shouldNotify {
		c.lastDegradedAt = time.Now()
	}
	c.mu.Unlock()

	if shouldNotify && c.notifier != nil {
		c.notifier.Notify(notify.Notification{
			Type:    notify.TypeWarning,
			Message: "Chain query service unavailable, balances may show as zero",
		})
	}
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

// GetNativeBalance fetches the SOL balance of an address. On any failure it
// returns 0; balance display must never crash or block the rest of the
// application on an unreliable public endpoint.
func (c *Client) GetNativeBalance(ctx context.Context, address string) float64 {
	raw, err := c.query(ctx, "getBalance", []any{address})
	if err != nil {
		c.logger.Error("Failed to get native balance", zap.String("address", address), zap.Error(err))
		return 0
	}

	var result balanceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Error("Failed to decode getBalance result", zap.Error(err))
		return 0
	}
	return float64(result.Value) / LamportsPerSOL
}

type tokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals int    `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// GetWrappedBalance fetches the wSOL balance of an address by enumerating its
// SPL token accounts and locating the wrapped-SOL mint. Same zero-on-failure
// contract as GetNativeBalance.
func (c *Client) GetWrappedBalance(ctx context.Context, address string) float64 {
	raw, err := c.query(ctx, "getTokenAccountsByOwner", []any{
		address,
		map[string]string{"programId": TokenProgramID},
		map[string]string{"encoding": "jsonParsed"},
	})
	if err != nil {
		c.logger.Error("Failed to get wrapped balance", zap.String("address", address), zap.Error(err))
		return 0
	}

	var result tokenAccountsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Error("Failed to decode token accounts result", zap.Error(err))
		return 0
	}

	for _, acct := range result.Value {
		info := acct.Account.Data.Parsed.Info
		if info.Mint != WSOLMint {
			continue
		}
		amount, err := strconv.ParseFloat(info.TokenAmount.Amount, 64)
		if err != nil {
			c.logger.Error("Failed to parse token amount", zap.String("amount", info.TokenAmount.Amount), zap.Error(err))
			return 0
		}
		divisor := 1.0
		for i := 0; i < info.TokenAmount.Decimals; i++ {
			divisor *= 10
		}
		return amount / divisor
	}

	// No wSOL account means a zero balance, not an error.
	return 0
}

// SignatureInfo is one entry of an address's transaction history.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"` // epoch seconds, nil when unknown
	Err       any    `json:"err"`       // non-nil when the transaction failed
}

// Failed reports whether the transaction behind the signature failed on chain.
func (s *SignatureInfo) Failed() bool {
	return s.Err != nil
}

// GetSignaturesForAddress fetches the most recent transaction signatures for
// an address, newest first. Unlike the balance methods it returns the error;
// history consumers have a mock fallback and need to know when to use it.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	raw, err := c.query(ctx, "getSignaturesForAddress", []any{
		address,
		map[string]int{"limit": limit},
	})
	if err != nil {
		return nil, err
	}

	var sigs []SignatureInfo
	if err := json.Unmarshal(raw, &sigs); err != nil {
		return nil, fmt.Errorf("failed to decode signatures result: %w", err)
	}
	return sigs, nil
}

// TransactionMeta is the settlement metadata of a confirmed transaction.
type TransactionMeta struct {
	Err          any      `json:"err"`
	Fee          uint64   `json:"fee"`
	PreBalances  []uint64 `json:"preBalances"`
	PostBalances []uint64 `json:"postBalances"`
}

// TransactionDetail is the balance-level view of one confirmed transaction.
type TransactionDetail struct {
	Slot      uint64          `json:"slot"`
	BlockTime *int64          `json:"blockTime"`
	Meta      TransactionMeta `json:"meta"`
}

// BalanceDelta is the SOL change of the fee payer account, fees included.
func (t *TransactionDetail) BalanceDelta() float64 {
	if len(t.Meta.PreBalances) == 0 || len(t.Meta.PostBalances) == 0 {
		return 0
	}
	return (float64(t.Meta.PostBalances[0]) - float64(t.Meta.PreBalances[0])) / LamportsPerSOL
}

// GetTransaction fetches one transaction by signature. A nil detail with a nil
// error means the node no longer has the transaction.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error) {
	raw, err := c.query(ctx, "getTransaction", []any{
		signature,
		map[string]any{"encoding": "jsonParsed", "maxSupportedTransactionVersion": 0},
	})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}

	var detail TransactionDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode transaction result: %w", err)
	}
	return &detail, nil
}
