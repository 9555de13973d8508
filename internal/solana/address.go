package solana

import "github.com/mr-tron/base58"

const (
	// WSOLMint is the mint address of wrapped SOL.
	WSOLMint = "So11111111111111111111111111111111111111112"

	// TokenProgramID is the SPL token program; token-holding accounts are
	// enumerated under this namespace.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	// LamportsPerSOL converts raw balance units to SOL.
	LamportsPerSOL = 1_000_000_000
)

// IsValidAddress reports whether the string is a well-formed Solana public
// key: a base58 encoding of exactly 32 bytes, which lands between 32 and 44
// characters.
func IsValidAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded, err := base58.Decode(addr)
	return err == nil && len(decoded) == 32
}

// FormatAddress shortens a public key for display: first 4 and last 4
// characters.
func FormatAddress(addr string) string {
	if addr == "" {
		return "No key"
	}
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
