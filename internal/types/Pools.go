/*

This is a custom type for pool snapshots which contains all the market state needed for
scoring pools and evaluating positions. A snapshot is immutable: it is produced fresh by
the data layer every cycle and superseded by the next one, never mutated in place.

*/

package types

import "time"

type PoolAddress string

// RiskTier classifies a token's security posture as reported by the data layer.
type RiskTier string

const (
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

// TokenSecurity holds the per-token security sub-record of a snapshot.
type TokenSecurity struct {
	Tier            RiskTier `json:"tier"`
	MintAuthority   bool     `json:"mint_authority"`   // mint authority still active
	FreezeAuthority bool     `json:"freeze_authority"` // freeze authority still active
}

type TokenInfo struct {
	Symbol   string        `json:"symbol"` // e.g., "SOL"
	Mint     string        `json:"mint"`   // token mint address
	Security TokenSecurity `json:"security"`
}

// HolderInfo holds the holder-distribution sub-record of a snapshot.
type HolderInfo struct {
	TopConcentrationPct float64 `json:"top_concentration_pct"` // % of supply held by top holders
}

// PricePoint holds one historical price observation, used for realized
// volatility when the data layer provides a price series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

type PoolSnapshot struct {
	Address PoolAddress `json:"address"`
	Name    string      `json:"name"` // e.g., "SOL-USDC"

	BaseToken  TokenInfo `json:"base_token"`
	QuoteToken TokenInfo `json:"quote_token"`

	TvlUSD       float64 `json:"tvl_usd"`
	YieldRatePct float64 `json:"yield_rate_pct"` // annualized, 250 means 250% APR
	MarketCapUSD float64 `json:"market_cap_usd"` // base token market cap

	Fees24hUSD float64 `json:"fees_24h_usd"`
	Fees30mUSD float64 `json:"fees_30m_usd"`

	Volume5mUSD  float64 `json:"volume_5m_usd"`
	Volume1hUSD  float64 `json:"volume_1h_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`

	PriceUSD          float64 `json:"price_usd"`
	PriceChange5mPct  float64 `json:"price_change_5m_pct"`
	PriceChange1hPct  float64 `json:"price_change_1h_pct"`
	PriceChange6hPct  float64 `json:"price_change_6h_pct"`
	PriceChange24hPct float64 `json:"price_change_24h_pct"`

	Buys24h  int `json:"buys_24h"`
	Sells24h int `json:"sells_24h"`
	Buys1h   int `json:"buys_1h"`
	Sells1h  int `json:"sells_1h"`

	Holders     HolderInfo `json:"holders"`
	Blacklisted bool       `json:"blacklisted"`

	// Optional hourly price series. When present, realized volatility is
	// computed from it instead of the 24h price change proxy.
	PriceHistory []PricePoint `json:"price_history,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Txns24h is the total 24h transaction count.
func (p PoolSnapshot) Txns24h() int {
	return p.Buys24h + p.Sells24h
}

// BuyRatio24h returns the 24h buy share of total transactions in [0,1]
// and false when there were no transactions at all.
func (p PoolSnapshot) BuyRatio24h() (float64, bool) {
	total := p.Buys24h + p.Sells24h
	if total == 0 {
		return 0, false
	}
	return float64(p.Buys24h) / float64(total), true
}

// SharesToken reports whether this pool has a token in common with the other pool.
// Mints are compared when available, falling back to symbols.
func (p PoolSnapshot) SharesToken(other PoolSnapshot) bool {
	return tokenMatches(p.BaseToken, other.BaseToken) ||
		tokenMatches(p.BaseToken, other.QuoteToken) ||
		tokenMatches(p.QuoteToken, other.BaseToken) ||
		tokenMatches(p.QuoteToken, other.QuoteToken)
}

func tokenMatches(a, b TokenInfo) bool {
	if a.Mint != "" && b.Mint != "" {
		return a.Mint == b.Mint
	}
	return a.Symbol != "" && a.Symbol == b.Symbol
}
