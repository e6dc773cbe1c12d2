// Package rates supplies historical asset quotes for valuing crypto
// movements in the configured fiat currency.
package rates

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable indicates the backing data holds no quote for the
// requested asset and day. Callers treat it as a hard failure: when a
// provider is configured, the engine never substitutes a guess.
var ErrRateUnavailable = errors.New("rate unavailable")

// Provider returns the fiat price of one unit of asset on the given
// calendar day. Lookups are by date, never by exact timestamp. The asset is
// the normalized currency code ("ETH", not "XETH").
type Provider interface {
	GetRate(ctx context.Context, asset string, day time.Time) (decimal.Decimal, error)
}

// Quote is one (asset, day) price point, as moved between a provider export
// and the local store.
type Quote struct {
	Day   string // 2006-01-02
	Asset string // normalized currency code
	Rate  decimal.Decimal
}

// dayKey is the canonical date format quotes are indexed by.
const dayKey = "2006-01-02"
