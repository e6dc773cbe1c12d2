package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one raw row from the exchange's ledger export. Missing
// values are empty strings, never a null sentinel; downstream formatting and
// set-membership checks rely on that. Entries are never mutated after
// parsing.
type LedgerEntry struct {
	TxID    string
	RefID   string
	Time    string // full exported timestamp, e.g. "2021-04-21 07:03:52"
	Date    string // calendar date portion of Time
	Clock   string // time-of-day portion of Time, fractional seconds removed
	Kind    string // deposit, withdrawal, trade, spend, receive, staking, earn, transfer
	Subtype string
	Asset   string // exchange-prefixed form, e.g. "XETH", "ZEUR", "ATOM.S"
	Amount  decimal.Decimal
	Fee     decimal.Decimal
	Balance string
}

// SameRow reports whether other is the same ledger row, distinguished by
// refid, txid, kind and timestamp.
func (e LedgerEntry) SameRow(other LedgerEntry) bool {
	return e.RefID == other.RefID &&
		e.TxID == other.TxID &&
		e.Kind == other.Kind &&
		e.Time == other.Time
}

// NormalizeAsset converts the exchange's asset spelling into the plain
// currency code: a single leading bank-style X or Z prefix is stripped
// ("XETH" -> "ETH", "ZEUR" -> "EUR"); otherwise a staking-share suffix is
// cut ("ATOM.S" -> "ATOM"). Prefix stripping wins when both could apply,
// matching the exchange's own precedence.
func NormalizeAsset(asset string) string {
	if asset == "" {
		return asset
	}
	if asset[0] == 'X' || asset[0] == 'Z' {
		return asset[1:]
	}
	if i := strings.IndexByte(asset, '.'); i >= 0 {
		return asset[:i]
	}
	return asset
}
