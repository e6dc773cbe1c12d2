// Package classify maps a transaction group to the kind handler that knows
// how to derive its accounting fields.
package classify

import "github.com/Veraticus/ledgerflow/internal/model"

// Handler identifies which kind handler a group dispatches to.
type Handler int

const (
	// Unrecognized is the sink for every (provenance, kind-set) combination
	// the table below does not name. It is a first-class outcome, not an
	// error: such groups are logged and produce no output records.
	Unrecognized Handler = iota
	// Deposit handles fiat and crypto deposits.
	Deposit
	// Withdrawal handles fiat and crypto withdrawals grouped by the provider.
	Withdrawal
	// FiatWithdrawal handles singleton withdrawal entries, which are always
	// fiat movements.
	FiatWithdrawal
	// Trade handles fiat/crypto trade pairs, including spend/receive pairs.
	Trade
	// Staking handles staking rewards and earn payouts.
	Staking
	// TransferFilter inspects transfer-flavored groups: internal staking
	// rebalances are dropped, everything else is unrecognized.
	TransferFilter
)

// String returns a short name for logs.
func (h Handler) String() string {
	switch h {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	case FiatWithdrawal:
		return "fiat-withdrawal"
	case Trade:
		return "trade"
	case Staking:
		return "staking"
	case TransferFilter:
		return "transfer-filter"
	default:
		return "unrecognized"
	}
}

type ruleKey struct {
	provenance model.Provenance
	kinds      string // sorted, comma-joined kind set
}

// rules is the complete dispatch table. Dispatch is a finite table rather
// than nested conditionals so every recognized shape is visible in one
// place and "no row matches" is an explicit outcome.
var rules = map[ruleKey]Handler{
	{model.ProvenanceDup, "deposit"}:                      Deposit,
	{model.ProvenanceNonDup, "deposit"}:                   Deposit,
	{model.ProvenanceDup, "withdrawal"}:                   Withdrawal,
	{model.ProvenanceDup, "trade"}:                        Trade,
	{model.ProvenanceNonDup, "trade"}:                     Trade,
	{model.ProvenanceDup, "receive,spend"}:                Trade,
	{model.ProvenanceAssetAmountMatch, "deposit,staking"}: Staking,
	{model.ProvenanceNonDup, "staking"}:                   Staking,
	{model.ProvenanceNonDup, "earn"}:                      Staking,
	{model.ProvenanceNonDup, "withdrawal"}:                FiatWithdrawal,
	{model.ProvenanceNonDup, "transfer"}:                  TransferFilter,
	{model.ProvenanceDup, "transfer,withdrawal"}:          TransferFilter,
	{model.ProvenanceDup, "deposit,transfer"}:             TransferFilter,
}

// Classify selects the handler for a group from its provenance and observed
// kind set.
func Classify(group *model.TransactionGroup) Handler {
	return rules[ruleKey{group.Provenance, group.KindSet()}]
}
