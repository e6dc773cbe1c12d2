// Package engine reconciles a complete ledger snapshot into normalized
// bookkeeping records: entries are correlated into transaction groups,
// classified, and handed to the kind handler that derives the accounting
// fields the raw log does not state directly.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/ledgerflow/internal/classify"
	"github.com/Veraticus/ledgerflow/internal/correlate"
	"github.com/Veraticus/ledgerflow/internal/model"
	"github.com/Veraticus/ledgerflow/internal/rates"
	"github.com/shopspring/decimal"
)

// ErrNoInput is returned when neither a ledger file nor an in-memory entry
// set was supplied.
var ErrNoInput = errors.New("either a ledger file or an in-memory entry set must be supplied")

// derivedScale is the rounding applied to every derived monetary value
// before it is carried forward. The trade rate itself stays unrounded; it
// is a display ratio and output formatting truncates it.
const derivedScale = 8

// Config configures a Processor.
type Config struct {
	// FiatCurrency is the cash currency of the account ledger (default EUR).
	FiatCurrency string
	// DepotCurrent names the depot holding the assets.
	DepotCurrent string
	// DepotNew names the depot crypto withdrawals transfer into.
	DepotNew string
	// Account names the cash account.
	Account string
	// IgnoreRefIDs lists refids excluded from all processing.
	IgnoreRefIDs []string
	// RateProvider values crypto movements; nil substitutes the
	// unavailable-rate sentinels instead.
	RateProvider rates.Provider
	// Progress, if set, is called after each group is processed.
	Progress func(done, total int)
}

// Result is the outcome of one reconciliation run. Record order follows
// first-seen group order, so identical input yields identical output.
type Result struct {
	AccountRecords []model.AccountRecord
	DepotRecords   []model.DepotRecord
	Counts         Counts
}

// Counts summarizes what happened to each group.
type Counts struct {
	Groups            int
	Deposits          int
	Withdrawals       int
	Trades            int
	Stakings          int
	InternalTransfers int
	Unrecognized      int
}

// Processor runs the reconciliation pipeline. It is a single-threaded batch
// computation; the only external dependency is the optional rate provider.
type Processor struct {
	cfg Config
}

// New creates a Processor.
func New(cfg Config) (*Processor, error) {
	if cfg.FiatCurrency == "" {
		cfg.FiatCurrency = "EUR"
	}
	return &Processor{cfg: cfg}, nil
}

// Process correlates, classifies and converts the full entry set. A nil
// entry slice is a configuration error; an empty ledger is a valid (empty)
// run. Rate lookups that fail while a provider is configured abort the run.
func (p *Processor) Process(ctx context.Context, entries []model.LedgerEntry) (*Result, error) {
	if entries == nil {
		return nil, ErrNoInput
	}

	groups := correlate.New(p.cfg.IgnoreRefIDs).Correlate(entries)

	result := &Result{Counts: Counts{Groups: len(groups)}}
	for i := range groups {
		group := &groups[i]

		var accountRecords []model.AccountRecord
		var depotRecords []model.DepotRecord
		var err error

		handler := classify.Classify(group)
		switch handler {
		case classify.Deposit:
			accountRecords, depotRecords, err = p.handleDeposit(ctx, group)
			result.Counts.Deposits++
		case classify.Withdrawal:
			accountRecords, depotRecords, err = p.handleWithdrawal(ctx, group)
			result.Counts.Withdrawals++
		case classify.FiatWithdrawal:
			accountRecords, depotRecords = p.handleFiatWithdrawal(group)
			result.Counts.Withdrawals++
		case classify.Trade:
			accountRecords, depotRecords = p.handleTrade(group)
			result.Counts.Trades++
		case classify.Staking:
			accountRecords, depotRecords, err = p.handleStaking(ctx, group)
			result.Counts.Stakings++
		case classify.TransferFilter:
			if isStakingTransfer(group) {
				slog.Info("Ignoring internal staking transfer",
					"key", group.Key,
					"provenance", group.Provenance,
					"kinds", group.KindSet())
				result.Counts.InternalTransfers++
			} else {
				logUnrecognized(group)
				result.Counts.Unrecognized++
			}
		default:
			logUnrecognized(group)
			result.Counts.Unrecognized++
		}
		if err != nil {
			return nil, fmt.Errorf("group %s (%s): %w", group.Key, handler, err)
		}

		result.AccountRecords = append(result.AccountRecords, accountRecords...)
		result.DepotRecords = append(result.DepotRecords, depotRecords...)

		if p.cfg.Progress != nil {
			p.cfg.Progress(i+1, len(groups))
		}
	}

	return result, nil
}

// lookupRate asks the provider for the asset's rate on the entry's calendar
// date. Only called when a provider is configured; failures are hard.
func (p *Processor) lookupRate(ctx context.Context, asset, date string) (decimal.Decimal, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot value %s, bad entry date %q: %w", asset, date, err)
	}
	rate, err := p.cfg.RateProvider.GetRate(ctx, asset, day)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to value %s on %s: %w", asset, date, err)
	}
	return rate, nil
}

// isStakingTransfer reports whether any entry carries one of the known
// staking-rebalance subtypes. Such groups are internal shuffles between the
// spot and staking wallets, not economic events.
func isStakingTransfer(group *model.TransactionGroup) bool {
	for _, entry := range group.Entries {
		switch entry.Subtype {
		case "spotfromfutures", "spottostaking", "stakingfromspot", "stakingtospot", "spotfromstaking":
			return true
		}
	}
	return false
}

// logUnrecognized dumps a group the dispatch table has no row for. This is
// deliberately not an error: the run continues past shapes that are
// malformed or not yet modeled.
func logUnrecognized(group *model.TransactionGroup) {
	content, err := json.Marshal(group.Entries)
	if err != nil {
		content = []byte(fmt.Sprintf("%+v", group.Entries))
	}
	args := []any{
		"key", group.Key,
		"provenance", group.Provenance,
		"kinds", group.KindSet(),
		"entries", string(content),
	}
	if group.Provenance == model.ProvenanceAssetAmountMatch {
		// Fallback merges are heuristic; an unrecognized one may simply be
		// a false-positive pairing.
		slog.Warn("Unable to classify transaction group (possible fallback false positive)", args...)
		return
	}
	slog.Warn("Unable to classify transaction group", args...)
}
