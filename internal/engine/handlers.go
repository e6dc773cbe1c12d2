package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/model"
)

// Every handler sorts the group's entries latest-first and treats the first
// entry as canonical for date, time and balance: later rows carry the
// post-settlement state.

func (p *Processor) handleDeposit(ctx context.Context, group *model.TransactionGroup) ([]model.AccountRecord, []model.DepotRecord, error) {
	entries := group.EntriesByTimeDesc()

	assets := distinctAssets(entries)
	if len(assets) == 1 && p.isFiat(assets[0]) {
		return p.handleFiatDeposit(entries), nil, nil
	}
	return p.handleCryptoDeposit(ctx, entries)
}

func (p *Processor) handleFiatDeposit(entries []model.LedgerEntry) []model.AccountRecord {
	latest := entries[0]
	return []model.AccountRecord{{
		Date:   latest.Date,
		Time:   latest.Clock,
		Type:   model.AccountDeposit,
		Amount: model.NumberCell(latest.Amount),
		Note:   noteIDs(entries),
	}}
}

func (p *Processor) handleCryptoDeposit(ctx context.Context, entries []model.LedgerEntry) ([]model.AccountRecord, []model.DepotRecord, error) {
	latest := entries[0]
	asset := model.NormalizeAsset(latest.Asset)

	rate := model.SentinelCell(model.SentinelRate)
	value := model.SentinelCell(model.SentinelValue)
	total := model.SentinelCell(model.SentinelTotal)
	if p.cfg.RateProvider != nil {
		r, err := p.lookupRate(ctx, asset, latest.Date)
		if err != nil {
			return nil, nil, err
		}
		v := latest.Amount.Mul(r).Round(derivedScale)
		rate = model.NumberCell(r)
		value = model.NumberCell(v)
		total = model.NumberCell(v)
	}

	record := model.DepotRecord{
		Date:    latest.Date,
		Time:    latest.Clock,
		Type:    model.DepotDeliveryInbound,
		Asset:   asset,
		Amount:  model.NumberCell(latest.Amount),
		Rate:    rate,
		Value:   value,
		Total:   total,
		Account: p.cfg.DepotCurrent,
		Note:    noteIDs(entries),
	}
	return nil, []model.DepotRecord{record}, nil
}

func (p *Processor) handleWithdrawal(ctx context.Context, group *model.TransactionGroup) ([]model.AccountRecord, []model.DepotRecord, error) {
	entries := group.EntriesByTimeDesc()
	for _, asset := range distinctAssets(entries) {
		if p.isFiat(asset) {
			accountRecords, depotRecords := p.fiatWithdrawalRecords(entries)
			return accountRecords, depotRecords, nil
		}
	}
	return p.handleCryptoWithdrawal(ctx, entries)
}

// handleFiatWithdrawal covers singleton withdrawal entries, which the
// exchange only produces for fiat movements.
func (p *Processor) handleFiatWithdrawal(group *model.TransactionGroup) ([]model.AccountRecord, []model.DepotRecord) {
	return p.fiatWithdrawalRecords(group.EntriesByTimeDesc())
}

func (p *Processor) fiatWithdrawalRecords(entries []model.LedgerEntry) ([]model.AccountRecord, []model.DepotRecord) {
	latest := entries[0]
	note := noteIDs(entries)

	removal := model.AccountRecord{
		Date:   latest.Date,
		Time:   latest.Clock,
		Type:   model.AccountRemoval,
		Amount: model.NumberCell(latest.Amount.Abs()),
		Note:   note,
	}
	fees := model.AccountRecord{
		Date:   latest.Date,
		Time:   latest.Clock,
		Type:   model.AccountFees,
		Amount: model.NumberCell(latest.Fee),
		Note:   note,
	}
	return []model.AccountRecord{removal, fees}, nil
}

// handleCryptoWithdrawal emits a depot transfer into the new depot plus an
// explicit sell/cost pair for the in-kind network fee, since the
// bookkeeping format has no native asset-denominated fees.
func (p *Processor) handleCryptoWithdrawal(ctx context.Context, entries []model.LedgerEntry) ([]model.AccountRecord, []model.DepotRecord, error) {
	latest := entries[0]
	asset := model.NormalizeAsset(latest.Asset)
	amount := latest.Amount.Abs()
	fee := latest.Fee.Abs()

	rate := model.SentinelCell(model.SentinelRate)
	value := model.SentinelCell(model.SentinelValue)
	total := model.SentinelCell(model.SentinelTotal)
	feeValue := model.SentinelCell(model.SentinelFees)
	feeTotal := model.SentinelCell(model.SentinelFees)
	if p.cfg.RateProvider != nil {
		r, err := p.lookupRate(ctx, asset, latest.Date)
		if err != nil {
			return nil, nil, err
		}
		v := amount.Mul(r).Round(derivedScale)
		f := fee.Mul(r).Round(derivedScale)
		rate = model.NumberCell(r)
		value = model.NumberCell(v)
		total = model.NumberCell(v)
		feeValue = model.NumberCell(f)
		feeTotal = model.NumberCell(f)
	}

	note := noteIDs(entries)

	transfer := model.DepotRecord{
		Date:         latest.Date,
		Time:         latest.Clock,
		Type:         model.DepotTransferOut,
		Asset:        asset,
		Amount:       model.NumberCell(amount),
		Rate:         rate,
		Value:        value,
		Total:        total,
		Account:      p.cfg.DepotCurrent,
		OtherAccount: p.cfg.DepotNew,
		Note:         note,
	}
	feeSell := model.DepotRecord{
		Date:         latest.Date,
		Time:         latest.Clock,
		Type:         model.DepotSell,
		Asset:        asset,
		Amount:       model.NumberCell(fee),
		Rate:         rate,
		Value:        feeValue,
		Total:        feeTotal,
		Account:      p.cfg.DepotCurrent,
		OtherAccount: p.cfg.Account,
		Note:         note,
	}
	feeCost := model.AccountRecord{
		Date:   latest.Date,
		Time:   latest.Clock,
		Type:   model.AccountFees,
		Amount: feeTotal,
		Asset:  asset,
		Note:   note,
	}

	return []model.AccountRecord{feeCost}, []model.DepotRecord{transfer, feeSell}, nil
}

// handleTrade splits the group into its fiat and crypto legs and derives
// the rate the raw log never states. The trade is a buy when the fiat leg
// is an outflow. A non-zero crypto fee is converted into an explicit
// same-rate sell plus a cost record.
func (p *Processor) handleTrade(group *model.TransactionGroup) ([]model.AccountRecord, []model.DepotRecord) {
	entries := group.EntriesByTimeDesc()

	var fiatLegs, cryptoLegs []model.LedgerEntry
	for _, entry := range entries {
		if p.isFiat(entry.Asset) {
			fiatLegs = append(fiatLegs, entry)
		} else {
			cryptoLegs = append(cryptoLegs, entry)
		}
	}
	if len(fiatLegs) != 1 || len(cryptoLegs) != 1 {
		slog.Warn("Trade does not consist of one fiat and one crypto entry, skipping",
			"key", group.Key,
			"fiat_legs", len(fiatLegs),
			"crypto_legs", len(cryptoLegs))
		return nil, nil
	}
	fiat, crypto := fiatLegs[0], cryptoLegs[0]

	isBuy := fiat.Amount.IsNegative()
	fiatAmount := fiat.Amount.Abs()
	cryptoAmount := crypto.Amount.Abs()

	// Display ratio only; left unrounded on purpose.
	rate := fiatAmount.Div(cryptoAmount)

	feeFiat := model.EmptyCell()
	total := fiatAmount
	if fiat.Fee.IsPositive() {
		feeFiat = model.NumberCell(fiat.Fee)
		if isBuy {
			total = fiatAmount.Add(fiat.Fee)
		} else {
			total = fiatAmount.Sub(fiat.Fee)
		}
	}

	tradeType := model.DepotSell
	if isBuy {
		tradeType = model.DepotBuy
	}

	asset := model.NormalizeAsset(crypto.Asset)
	note := noteIDs(entries)

	depotRecords := []model.DepotRecord{{
		Date:         crypto.Date,
		Time:         crypto.Clock,
		Type:         tradeType,
		Asset:        asset,
		Amount:       model.NumberCell(cryptoAmount),
		Rate:         model.NumberCell(rate),
		Value:        model.NumberCell(fiatAmount),
		Fees:         feeFiat,
		Total:        model.NumberCell(total),
		Account:      p.cfg.DepotCurrent,
		OtherAccount: p.cfg.Account,
		Note:         note,
	}}

	var accountRecords []model.AccountRecord
	if crypto.Fee.IsPositive() {
		feeValue := crypto.Fee.Mul(rate).Round(derivedScale)
		depotRecords = append(depotRecords, model.DepotRecord{
			Date:         crypto.Date,
			Time:         crypto.Clock,
			Type:         model.DepotSell,
			Asset:        asset,
			Amount:       model.NumberCell(crypto.Fee),
			Rate:         model.NumberCell(rate),
			Value:        model.NumberCell(feeValue),
			Total:        model.NumberCell(feeValue),
			Account:      p.cfg.DepotCurrent,
			OtherAccount: p.cfg.Account,
			Note:         note,
		})
		accountRecords = append(accountRecords, model.AccountRecord{
			Date:   crypto.Date,
			Time:   crypto.Clock,
			Type:   model.AccountFees,
			Amount: model.NumberCell(feeValue),
			Asset:  asset,
			Note:   note,
		})
	}

	return accountRecords, depotRecords
}

// handleStaking books a staking reward or earn payout as an inbound
// delivery of the reward asset.
func (p *Processor) handleStaking(ctx context.Context, group *model.TransactionGroup) ([]model.AccountRecord, []model.DepotRecord, error) {
	entries := group.EntriesByTimeDesc()
	latest := entries[0]
	asset := model.NormalizeAsset(latest.Asset)

	rate := model.SentinelCell(model.SentinelRate)
	value := model.SentinelCell(model.SentinelValue)
	total := model.SentinelCell(model.SentinelTotal)
	if p.cfg.RateProvider != nil {
		r, err := p.lookupRate(ctx, asset, latest.Date)
		if err != nil {
			return nil, nil, err
		}
		v := latest.Amount.Abs().Mul(r).Round(derivedScale)
		rate = model.NumberCell(r)
		value = model.NumberCell(v)
		total = model.NumberCell(v)
	}

	record := model.DepotRecord{
		Date:    latest.Date,
		Time:    latest.Clock,
		Type:    model.DepotDeliveryInbound,
		Asset:   asset,
		Amount:  model.NumberCell(latest.Amount),
		Rate:    rate,
		Value:   value,
		Total:   total,
		Account: p.cfg.DepotCurrent,
		Note:    noteIDs(entries),
	}
	return nil, []model.DepotRecord{record}, nil
}

// isFiat reports whether the asset spelling contains the fiat currency
// code. Containment, not equality: the exchange writes "ZEUR" for EUR.
func (p *Processor) isFiat(asset string) bool {
	return strings.Contains(asset, p.cfg.FiatCurrency)
}

func distinctAssets(entries []model.LedgerEntry) []string {
	seen := make(map[string]bool, len(entries))
	var assets []string
	for _, entry := range entries {
		if !seen[entry.Asset] {
			seen[entry.Asset] = true
			assets = append(assets, entry.Asset)
		}
	}
	return assets
}
