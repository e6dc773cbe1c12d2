// Package correlate groups normalized ledger entries into transaction
// groups. The exchange's refid is the primary correlation key, but it is
// unreliable for two known classes of entries, so the engine layers three
// ordered passes: the provider's own grouping, recovery of entries mis-tagged
// with the "Unknown" refid, and a narrow asset/amount/date fallback. Each
// pass consumes the residual entries the previous pass left ungrouped, so
// unambiguous provider-given groupings are never second-guessed by the
// heuristics.
package correlate

import (
	"sort"

	"github.com/Veraticus/ledgerflow/internal/model"
)

// unknownRefID is the sentinel refid the exchange assigns to entries whose
// real grouping id was lost.
const unknownRefID = "Unknown"

// Engine builds transaction groups from a complete ledger snapshot.
type Engine struct {
	ignore map[string]bool
}

// New creates a correlation engine. Entries whose refid appears in
// ignoreRefIDs are dropped before grouping and take no part in any pass.
func New(ignoreRefIDs []string) *Engine {
	ignore := make(map[string]bool, len(ignoreRefIDs))
	for _, id := range ignoreRefIDs {
		if id != "" {
			ignore[id] = true
		}
	}
	return &Engine{ignore: ignore}
}

// Correlate runs the three passes over the full entry set and returns the
// groups in first-seen key order, so repeated runs on identical input yield
// identical output.
func (e *Engine) Correlate(entries []model.LedgerEntry) []model.TransactionGroup {
	prepared := e.prepare(entries)

	g := newGrouping()
	residual := passKnownDuplicates(prepared, g)
	residual = passUnknownRecovery(residual, g)
	passFallback(residual, g)

	return g.groups()
}

// prepare drops ignored refids and resorts the snapshot by refid then time.
// Input order is otherwise not significant; the resort pins iteration order
// for every later pass.
func (e *Engine) prepare(entries []model.LedgerEntry) []model.LedgerEntry {
	prepared := make([]model.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if e.ignore[entry.RefID] {
			continue
		}
		prepared = append(prepared, entry)
	}
	sort.SliceStable(prepared, func(i, j int) bool {
		if prepared[i].RefID != prepared[j].RefID {
			return prepared[i].RefID < prepared[j].RefID
		}
		return prepared[i].Time < prepared[j].Time
	})
	return prepared
}

// passKnownDuplicates groups every entry whose refid occurs with more than
// one distinct txid. That is the provider's own signal that several rows
// belong together. Ungrouped entries are returned as the residual.
func passKnownDuplicates(entries []model.LedgerEntry, g *grouping) []model.LedgerEntry {
	txids := make(map[string]map[string]bool)
	for _, entry := range entries {
		set, ok := txids[entry.RefID]
		if !ok {
			set = make(map[string]bool)
			txids[entry.RefID] = set
		}
		set[entry.TxID] = true
	}

	var residual []model.LedgerEntry
	for _, entry := range entries {
		if len(txids[entry.RefID]) > 1 {
			g.add(entry.RefID, model.ProvenanceDup, entry)
			continue
		}
		residual = append(residual, entry)
	}
	return residual
}

// passUnknownRecovery handles entries the exchange mis-tagged with the
// "Unknown" refid. Within the Unknown group, entries are keyed by
// (absolute amount, normalized asset): a combination occurring exactly once
// is a real event whose refid was lost, so the entry is re-keyed by its own
// txid. Combinations occurring more than once are same-asset same-amount
// offsetting noise and are discarded, as are any Unknown entries the first
// pass left ungrouped.
func passUnknownRecovery(residual []model.LedgerEntry, g *grouping) []model.LedgerEntry {
	unknown := g.remove(unknownRefID)

	remaining := residual[:0:0]
	for _, entry := range residual {
		if entry.RefID == unknownRefID {
			continue
		}
		remaining = append(remaining, entry)
	}

	type combo struct{ amount, asset string }
	counts := make(map[combo]int, len(unknown))
	for _, entry := range unknown {
		counts[combo{entry.Amount.Abs().String(), model.NormalizeAsset(entry.Asset)}]++
	}

	for _, entry := range unknown {
		if counts[combo{entry.Amount.Abs().String(), model.NormalizeAsset(entry.Asset)}] >= 2 {
			continue
		}
		recovered := entry
		recovered.RefID = recovered.TxID
		g.add(recovered.RefID, model.ProvenanceNonDup, recovered)
	}

	return remaining
}

// passFallback handles the entries no earlier pass could place. Two
// otherwise-unrelated entries sharing asset, signed amount and date are
// merged under a synthesized "{asset}_{amount}" key; everything else becomes
// a singleton group under its own refid.
//
// When more than two entries share the same (asset, amount, date) there is
// no tie-break rule: the first pair found in iteration order is merged and
// the rest fall through as singletons. That may under- or over-merge
// ambiguous cases; it is the established behavior and is preserved rather
// than fixed.
func passFallback(residual []model.LedgerEntry, g *grouping) {
	matched := make([]bool, len(residual))

	for i, entry := range residual {
		if matched[i] {
			continue
		}

		found := false
		for j, other := range residual {
			if j == i || matched[j] {
				continue
			}
			if entry.SameRow(other) {
				continue
			}
			if entry.Asset != other.Asset || !entry.Amount.Equal(other.Amount) || entry.Date != other.Date {
				continue
			}

			key := entry.Asset + "_" + entry.Amount.String()
			g.add(key, model.ProvenanceAssetAmountMatch, entry, other)
			matched[i], matched[j] = true, true
			found = true
			break
		}

		if !found {
			g.add(entry.RefID, model.ProvenanceNonDup, entry)
		}
	}
}

// grouping is an insertion-ordered key -> group map. A group, once created,
// is looked up by the same key across passes so repeated entries for one key
// accumulate into the same group.
type grouping struct {
	order []string
	byKey map[string]*model.TransactionGroup
}

func newGrouping() *grouping {
	return &grouping{byKey: make(map[string]*model.TransactionGroup)}
}

func (g *grouping) add(key string, provenance model.Provenance, entries ...model.LedgerEntry) {
	group, ok := g.byKey[key]
	if !ok {
		group = &model.TransactionGroup{Key: key, Provenance: provenance}
		g.byKey[key] = group
		g.order = append(g.order, key)
	}
	group.Entries = append(group.Entries, entries...)
}

// remove detaches and returns the entries grouped under key, if any.
func (g *grouping) remove(key string) []model.LedgerEntry {
	group, ok := g.byKey[key]
	if !ok {
		return nil
	}
	delete(g.byKey, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return group.Entries
}

// groups returns all groups in first-seen key order.
func (g *grouping) groups() []model.TransactionGroup {
	result := make([]model.TransactionGroup, 0, len(g.order))
	for _, key := range g.order {
		result = append(result, *g.byKey[key])
	}
	return result
}
