package model

import (
	"sort"
	"strings"
)

// Provenance records which correlation pass formed a transaction group.
// Classification depends on it: provider-given groupings are trusted more
// than heuristically recovered ones.
type Provenance string

const (
	// ProvenanceDup marks groups formed from the exchange's own refid
	// grouping (a refid seen with more than one distinct txid).
	ProvenanceDup Provenance = "dup"
	// ProvenanceNonDup marks singleton groups and entries recovered from
	// the broken "Unknown" refid.
	ProvenanceNonDup Provenance = "nondup"
	// ProvenanceAssetAmountMatch marks groups merged by the fallback pass
	// on identical (asset, signed amount, date).
	ProvenanceAssetAmountMatch Provenance = "dup_asset_amount_match"
)

// TransactionGroup is a set of ledger entries believed to jointly describe
// one economic event. Entries keep their insertion order; handlers resort
// by time as needed. A group is consumed exactly once by the classifier and
// never mutated afterward.
type TransactionGroup struct {
	Key        string
	Provenance Provenance
	Entries    []LedgerEntry
}

// Kinds returns the set of entry kinds observed across the group.
func (g *TransactionGroup) Kinds() map[string]bool {
	kinds := make(map[string]bool, len(g.Entries))
	for _, e := range g.Entries {
		kinds[e.Kind] = true
	}
	return kinds
}

// KindSet returns the observed kinds sorted and comma-joined, e.g.
// "deposit,staking". Used as a dispatch key and in logs.
func (g *TransactionGroup) KindSet() string {
	kinds := g.Kinds()
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// EntriesByTimeDesc returns the group's entries sorted chronologically
// latest-first. The sort is stable so ties keep input order, keeping
// repeated runs byte-identical. The latest entry carries the
// post-settlement balance and is canonical for date and time.
func (g *TransactionGroup) EntriesByTimeDesc() []LedgerEntry {
	sorted := make([]LedgerEntry, len(g.Entries))
	copy(sorted, g.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time > sorted[j].Time
	})
	return sorted
}
