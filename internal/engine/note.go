package engine

import (
	"sort"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/model"
)

// noteIDs builds the cross-reference note linking an output record back to
// its raw source rows: the distinct non-empty refids sorted, then the
// distinct non-empty txids sorted, comma-joined. The txid segment is
// omitted when no entry carries one. Sorting makes the note invariant under
// permutation of the group's entry order.
func noteIDs(entries []model.LedgerEntry) string {
	refids := distinctSorted(entries, func(e model.LedgerEntry) string { return e.RefID })
	txids := distinctSorted(entries, func(e model.LedgerEntry) string { return e.TxID })

	note := strings.Join(refids, ",")
	if len(txids) > 0 {
		note += "," + strings.Join(txids, ",")
	}
	return note
}

func distinctSorted(entries []model.LedgerEntry, id func(model.LedgerEntry) string) []string {
	seen := make(map[string]bool, len(entries))
	var ids []string
	for _, entry := range entries {
		v := id(entry)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ids = append(ids, v)
	}
	sort.Strings(ids)
	return ids
}
