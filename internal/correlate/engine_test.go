package correlate

import (
	"strings"
	"testing"

	"github.com/Veraticus/ledgerflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(refid, txid, kind, ts, asset, amount string) model.LedgerEntry {
	date := strings.SplitN(ts, " ", 2)[0]
	return model.LedgerEntry{
		RefID:  refid,
		TxID:   txid,
		Kind:   kind,
		Time:   ts,
		Date:   date,
		Asset:  asset,
		Amount: decimal.RequireFromString(amount),
	}
}

func groupByKey(groups []model.TransactionGroup, key string) *model.TransactionGroup {
	for i := range groups {
		if groups[i].Key == key {
			return &groups[i]
		}
	}
	return nil
}

func TestKnownDuplicatePass(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("QCCJ7TH", "", "deposit", "2021-04-21 07:03:52", "ZEUR", "1000"),
		entry("QCCJ7TH", "LYDWIG", "deposit", "2021-04-21 07:04:27", "ZEUR", "1000"),
	}

	groups := New(nil).Correlate(entries)

	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, "QCCJ7TH", group.Key)
	assert.Equal(t, model.ProvenanceDup, group.Provenance)
	assert.Len(t, group.Entries, 2, "every entry sharing the refid lands in one group")
}

func TestRepeatedIdenticalRowsStaySingleton(t *testing.T) {
	// Same refid, same txid: only one distinct txid, so the provider gave
	// no duplicate signal and the fallback sees identical rows.
	entries := []model.LedgerEntry{
		entry("R1", "T1", "withdrawal", "2024-01-26 22:35:17", "ZEUR", "-13.51"),
		entry("R1", "T1", "withdrawal", "2024-01-26 22:35:17", "ZEUR", "-13.51"),
	}

	groups := New(nil).Correlate(entries)

	require.Len(t, groups, 1)
	assert.Equal(t, model.ProvenanceNonDup, groups[0].Provenance)
	assert.Equal(t, "R1", groups[0].Key)
}

func TestUnknownRecovery(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("Unknown", "TA", "staking", "2022-12-11 03:41:47", "XETH", "1.5"),
		entry("Unknown", "TB", "transfer", "2022-12-11 04:00:00", "XXBT", "2"),
		entry("Unknown", "TC", "transfer", "2022-12-11 05:00:00", "XXBT", "-2"),
	}

	groups := New(nil).Correlate(entries)

	require.Len(t, groups, 1, "offsetting same-asset same-amount noise is discarded")
	group := groups[0]
	assert.Equal(t, "TA", group.Key, "recovered entries are re-keyed by txid")
	assert.Equal(t, model.ProvenanceNonDup, group.Provenance)
	require.Len(t, group.Entries, 1)
	assert.Equal(t, "TA", group.Entries[0].RefID, "the broken refid is rewritten")
	assert.Nil(t, groupByKey(groups, "Unknown"))
}

func TestUnknownWithoutDuplicateSignalIsDropped(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("Unknown", "TA", "transfer", "2022-12-11 03:41:47", "XETH", "1.5"),
		entry("R1", "T1", "withdrawal", "2024-01-26 22:35:17", "ZEUR", "-13.51"),
	}

	groups := New(nil).Correlate(entries)

	require.Len(t, groups, 1)
	assert.Equal(t, "R1", groups[0].Key)
}

func TestFallbackSymmetry(t *testing.T) {
	a := entry("STFCFLD", "L4U7Y4", "staking", "2022-12-11 03:41:47", "ATOM.S", "0.003443")
	b := entry("RUGLWVG", "", "deposit", "2022-12-11 01:03:09", "ATOM.S", "0.003443")

	for name, entries := range map[string][]model.LedgerEntry{
		"a first": {a, b},
		"b first": {b, a},
	} {
		t.Run(name, func(t *testing.T) {
			groups := New(nil).Correlate(entries)

			require.Len(t, groups, 1)
			group := groups[0]
			assert.Equal(t, "ATOM.S_0.003443", group.Key)
			assert.Equal(t, model.ProvenanceAssetAmountMatch, group.Provenance)
			assert.Len(t, group.Entries, 2)
			assert.Equal(t, "deposit,staking", group.KindSet())
		})
	}
}

func TestFallbackRequiresFullMatch(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("R1", "T1", "staking", "2022-12-11 03:41:47", "ATOM.S", "0.003443"),
		entry("R2", "T2", "deposit", "2022-12-12 01:03:09", "ATOM.S", "0.003443"), // different date
	}

	groups := New(nil).Correlate(entries)

	require.Len(t, groups, 2)
	for _, group := range groups {
		assert.Equal(t, model.ProvenanceNonDup, group.Provenance)
		assert.Len(t, group.Entries, 1)
	}
}

func TestFallbackThreeWayTieLeavesSingleton(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("R1", "T1", "staking", "2022-12-11 03:41:47", "ATOM.S", "0.003443"),
		entry("R2", "T2", "deposit", "2022-12-11 01:03:09", "ATOM.S", "0.003443"),
		entry("R3", "T3", "deposit", "2022-12-11 02:00:00", "ATOM.S", "0.003443"),
	}

	groups := New(nil).Correlate(entries)

	// No tie-break rule exists: the first pair found merges, the leftover
	// entry falls through as a singleton.
	require.Len(t, groups, 2)
	merged := groupByKey(groups, "ATOM.S_0.003443")
	require.NotNil(t, merged)
	assert.Len(t, merged.Entries, 2)

	var singleton *model.TransactionGroup
	for i := range groups {
		if groups[i].Key != merged.Key {
			singleton = &groups[i]
		}
	}
	require.NotNil(t, singleton)
	assert.Len(t, singleton.Entries, 1)
	assert.Equal(t, model.ProvenanceNonDup, singleton.Provenance)
}

func TestIgnoreList(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("SKIPME", "", "deposit", "2021-04-21 07:03:52", "ZEUR", "1000"),
		entry("SKIPME", "L1", "deposit", "2021-04-21 07:04:27", "ZEUR", "1000"),
		entry("KEEP", "L2", "withdrawal", "2024-01-26 22:35:17", "ZEUR", "-13.51"),
	}

	groups := New([]string{"SKIPME"}).Correlate(entries)

	require.Len(t, groups, 1)
	assert.Equal(t, "KEEP", groups[0].Key)
}

func TestFirstSeenKeyOrderIsDeterministic(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("B-REF", "L2", "withdrawal", "2024-01-26 22:35:17", "ZEUR", "-13.51"),
		entry("A-REF", "", "deposit", "2021-04-21 07:03:52", "ZEUR", "1000"),
		entry("A-REF", "L1", "deposit", "2021-04-21 07:04:27", "ZEUR", "1000"),
	}

	first := New(nil).Correlate(entries)

	// Permuted input yields identical group order: entries are resorted by
	// refid then time before any pass runs.
	permuted := []model.LedgerEntry{entries[2], entries[0], entries[1]}
	second := New(nil).Correlate(permuted)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, first[i].Provenance, second[i].Provenance)
	}
}
