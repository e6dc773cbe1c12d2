package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAsset(t *testing.T) {
	tests := []struct {
		name  string
		asset string
		want  string
	}{
		{"crypto with X prefix", "XETH", "ETH"},
		{"fiat with Z prefix", "ZEUR", "EUR"},
		{"staking share suffix", "ATOM.S", "ATOM"},
		{"plain code", "ADA", "ADA"},
		{"prefix wins over suffix", "XTZ.S", "TZ.S"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAsset(tt.asset))
		})
	}
}

func TestSameRow(t *testing.T) {
	entry := LedgerEntry{RefID: "R1", TxID: "T1", Kind: "trade", Time: "2022-02-24 08:57:02"}

	assert.True(t, entry.SameRow(entry))

	other := entry
	other.TxID = "T2"
	assert.False(t, entry.SameRow(other))

	other = entry
	other.Time = "2022-02-24 08:57:03"
	assert.False(t, entry.SameRow(other))
}

func TestGroupKindSet(t *testing.T) {
	group := TransactionGroup{Entries: []LedgerEntry{
		{Kind: "staking"},
		{Kind: "deposit"},
		{Kind: "staking"},
	}}

	assert.Equal(t, "deposit,staking", group.KindSet())
	assert.Equal(t, map[string]bool{"deposit": true, "staking": true}, group.Kinds())
}

func TestEntriesByTimeDesc(t *testing.T) {
	group := TransactionGroup{Entries: []LedgerEntry{
		{TxID: "a", Time: "2021-04-21 07:03:52"},
		{TxID: "b", Time: "2021-04-21 07:04:27"},
		{TxID: "c", Time: "2021-04-21 07:04:27"},
	}}

	sorted := group.EntriesByTimeDesc()

	assert.Equal(t, "b", sorted[0].TxID, "latest entry first")
	assert.Equal(t, "c", sorted[1].TxID, "ties keep input order")
	assert.Equal(t, "a", sorted[2].TxID)
	assert.Equal(t, "a", group.Entries[0].TxID, "original order untouched")
}

func TestCellStates(t *testing.T) {
	plain := func(d decimal.Decimal) string { return d.String() }

	empty := EmptyCell()
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.Format(plain))

	num := NumberCell(decimal.RequireFromString("3.076"))
	assert.False(t, num.IsEmpty())
	d, ok := num.Number()
	assert.True(t, ok)
	assert.Equal(t, "3.076", d.String())
	assert.Equal(t, "3.076", num.Format(plain))

	sentinel := SentinelCell(SentinelRate)
	assert.False(t, sentinel.IsEmpty())
	_, ok = sentinel.Number()
	assert.False(t, ok, "a sentinel never exposes a number")
	assert.Equal(t, "DUMMYRATE", sentinel.Format(plain))
}
