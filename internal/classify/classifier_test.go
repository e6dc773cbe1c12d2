package classify

import (
	"testing"

	"github.com/Veraticus/ledgerflow/internal/model"
	"github.com/stretchr/testify/assert"
)

func group(provenance model.Provenance, kinds ...string) *model.TransactionGroup {
	g := &model.TransactionGroup{Key: "test", Provenance: provenance}
	for _, kind := range kinds {
		g.Entries = append(g.Entries, model.LedgerEntry{Kind: kind})
	}
	return g
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		group *model.TransactionGroup
		want  Handler
	}{
		{"dup deposit", group(model.ProvenanceDup, "deposit", "deposit"), Deposit},
		{"nondup deposit", group(model.ProvenanceNonDup, "deposit"), Deposit},
		{"dup withdrawal", group(model.ProvenanceDup, "withdrawal", "withdrawal"), Withdrawal},
		{"nondup withdrawal is a direct fiat withdrawal", group(model.ProvenanceNonDup, "withdrawal"), FiatWithdrawal},
		{"dup trade", group(model.ProvenanceDup, "trade", "trade"), Trade},
		{"nondup trade", group(model.ProvenanceNonDup, "trade"), Trade},
		{"spend and receive pair", group(model.ProvenanceDup, "spend", "receive"), Trade},
		{"recovered staking deposit pair", group(model.ProvenanceAssetAmountMatch, "deposit", "staking"), Staking},
		{"nondup staking", group(model.ProvenanceNonDup, "staking"), Staking},
		{"nondup earn", group(model.ProvenanceNonDup, "earn"), Staking},
		{"nondup transfer", group(model.ProvenanceNonDup, "transfer"), TransferFilter},
		{"dup transfer withdrawal", group(model.ProvenanceDup, "transfer", "withdrawal"), TransferFilter},
		{"dup deposit transfer", group(model.ProvenanceDup, "deposit", "transfer"), TransferFilter},
		{"unknown combination", group(model.ProvenanceDup, "staking"), Unrecognized},
		{"fallback false positive", group(model.ProvenanceAssetAmountMatch, "trade"), Unrecognized},
		{"mixed deposit and trade", group(model.ProvenanceDup, "deposit", "trade"), Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.group))
		})
	}
}

func TestHandlerString(t *testing.T) {
	assert.Equal(t, "deposit", Deposit.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
	assert.Equal(t, "transfer-filter", TransferFilter.String())
}
