package rates

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "rates.db"), "EUR")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreImportAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.ImportQuotes(ctx, []Quote{
		{Day: "2022-02-24", Asset: "BTC", Rate: decimal.RequireFromString("31605.10")},
		{Day: "2022-02-24", Asset: "ETH", Rate: decimal.RequireFromString("2345.67")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rate, err := store.GetRate(ctx, "BTC", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "31605.1", rate.String())

	_, err = store.GetRate(ctx, "BTC", day(t, "2022-02-25"))
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestStoreImportUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	quote := Quote{Day: "2022-02-24", Asset: "BTC", Rate: decimal.RequireFromString("31000")}
	_, err := store.ImportQuotes(ctx, []Quote{quote})
	require.NoError(t, err)

	quote.Rate = decimal.RequireFromString("31605.10")
	_, err = store.ImportQuotes(ctx, []Quote{quote})
	require.NoError(t, err)

	rate, err := store.GetRate(ctx, "BTC", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "31605.1", rate.String(), "a re-import replaces the quote")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Quotes)
}

func TestStoreStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ImportQuotes(ctx, []Quote{
		{Day: "2022-02-25", Asset: "ETH", Rate: decimal.RequireFromString("2400")},
		{Day: "2022-02-24", Asset: "BTC", Rate: decimal.RequireFromString("31605.10")},
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Quotes)
	assert.Equal(t, []string{"BTC", "ETH"}, stats.Assets)
	assert.Equal(t, "2022-02-24", stats.FromDay)
	assert.Equal(t, "2022-02-25", stats.ToDay)
}

func TestOpenStoreRejectsEmptyPath(t *testing.T) {
	_, err := OpenStore("", "EUR")
	assert.Error(t, err)
}
