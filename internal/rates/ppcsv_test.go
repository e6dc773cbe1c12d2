package rates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const germanExport = `Datum;BTC-EUR;ETH-EUR;SPY
2022-02-24;31.605,10;2.345,67;410,12
2022-02-25;32.100,00;;411,00
`

const englishExport = `Date,BTC-EUR,ETH-EUR
2022-02-24,"31,605.10","2,345.67"
`

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestCSVProviderGermanLocale(t *testing.T) {
	p, err := NewCSVProvider(strings.NewReader(germanExport))
	require.NoError(t, err)

	rate, err := p.GetRate(context.Background(), "BTC", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "31605.1", rate.String())

	rate, err = p.GetRate(context.Background(), "ETH", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "2345.67", rate.String())
}

func TestCSVProviderEnglishLocale(t *testing.T) {
	p, err := NewCSVProvider(strings.NewReader(englishExport), WithLanguage("en"))
	require.NoError(t, err)

	rate, err := p.GetRate(context.Background(), "BTC", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "31605.1", rate.String())
}

func TestCSVProviderUnknownLanguage(t *testing.T) {
	_, err := NewCSVProvider(strings.NewReader(germanExport), WithLanguage("fr"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported rates export language")
}

func TestCSVProviderMissingQuote(t *testing.T) {
	p, err := NewCSVProvider(strings.NewReader(germanExport))
	require.NoError(t, err)

	// Missing day.
	_, err = p.GetRate(context.Background(), "BTC", day(t, "2022-03-01"))
	assert.ErrorIs(t, err, ErrRateUnavailable)

	// Day present, cell empty.
	_, err = p.GetRate(context.Background(), "ETH", day(t, "2022-02-25"))
	assert.ErrorIs(t, err, ErrRateUnavailable)

	// Column never existed.
	_, err = p.GetRate(context.Background(), "XRP", day(t, "2022-02-24"))
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestCSVProviderColumnMapping(t *testing.T) {
	export := "Datum;Bitcoin\n2022-02-24;31.605,10\n"
	p, err := NewCSVProvider(strings.NewReader(export),
		WithColumnMapping(map[string]string{"Bitcoin": "XBT-EUR"}))
	require.NoError(t, err)

	rate, err := p.GetRate(context.Background(), "XBT", day(t, "2022-02-24"))
	require.NoError(t, err)
	assert.Equal(t, "31605.1", rate.String())
}

func TestCSVProviderQuotes(t *testing.T) {
	p, err := NewCSVProvider(strings.NewReader(germanExport))
	require.NoError(t, err)

	quotes := p.Quotes()

	// The SPY column carries no fiat suffix and is skipped, as is the empty
	// ETH cell on the 25th. Order follows the export: days in file order,
	// columns in header order.
	require.Len(t, quotes, 3)
	assert.Equal(t, Quote{Day: "2022-02-24", Asset: "BTC", Rate: quotes[0].Rate}, quotes[0])
	assert.Equal(t, "31605.1", quotes[0].Rate.String())
	assert.Equal(t, "ETH", quotes[1].Asset)
	assert.Equal(t, "2022-02-25", quotes[2].Day)
	assert.Equal(t, "BTC", quotes[2].Asset)
}

func TestParseDay(t *testing.T) {
	for _, s := range []string{"2022-02-24", "24.02.2022", "02/24/2022"} {
		got, err := parseDay(s)
		require.NoError(t, err, s)
		assert.Equal(t, "2022-02-24", got)
	}

	_, err := parseDay("Feb 24 2022")
	assert.Error(t, err)
}
