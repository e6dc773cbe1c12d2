package rates

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVProvider serves rates from a Portfolio Performance "all securities"
// export: a date-indexed table with one "<ASSET>-<FIAT>" column per
// security, written in either the German or the English number locale.
type CSVProvider struct {
	source  string
	fiat    string
	days    []string                              // insertion order, for deterministic iteration
	rates   map[string]map[string]decimal.Decimal // day -> column -> rate
	columns []string
}

type csvConfig struct {
	fiat     string
	language string
	mapping  map[string]string
	source   string
}

// CSVOption configures a CSVProvider.
type CSVOption func(*csvConfig)

// WithFiatCurrency sets the fiat currency the export is quoted in
// (default EUR).
func WithFiatCurrency(fiat string) CSVOption {
	return func(c *csvConfig) { c.fiat = fiat }
}

// WithLanguage selects the export's number locale, "de" (default) or "en".
func WithLanguage(language string) CSVOption {
	return func(c *csvConfig) { c.language = language }
}

// WithColumnMapping renames export columns before lookup, for securities
// whose export name does not match the exchange's asset code.
func WithColumnMapping(mapping map[string]string) CSVOption {
	return func(c *csvConfig) { c.mapping = mapping }
}

// WithSource names the export in error messages.
func WithSource(source string) CSVOption {
	return func(c *csvConfig) { c.source = source }
}

// NewCSVProvider parses a Portfolio Performance export.
func NewCSVProvider(reader io.Reader, opts ...CSVOption) (*CSVProvider, error) {
	cfg := csvConfig{fiat: "EUR", language: "de", source: "rates export"}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sep rune
	var thousands, dec string
	switch cfg.language {
	case "de":
		sep, thousands, dec = ';', ".", ","
	case "en":
		sep, thousands, dec = ',', ",", "."
	default:
		return nil, fmt.Errorf("unsupported rates export language %q", cfg.language)
	}

	r := csv.NewReader(reader)
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read rates header from %s: %w", cfg.source, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("rates export %s has no security columns", cfg.source)
	}

	columns := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		name = strings.TrimSpace(name)
		if mapped, ok := cfg.mapping[name]; ok {
			name = mapped
		}
		columns = append(columns, name)
	}

	p := &CSVProvider{
		source:  cfg.source,
		fiat:    cfg.fiat,
		rates:   make(map[string]map[string]decimal.Decimal),
		columns: columns,
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rates row from %s: %w", cfg.source, err)
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		day, err := parseDay(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("bad date in %s: %w", cfg.source, err)
		}

		quotes := make(map[string]decimal.Decimal, len(columns))
		for i, column := range columns {
			if i+1 >= len(row) {
				break
			}
			cell := strings.TrimSpace(row[i+1])
			if cell == "" {
				continue
			}
			rate, err := parseLocalizedDecimal(cell, thousands, dec)
			if err != nil {
				slog.Warn("Skipping unparseable rate cell",
					"source", cfg.source,
					"day", day,
					"column", column,
					"error", err)
				continue
			}
			quotes[column] = rate
		}

		if _, seen := p.rates[day]; !seen {
			p.days = append(p.days, day)
		}
		p.rates[day] = quotes
	}

	slog.Info("Loaded rates export",
		"source", cfg.source,
		"days", len(p.days),
		"securities", len(columns))

	return p, nil
}

// GetRate implements Provider.
func (p *CSVProvider) GetRate(_ context.Context, asset string, day time.Time) (decimal.Decimal, error) {
	key := day.Format(dayKey)
	column := asset + "-" + p.fiat

	quotes, ok := p.rates[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quotes for %s in %s (currency=%s): %w", key, p.source, column, ErrRateUnavailable)
	}
	rate, ok := quotes[column]
	if !ok {
		return decimal.Zero, fmt.Errorf("no column %s in %s: %w", column, p.source, ErrRateUnavailable)
	}
	return rate, nil
}

// Quotes returns every price point whose column is quoted in the provider's
// fiat currency, in deterministic order, for loading into the local store.
func (p *CSVProvider) Quotes() []Quote {
	suffix := "-" + p.fiat
	var quotes []Quote
	for _, day := range p.days {
		for _, column := range p.columns {
			rate, ok := p.rates[day][column]
			if !ok || !strings.HasSuffix(column, suffix) {
				continue
			}
			quotes = append(quotes, Quote{
				Day:   day,
				Asset: strings.TrimSuffix(column, suffix),
				Rate:  rate,
			})
		}
	}
	return quotes
}

// parseDay accepts the date spellings Portfolio Performance exports use.
func parseDay(s string) (string, error) {
	for _, layout := range []string{"2006-01-02", "02.01.2006", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dayKey), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// parseLocalizedDecimal strips the locale's thousands separator and
// normalizes the decimal separator before parsing.
func parseLocalizedDecimal(s, thousands, dec string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, thousands, "")
	if dec != "." {
		s = strings.ReplaceAll(s, dec, ".")
	}
	return decimal.NewFromString(s)
}
