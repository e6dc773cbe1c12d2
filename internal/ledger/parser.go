// Package ledger reads the exchange's ledger CSV export into the model.
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/model"
	"github.com/shopspring/decimal"
)

// Columns of the Kraken ledger export. Missing columns yield empty fields
// rather than an error.
var columns = []string{"txid", "refid", "time", "type", "subtype", "aclass", "asset", "amount", "fee", "balance"}

// Parser implements ledger CSV parsing.
type Parser struct{}

// NewParser creates a new ledger parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses a ledger export and returns normalized entries in input
// order. Malformed rows propagate as entries with empty fields rather than
// failing the run; only an unreadable file or a missing header is fatal.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.LedgerEntry, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"refid", "time", "type", "asset", "amount"} {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("ledger export is missing the %q column", name)
		}
	}

	var entries []model.LedgerEntry
	var malformed int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger row: %w", err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		entry := model.LedgerEntry{
			TxID:    field("txid"),
			RefID:   field("refid"),
			Time:    field("time"),
			Kind:    field("type"),
			Subtype: field("subtype"),
			Asset:   field("asset"),
			Balance: field("balance"),
		}
		entry.Date, entry.Clock = splitTimestamp(entry.Time)

		var ok bool
		entry.Amount, ok = parseDecimal(field("amount"))
		if !ok {
			malformed++
		}
		entry.Fee, ok = parseDecimal(field("fee"))
		if !ok {
			malformed++
		}

		entries = append(entries, entry)
	}

	if malformed > 0 {
		slog.Warn("Ledger rows with unparseable numeric fields were kept with zero values",
			"fields", malformed)
	}

	slog.Info("Parsed ledger export",
		"entries", len(entries))

	return entries, nil
}

// splitTimestamp splits "2021-04-21 07:03:52.1234" into the calendar date
// and the time of day with fractional seconds removed. A timestamp without
// a time part yields an empty clock.
func splitTimestamp(ts string) (date, clock string) {
	fields := strings.Fields(ts)
	if len(fields) == 0 {
		return "", ""
	}
	date = fields[0]
	if len(fields) > 1 {
		clock = strings.SplitN(fields[1], ".", 2)[0]
	}
	return date, clock
}

// parseDecimal parses a ledger numeric field. Empty and malformed values
// become zero so a bad row degrades instead of aborting the run.
func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
