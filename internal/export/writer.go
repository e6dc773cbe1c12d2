// Package export serializes reconciliation results into the bookkeeping
// program's CSV import format. Field values and field order are part of the
// contract; numbers are written with six decimal places in the selected
// locale.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/model"
	"github.com/shopspring/decimal"
)

// Writer serializes depot and account records for one output locale.
type Writer struct {
	loc  locale
	lang Language
}

// NewWriter creates a writer for the given locale.
func NewWriter(lang Language) (*Writer, error) {
	loc, err := localeFor(lang)
	if err != nil {
		return nil, err
	}
	return &Writer{loc: loc, lang: lang}, nil
}

// WriteDepotNormal writes every depot record except inbound deliveries.
func (w *Writer) WriteDepotNormal(out io.Writer, records []model.DepotRecord) error {
	filtered := make([]model.DepotRecord, 0, len(records))
	for _, r := range records {
		if r.Type != model.DepotDeliveryInbound {
			filtered = append(filtered, r)
		}
	}
	return w.writeDepot(out, filtered, false)
}

// WriteDepotSpecial writes the inbound deliveries. The import dialog does
// not accept the inbound-delivery label directly, so these rows carry the
// buy label and are converted by hand during import.
func (w *Writer) WriteDepotSpecial(out io.Writer, records []model.DepotRecord) error {
	filtered := make([]model.DepotRecord, 0, len(records))
	for _, r := range records {
		if r.Type == model.DepotDeliveryInbound {
			filtered = append(filtered, r)
		}
	}
	return w.writeDepot(out, filtered, true)
}

func (w *Writer) writeDepot(out io.Writer, records []model.DepotRecord, rewriteInbound bool) error {
	cw := csv.NewWriter(out)
	cw.Comma = ';'

	if err := cw.Write(w.loc.depotHeader); err != nil {
		return fmt.Errorf("failed to write depot header: %w", err)
	}
	for _, r := range records {
		depotType := r.Type
		if rewriteInbound && depotType == model.DepotDeliveryInbound {
			depotType = model.DepotBuy
		}
		row := []string{
			r.Date,
			r.Time,
			w.loc.depotLabels[depotType],
			r.Asset,
			r.Amount.Format(w.formatNumber),
			r.Rate.Format(w.formatNumber),
			r.Value.Format(w.formatNumber),
			r.Fees.Format(w.formatNumber),
			r.Taxes.Format(w.formatNumber),
			r.Total.Format(w.formatNumber),
			r.Account,
			r.OtherAccount,
			r.Note,
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write depot record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAccount writes the cash-account records.
func (w *Writer) WriteAccount(out io.Writer, records []model.AccountRecord) error {
	cw := csv.NewWriter(out)
	cw.Comma = ';'

	if err := cw.Write(w.loc.accountHeader); err != nil {
		return fmt.Errorf("failed to write account header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date,
			r.Time,
			w.loc.accountLabels[r.Type],
			r.Amount.Format(w.formatNumber),
			r.Value.Format(w.formatNumber),
			r.Asset,
			r.Pieces.Format(w.formatNumber),
			r.PerPiece.Format(w.formatNumber),
			r.Account,
			r.Note,
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write account record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatNumber renders a decimal with six places and locale separators,
// e.g. 1499.9999 -> "1.499,999900" in German. Hand-rolled rather than
// routed through a float formatter so output stays byte-identical across
// runs.
func (w *Writer) formatNumber(d decimal.Decimal) string {
	s := d.StringFixed(6)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 && !(negative && b.Len() == 1) {
			b.WriteByte(w.loc.thousandsSep)
		}
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte(w.loc.decimalSep)
	b.WriteString(fracPart)
	return b.String()
}
