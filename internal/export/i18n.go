package export

import (
	"fmt"

	"github.com/Veraticus/ledgerflow/internal/model"
)

// Language selects the bookkeeping program's import locale: both the
// translated labels and the number formatting.
type Language string

const (
	// LangGerman produces the German import format (';' separated,
	// "1.234,56" numbers).
	LangGerman Language = "de"
	// LangEnglish produces the English import format.
	LangEnglish Language = "en"
)

type locale struct {
	depotHeader    []string
	accountHeader  []string
	depotLabels    map[model.DepotType]string
	accountLabels  map[model.AccountType]string
	thousandsSep   byte
	decimalSep     byte
}

var locales = map[Language]locale{
	LangGerman: {
		depotHeader: []string{
			"Datum", "Uhrzeit", "Typ", "Wertpapier", "Stück", "Kurs", "Betrag",
			"Gebühren", "Steuern", "Gesamtpreis", "Konto", "Gegenkonto", "Notiz", "Quelle",
		},
		accountHeader: []string{
			"Datum", "Uhrzeit", "Typ", "Betrag", "Saldo", "Wertpapier", "Stück",
			"pro Aktie", "Gegenkonto", "Notiz", "Quelle",
		},
		depotLabels: map[model.DepotType]string{
			model.DepotBuy:             "Kauf",
			model.DepotSell:            "Verkauf",
			model.DepotDeliveryInbound: "Einlieferung",
			model.DepotTransferOut:     "Umbuchung (Ausgang)",
		},
		accountLabels: map[model.AccountType]string{
			model.AccountDeposit: "Einzahlung",
			model.AccountRemoval: "Auszahlung",
			model.AccountFees:    "Gebühren",
		},
		thousandsSep: '.',
		decimalSep:   ',',
	},
	LangEnglish: {
		depotHeader: []string{
			"Date", "Time", "Type", "Security", "Shares", "Quote", "Amount",
			"Fees", "Taxes", "Value", "Account", "Offset Account", "Note", "Source",
		},
		accountHeader: []string{
			"Date", "Time", "Type", "Amount", "Balance", "Security", "Shares",
			"per Share", "Offset Account", "Note", "Source",
		},
		depotLabels: map[model.DepotType]string{
			model.DepotBuy:             "Buy",
			model.DepotSell:            "Sell",
			model.DepotDeliveryInbound: "Delivery (Inbound)",
			model.DepotTransferOut:     "Transfer (Outbound)",
		},
		accountLabels: map[model.AccountType]string{
			model.AccountDeposit: "Deposit",
			model.AccountRemoval: "Removal",
			model.AccountFees:    "Fees",
		},
		thousandsSep: ',',
		decimalSep:   '.',
	},
}

func localeFor(lang Language) (locale, error) {
	loc, ok := locales[lang]
	if !ok {
		return locale{}, fmt.Errorf("unsupported output language %q", lang)
	}
	return loc, nil
}
