package model

import "github.com/shopspring/decimal"

// Sentinel names the placeholder written into a numeric output field when
// no rate source was configured. Which sentinel is used depends on which
// field the rate lookup would have populated, so a human reconciling the
// export later can tell them apart.
type Sentinel string

const (
	SentinelRate  Sentinel = "DUMMYRATE"
	SentinelValue Sentinel = "DUMMYVAL"
	SentinelFees  Sentinel = "DUMMYFEES"
	SentinelTotal Sentinel = "DUMMYTOTAL"
)

type cellState uint8

const (
	cellEmpty cellState = iota
	cellNumber
	cellSentinel
)

// Cell is a numeric output field in one of three states: empty, a decimal
// number, or an unavailable-rate sentinel. Keeping the sentinel outside the
// numeric state makes arithmetic on a missing rate unrepresentable.
type Cell struct {
	num      decimal.Decimal
	sentinel Sentinel
	state    cellState
}

// EmptyCell returns the blank output field.
func EmptyCell() Cell {
	return Cell{}
}

// NumberCell returns a field holding d.
func NumberCell(d decimal.Decimal) Cell {
	return Cell{num: d, state: cellNumber}
}

// SentinelCell returns a field holding the unavailable-rate placeholder s.
func SentinelCell(s Sentinel) Cell {
	return Cell{sentinel: s, state: cellSentinel}
}

// IsEmpty reports whether the field is blank.
func (c Cell) IsEmpty() bool {
	return c.state == cellEmpty
}

// Number returns the numeric value and whether the field holds one.
func (c Cell) Number() (decimal.Decimal, bool) {
	return c.num, c.state == cellNumber
}

// Format renders the field: numbers through num, sentinels verbatim, blank
// fields as the empty string.
func (c Cell) Format(num func(decimal.Decimal) string) string {
	switch c.state {
	case cellNumber:
		return num(c.num)
	case cellSentinel:
		return string(c.sentinel)
	default:
		return ""
	}
}

// String renders the field with plain decimal formatting, for logs and
// tests. Serialization applies locale formatting instead.
func (c Cell) String() string {
	return c.Format(func(d decimal.Decimal) string { return d.String() })
}

// DepotType identifies a security-account movement.
type DepotType string

const (
	DepotBuy             DepotType = "buy"
	DepotSell            DepotType = "sell"
	DepotDeliveryInbound DepotType = "delivery_inbound"
	DepotTransferOut     DepotType = "transfer_out"
)

// AccountType identifies a cash-account movement.
type AccountType string

const (
	AccountDeposit AccountType = "deposit"
	AccountRemoval AccountType = "removal"
	AccountFees    AccountType = "fees"
)

// DepotRecord is one security-account movement in the bookkeeping import
// format. Created once by a kind handler, never mutated afterward.
type DepotRecord struct {
	Date         string
	Time         string
	Type         DepotType
	Asset        string // normalized currency code
	Amount       Cell
	Rate         Cell
	Value        Cell
	Fees         Cell
	Taxes        Cell
	Total        Cell
	Account      string
	OtherAccount string
	Note         string
	Source       string
}

// AccountRecord is one cash-account movement in the bookkeeping import
// format.
type AccountRecord struct {
	Date     string
	Time     string
	Type     AccountType
	Amount   Cell
	Value    Cell
	Asset    string
	Pieces   Cell
	PerPiece Cell
	Account  string
	Note     string
	Source   string
}
