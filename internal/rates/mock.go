package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MockProvider is a canned-data Provider for tests. Rates are keyed by
// normalized asset code; an asset without an entry yields
// ErrRateUnavailable, like a real provider with a missing column.
type MockProvider struct {
	Rates map[string]decimal.Decimal

	// Calls records every lookup as "ASSET@2006-01-02".
	Calls []string
}

// NewMockProvider creates a mock with the given asset -> rate table.
func NewMockProvider(rates map[string]decimal.Decimal) *MockProvider {
	return &MockProvider{Rates: rates}
}

// GetRate implements Provider.
func (m *MockProvider) GetRate(_ context.Context, asset string, day time.Time) (decimal.Decimal, error) {
	m.Calls = append(m.Calls, asset+"@"+day.Format(dayKey))
	rate, ok := m.Rates[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("mock has no rate for %s: %w", asset, ErrRateUnavailable)
	}
	return rate, nil
}
