package lifecycle

import (
	"github.com/shopspring/decimal"

	"tripdesk/internal/domain"
)

// SettlementValue is collection minus commercial price. Positive means the
// counterparty owes the agency, negative means the agency owes.
func SettlementValue(t *domain.Trip) decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	return t.Collection.Sub(t.CommercialPrice)
}

// SettlementDirection labels the sign of a settlement value.
func SettlementDirection(v decimal.Decimal) string {
	switch v.Sign() {
	case 1:
		return "owed_to_agency"
	case -1:
		return "owed_by_agency"
	default:
		return "balanced"
	}
}
