package cart

import (
	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
)

// Summarize recomputes the derived cart summary from the full item list. It is
// deliberately a full recompute rather than an incremental patch; applying it
// twice over the same list yields identical output. Tax is rounded to two
// fractional digits at this boundary only.
func Summarize(items []domain.CartItem, taxRate decimal.Decimal) domain.CartSummary {
	summary := domain.CartSummary{
		Subtotal:  decimal.Zero,
		TaxAmount: decimal.Zero,
		Total:     decimal.Zero,
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		summary.TotalServices++
		summary.TotalItems += item.Quantity
		summary.Subtotal = summary.Subtotal.Add(lineSubtotal(item.UnitPrice, item.Quantity))
	}
	summary.TaxAmount = summary.Subtotal.Mul(taxRate).Round(2)
	summary.Total = summary.Subtotal.Add(summary.TaxAmount)
	return summary
}

func lineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	if unitPrice.IsNegative() || quantity <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
