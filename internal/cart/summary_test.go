package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
)

func TestSummarizeEmptyList(t *testing.T) {
	summary := Summarize(nil, testTaxRate)
	if summary.TotalServices != 0 || summary.TotalItems != 0 {
		t.Fatalf("expected zero counts, got %+v", summary)
	}
	if !summary.Subtotal.IsZero() || !summary.TaxAmount.IsZero() || !summary.Total.IsZero() {
		t.Fatalf("expected zero amounts, got %+v", summary)
	}
}

func TestSummarizeIsPure(t *testing.T) {
	items := []domain.CartItem{
		{ID: "a", UnitPrice: decimal.NewFromInt(199), Quantity: 3, AddedAt: time.Now()},
		{ID: "b", UnitPrice: decimal.RequireFromString("49.50"), Quantity: 2},
	}
	first := Summarize(items, testTaxRate)
	second := Summarize(items, testTaxRate)

	if first.TotalItems != second.TotalItems || !first.Total.Equal(second.Total) {
		t.Fatalf("expected identical summaries, got %+v and %+v", first, second)
	}
}

func TestSummarizeRoundsTaxAtBoundary(t *testing.T) {
	// 3 x 33.33 = 99.99; 18% tax = 17.9982, rounded to 18.00 at the boundary.
	items := []domain.CartItem{
		{ID: "a", UnitPrice: decimal.RequireFromString("33.33"), Quantity: 3},
	}
	summary := Summarize(items, testTaxRate)
	if !summary.Subtotal.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("expected subtotal 99.99, got %s", summary.Subtotal)
	}
	if !summary.TaxAmount.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("expected tax 18.00, got %s", summary.TaxAmount)
	}
	if !summary.Total.Equal(decimal.RequireFromString("117.99")) {
		t.Fatalf("expected total 117.99, got %s", summary.Total)
	}
}

func TestSummarizeSkipsNonPositiveQuantities(t *testing.T) {
	items := []domain.CartItem{
		{ID: "a", UnitPrice: decimal.NewFromInt(100), Quantity: 0},
		{ID: "b", UnitPrice: decimal.NewFromInt(200), Quantity: 1},
	}
	summary := Summarize(items, testTaxRate)
	if summary.TotalServices != 1 {
		t.Fatalf("expected 1 counted service, got %d", summary.TotalServices)
	}
	if !summary.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected subtotal 200, got %s", summary.Subtotal)
	}
}
