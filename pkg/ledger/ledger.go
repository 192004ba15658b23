// Package ledger computes invoice totals from line items. All functions are
// pure and safe to call repeatedly for live recalculation while an order is
// being edited.
package ledger

import "github.com/shopspring/decimal"

// LineItem is a single billable row on an invoice. It is constructed per
// document and never mutated after totals are computed from it.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity times unit price, unrounded.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Totals holds the computed monetary summary of an invoice, every field
// rounded to two fraction digits.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives the monetary summary for a set of line items:
//
//	subtotal = Σ(quantity × unit price)
//	tax      = subtotal × taxRatePercent / 100
//	total    = subtotal + tax − discount
//
// Each output field is rounded to two digits independently; the total is
// computed from the unrounded intermediates and then rounded itself. That
// ordering can differ by a cent from rounding only the final sum and is
// preserved deliberately so totals match previously issued documents.
//
// No validation happens here: a discount larger than subtotal plus tax yields
// a negative total. Rejecting or clamping that is the caller's decision.
func ComputeTotals(items []LineItem, taxRatePercent, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	tax := subtotal.Mul(taxRatePercent).Div(hundred)
	total := subtotal.Add(tax).Sub(discount)

	return Totals{
		Subtotal:       subtotal.Round(2),
		TaxAmount:      tax.Round(2),
		DiscountAmount: discount.Round(2),
		Total:          total.Round(2),
	}
}
