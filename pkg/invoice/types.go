// Package invoice holds the domain types and the generation flow that ties
// the ledger, sequence allocator, document composer and store together.
package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicegen/pkg/currency"
	"github.com/invoicegen/pkg/ledger"
)

// CompanyProfile is the operator's company configuration: a singleton owned
// by the store, read as an immutable snapshot per generation.
type CompanyProfile struct {
	Name      string        `json:"company_name"`
	Address   string        `json:"company_address"`
	Phone     string        `json:"company_phone"`
	LogoPath  string        `json:"logo_path,omitempty"`
	Currency  currency.Code `json:"default_currency"`
	OutputDir string        `json:"output_dir"`
}

// BillingInfo identifies the customer being billed.
type BillingInfo struct {
	Name    string
	Address string
	Phone   string
}

// Record is the persisted representation of an issued invoice. It is created
// exactly once per successful generation and never updated.
type Record struct {
	ID             uuid.UUID
	OrderNumber    string
	InvoiceDate    time.Time
	BillingName    string
	BillingAddress string
	BillingPhone   string
	Currency       currency.Code
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	DocumentPath   string
	CreatedAt      time.Time
}

// Document carries everything the composer embeds in the rendered artifact.
// Monetary values come exclusively from the already-computed Totals; the
// composer never re-derives amounts.
type Document struct {
	Profile        CompanyProfile
	Billing        BillingInfo
	OrderNumber    string
	InvoiceDate    time.Time
	Currency       currency.Code
	TaxRatePercent decimal.Decimal
	Items          []ledger.LineItem
	Totals         ledger.Totals
}
