package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/invoicegen/pkg/ledger"
	"github.com/invoicegen/pkg/sequence"
)

// Store is the persistence collaborator contract consumed by the generation
// flow. FindLatestIdentifier (via sequence.DayQuery) is the read capability
// used by the allocator; SaveRecord must fail with ErrDuplicateIdentifier
// when the order number already exists.
type Store interface {
	sequence.DayQuery
	SaveRecord(ctx context.Context, rec *Record) error
	LoadProfile(ctx context.Context) (*CompanyProfile, error)
}

// Renderer is the document rendering backend: it turns a Document into a
// single durable artifact at outPath.
type Renderer interface {
	Render(doc Document, outPath string) error
}

// Generator drives one invoice generation end to end: validate, compute
// totals, allocate the order number, render, persist.
type Generator struct {
	store    Store
	renderer Renderer
	log      *slog.Logger
}

// NewGenerator wires a Generator from its collaborators.
func NewGenerator(store Store, renderer Renderer, log *slog.Logger) *Generator {
	return &Generator{store: store, renderer: renderer, log: log}
}

// Result reports a successful generation.
type Result struct {
	Record       Record
	DocumentPath string
}

// Generate produces one invoice from raw order data.
//
// Validation is fail-fast and happens before any side effect: on a
// *ValidationError no identifier is allocated, nothing is rendered and
// nothing is stored. A render failure removes the partial artifact and
// returns before persistence. A persistence failure after a successful
// render leaves the artifact on disk for the operator and reports
// ErrPersistence (or ErrDuplicateIdentifier) rather than claiming success.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	ord, err := req.parseAndValidate()
	if err != nil {
		return nil, err
	}

	profile, err := g.store.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}

	code := ord.code
	if code == "" {
		code = profile.Currency
	}

	totals := ledger.ComputeTotals(ord.items, ord.taxRate, ord.discount)

	orderNumber, err := sequence.NextIdentifier(ord.date, g.store)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(profile.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output dir: %v", ErrRender, err)
	}
	docPath := filepath.Join(profile.OutputDir, orderNumber+".pdf")

	doc := Document{
		Profile:        *profile,
		Billing:        ord.billing,
		OrderNumber:    orderNumber,
		InvoiceDate:    ord.date,
		Currency:       code,
		TaxRatePercent: ord.taxRate,
		Items:          ord.items,
		Totals:         totals,
	}
	if err := g.renderer.Render(doc, docPath); err != nil {
		// Never leave a half-written artifact behind a failure.
		_ = os.Remove(docPath)
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	rec := Record{
		ID:             uuid.New(),
		OrderNumber:    orderNumber,
		InvoiceDate:    ord.date,
		BillingName:    ord.billing.Name,
		BillingAddress: ord.billing.Address,
		BillingPhone:   ord.billing.Phone,
		Currency:       code,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		DocumentPath:   docPath,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.store.SaveRecord(ctx, &rec); err != nil {
		// The artifact already exists on disk; keep it for the operator.
		if errors.Is(err, ErrDuplicateIdentifier) {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	g.log.Info("invoice generated",
		"order_number", orderNumber,
		"total", totals.Total.StringFixed(2),
		"currency", string(code),
		"path", docPath,
	)
	return &Result{Record: rec, DocumentPath: docPath}, nil
}
