package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/invoicegen/pkg/invoice"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23505", ConstraintName: "idx_invoices_order_number"}
		if !isUniqueViolation(err) {
			t.Fatal("expected true for SQLSTATE 23505")
		}
	})

	t.Run("wrapped unique violation", func(t *testing.T) {
		err := fmt.Errorf("create failed: %w", &pgconn.PgError{Code: "23505"})
		if !isUniqueViolation(err) {
			t.Fatal("expected true for wrapped 23505")
		}
	})

	t.Run("other pg error", func(t *testing.T) {
		if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
			t.Fatal("foreign-key violation must not count")
		}
	})

	t.Run("non pg error", func(t *testing.T) {
		if isUniqueViolation(errors.New("boom")) {
			t.Fatal("plain errors must not count")
		}
	})
}

func TestRecordRowConversion(t *testing.T) {
	rec := invoice.Record{
		ID:             uuid.New(),
		OrderNumber:    "INV-20251118-00007",
		InvoiceDate:    time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
		BillingName:    "John Doe",
		BillingAddress: "123 Customer Street",
		BillingPhone:   "+1-555-9999",
		Currency:       "EUR",
		Subtotal:       decimal.RequireFromString("130.00"),
		TaxAmount:      decimal.RequireFromString("13.00"),
		DiscountAmount: decimal.RequireFromString("5.00"),
		Total:          decimal.RequireFromString("138.00"),
		DocumentPath:   "invoices/INV-20251118-00007.pdf",
		CreatedAt:      time.Now().UTC(),
	}

	row := fromRecord(&rec)
	back := toRecord(&row)

	if back.ID != rec.ID || back.OrderNumber != rec.OrderNumber {
		t.Fatalf("identity fields changed: %+v", back)
	}
	if back.Currency != rec.Currency {
		t.Fatalf("currency = %s, want %s", back.Currency, rec.Currency)
	}
	if !back.Subtotal.Equal(rec.Subtotal) || !back.Total.Equal(rec.Total) {
		t.Fatalf("amounts changed: %+v", back)
	}
	if back.DocumentPath != rec.DocumentPath {
		t.Fatalf("document path changed: %q", back.DocumentPath)
	}
}
