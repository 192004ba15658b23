package invoice

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/invoicegen/pkg/currency"
	"github.com/invoicegen/pkg/ledger"
)

// ItemInput is one raw line-item row as collected from the operator. Rows
// with a blank description are skipped, not rejected.
type ItemInput struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// Request is the raw order intake: field values exactly as the operator
// entered them, before any parsing. Struct field order matters: required-tag
// violations are reported fail-fast in this order.
type Request struct {
	BillingName    string      `json:"billing_name" validate:"required"`
	BillingAddress string      `json:"billing_address" validate:"required"`
	BillingPhone   string      `json:"billing_phone" validate:"required"`
	InvoiceDate    string      `json:"invoice_date" validate:"required"`
	Currency       string      `json:"currency"`
	TaxRate        string      `json:"tax_rate"`
	Discount       string      `json:"discount"`
	Items          []ItemInput `json:"items" validate:"required,min=1"`
}

// order is the parsed, validated form of a Request.
type order struct {
	date     time.Time
	billing  BillingInfo
	code     currency.Code
	taxRate  decimal.Decimal
	discount decimal.Decimal
	items    []ledger.LineItem
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// parseAndValidate checks the request field by field and returns the parsed
// order, or a *ValidationError for the first violation encountered. Fields
// are stripped before the required checks run, so whitespace-only input is
// rejected the same as empty input.
func (r *Request) parseAndValidate() (*order, error) {
	req := *r
	req.BillingName = strings.TrimSpace(r.BillingName)
	req.BillingAddress = strings.TrimSpace(r.BillingAddress)
	req.BillingPhone = strings.TrimSpace(r.BillingPhone)
	req.InvoiceDate = strings.TrimSpace(r.InvoiceDate)
	req.Currency = strings.TrimSpace(r.Currency)

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Field: verrs[0].Field(), Message: tagMessage(verrs[0])}
		}
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.InvoiceDate)
	if err != nil {
		return nil, &ValidationError{Field: "invoice_date", Message: "invalid date format (use YYYY-MM-DD)"}
	}

	taxRate, verr := nonNegativeAmount(req.TaxRate, "tax_rate")
	if verr != nil {
		return nil, verr
	}
	discount, verr := nonNegativeAmount(req.Discount, "discount")
	if verr != nil {
		return nil, verr
	}

	items := make([]ledger.LineItem, 0, len(r.Items))
	for _, in := range r.Items {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(in.Quantity))
		if err != nil {
			return nil, &ValidationError{Field: "items", Message: "quantity must be a valid integer"}
		}
		if qty <= 0 {
			return nil, &ValidationError{Field: "items", Message: "quantity must be greater than 0"}
		}
		price, verr := nonNegativeAmount(in.UnitPrice, "items")
		if verr != nil {
			return nil, verr
		}
		items = append(items, ledger.LineItem{Description: desc, Quantity: qty, UnitPrice: price})
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one line item with a description is required"}
	}

	return &order{
		date: date,
		billing: BillingInfo{
			Name:    req.BillingName,
			Address: req.BillingAddress,
			Phone:   req.BillingPhone,
		},
		code:     currency.Code(req.Currency),
		taxRate:  taxRate,
		discount: discount,
		items:    items,
	}, nil
}

// nonNegativeAmount parses a free-form monetary field. Empty input is an
// explicit zero, mirroring the parser's policy.
func nonNegativeAmount(value, field string) (decimal.Decimal, *ValidationError) {
	d, err := currency.Parse(value)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: field, Message: "must be a valid number"}
	}
	if d.IsNegative() {
		return decimal.Decimal{}, &ValidationError{Field: field, Message: "must not be negative"}
	}
	return d, nil
}

func tagMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "at least one line item is required"
	default:
		return "failed validation on '" + e.Tag() + "'"
	}
}
