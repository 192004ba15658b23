// Package currency formats and parses monetary amounts for the supported
// currency codes. Formatting is display-only; arithmetic stays in
// shopspring/decimal everywhere else.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies a supported currency.
type Code string

// Supported currency codes.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	LKR Code = "LKR"
)

// ErrParse indicates free-form text could not be interpreted as an amount.
var ErrParse = errors.New("unparseable amount")

// fallbackSymbol is used for unknown codes so rendering never fails on an
// unrecognized currency.
const fallbackSymbol = "$"

var symbols = map[Code]string{
	USD: "$",
	EUR: "€",
	LKR: "Rs. ",
}

var names = map[Code]string{
	USD: "US Dollar",
	EUR: "Euro",
	LKR: "Sri Lankan Rupee",
}

// Codes returns the closed set of supported currency codes.
func Codes() []Code {
	return []Code{USD, EUR, LKR}
}

// Name returns the full name of a currency. Unknown codes are echoed back
// unchanged.
func Name(code Code) string {
	if n, ok := names[code]; ok {
		return n
	}
	return string(code)
}

// Format renders an amount with the currency's symbol, thousands grouping and
// exactly two fraction digits. EUR swaps the grouping and decimal separators
// (1.234,56); every other code uses 1,234.56. Unknown codes fall back to the
// default symbol rather than failing.
func Format(amount decimal.Decimal, code Code) string {
	symbol, ok := symbols[code]
	if !ok {
		symbol = fallbackSymbol
	}

	fixed := amount.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	body := groupThousands(intPart) + "." + fracPart
	if code == EUR {
		body = swapSeparators(body)
	}
	if negative {
		body = "-" + body
	}
	return symbol + body
}

// Parse recovers a numeric amount from free-form user text. Every character
// that is not a digit, sign, comma or period is stripped; commas are treated
// as thousands separators and removed. Empty or whitespace-only input parses
// to zero. Text with no numeric content left after cleaning fails with
// ErrParse.
func Parse(text string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, nil
	}

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrParse, text)
	}
	return d, nil
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	first := n % 3
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// swapSeparators exchanges commas and periods (US grouping -> European).
func swapSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',':
			return '.'
		case '.':
			return ','
		}
		return r
	}, s)
}
