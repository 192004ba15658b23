// Package sequence allocates the day-scoped order numbers stamped on every
// invoice (INV-YYYYMMDD-NNNNN). Allocation is advisory: it derives the next
// number purely by inspecting prior records through DayQuery, and the store's
// uniqueness constraint on the order number remains the authoritative guard.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prefix is the fixed leading component of every order number.
const Prefix = "INV"

const (
	dayFormat   = "20060102"
	seqWidth    = 5
	maxSequence = 99999
)

// DayQuery is the single read capability required from the persistence
// collaborator: return the lexicographically greatest previously issued
// identifier matching the day prefix, or the empty string when none exists.
type DayQuery interface {
	FindLatestIdentifier(dayPrefix string) (string, error)
}

// CapacityError reports an exhausted day: more than 99999 invoices were
// issued for one calendar day and the fixed-width sequence cannot grow.
type CapacityError struct {
	Day string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("invoice sequence for day %s exhausted (max %d per day)", e.Day, maxSequence)
}

// DayPrefix returns the identifier prefix shared by all invoices issued on
// the given day, e.g. "INV-20251118-".
func DayPrefix(date time.Time) string {
	return Prefix + "-" + date.Format(dayFormat) + "-"
}

// Format builds the full order number for a date and 1-based sequence.
//
//	Format(2025-11-18, 1)  == "INV-20251118-00001"
//	Format(2025-11-18, 42) == "INV-20251118-00042"
func Format(date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%0*d", Prefix, date.Format(dayFormat), seqWidth, seq)
}

// NextIdentifier computes the next order number for the given day. The
// greatest existing identifier is looked up through q; its trailing sequence
// is incremented, or the sequence starts at 1 for an empty day.
//
// Zero-padded fixed-width sequences order lexicographically the same as
// numerically, which is what makes the greatest-string lookup correct. The
// width never grows: exceeding 99999 in one day returns a *CapacityError.
func NextIdentifier(date time.Time, q DayQuery) (string, error) {
	latest, err := q.FindLatestIdentifier(DayPrefix(date))
	if err != nil {
		return "", fmt.Errorf("querying latest identifier: %w", err)
	}

	next := 1
	if latest != "" {
		seq, err := parseSequence(latest)
		if err != nil {
			return "", err
		}
		next = seq + 1
	}
	if next > maxSequence {
		return "", &CapacityError{Day: date.Format(dayFormat)}
	}
	return Format(date, next), nil
}

// parseSequence extracts the trailing sequence component of an identifier.
func parseSequence(identifier string) (int, error) {
	idx := strings.LastIndex(identifier, "-")
	if idx < 0 || idx+1 == len(identifier) {
		return 0, fmt.Errorf("malformed identifier %q", identifier)
	}
	seq, err := strconv.Atoi(identifier[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed identifier %q: %w", identifier, err)
	}
	return seq, nil
}
