package invoice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeStore struct {
	profile    *CompanyProfile
	latest     string
	queryCalls int
	saved      []*Record
	saveErr    error
}

func (f *fakeStore) FindLatestIdentifier(dayPrefix string) (string, error) {
	f.queryCalls++
	return f.latest, nil
}

func (f *fakeStore) SaveRecord(ctx context.Context, rec *Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) LoadProfile(ctx context.Context) (*CompanyProfile, error) {
	if f.profile == nil {
		return nil, ErrProfileNotFound
	}
	return f.profile, nil
}

type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) Render(doc Document, outPath string) error {
	f.calls++
	if f.err != nil {
		// Simulate a partial write before the failure.
		_ = os.WriteFile(outPath, []byte("partial"), 0o644)
		return f.err
	}
	return os.WriteFile(outPath, []byte("%PDF-fake"), 0o644)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile(t *testing.T) *CompanyProfile {
	return &CompanyProfile{
		Name:      "Acme Corporation",
		Address:   "456 Business Avenue",
		Phone:     "+1-555-0123",
		Currency:  "USD",
		OutputDir: t.TempDir(),
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		profile := testProfile(t)
		st := &fakeStore{profile: profile}
		rd := &fakeRenderer{}
		gen := NewGenerator(st, rd, testLogger())

		res, err := gen.Generate(ctx, validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Record.OrderNumber != "INV-20251118-00001" {
			t.Errorf("order number = %q", res.Record.OrderNumber)
		}
		if !res.Record.Subtotal.Equal(dec("130.00")) ||
			!res.Record.TaxAmount.Equal(dec("13.00")) ||
			!res.Record.DiscountAmount.Equal(dec("5.00")) ||
			!res.Record.Total.Equal(dec("138.00")) {
			t.Errorf("totals = %s/%s/%s/%s",
				res.Record.Subtotal, res.Record.TaxAmount,
				res.Record.DiscountAmount, res.Record.Total)
		}
		if res.Record.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Error("record ID not assigned")
		}
		want := filepath.Join(profile.OutputDir, "INV-20251118-00001.pdf")
		if res.DocumentPath != want {
			t.Errorf("document path = %q, want %q", res.DocumentPath, want)
		}
		if _, err := os.Stat(res.DocumentPath); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
		if len(st.saved) != 1 {
			t.Fatalf("saved %d records, want 1", len(st.saved))
		}
		if rd.calls != 1 {
			t.Errorf("renderer called %d times", rd.calls)
		}
	})

	t.Run("continues an existing day sequence", func(t *testing.T) {
		st := &fakeStore{profile: testProfile(t), latest: "INV-20251118-00041"}
		gen := NewGenerator(st, &fakeRenderer{}, testLogger())

		res, err := gen.Generate(ctx, validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Record.OrderNumber != "INV-20251118-00042" {
			t.Errorf("order number = %q", res.Record.OrderNumber)
		}
	})

	t.Run("validation failure allocates nothing", func(t *testing.T) {
		st := &fakeStore{profile: testProfile(t)}
		rd := &fakeRenderer{}
		gen := NewGenerator(st, rd, testLogger())

		req := validRequest()
		req.BillingName = ""
		_, err := gen.Generate(ctx, req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want *ValidationError", err)
		}
		if st.queryCalls != 0 {
			t.Errorf("DayQuery called %d times on validation failure", st.queryCalls)
		}
		if rd.calls != 0 || len(st.saved) != 0 {
			t.Error("side effects occurred despite validation failure")
		}
	})

	t.Run("whitespace-only billing name allocates nothing", func(t *testing.T) {
		st := &fakeStore{profile: testProfile(t)}
		rd := &fakeRenderer{}
		gen := NewGenerator(st, rd, testLogger())

		req := validRequest()
		req.BillingName = "   "
		_, err := gen.Generate(ctx, req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want *ValidationError", err)
		}
		if verr.Field != "billing_name" {
			t.Errorf("violation on field %q, want billing_name", verr.Field)
		}
		if st.queryCalls != 0 || rd.calls != 0 || len(st.saved) != 0 {
			t.Error("side effects occurred despite validation failure")
		}
	})

	t.Run("render failure removes partial artifact and skips persistence", func(t *testing.T) {
		profile := testProfile(t)
		st := &fakeStore{profile: profile}
		rd := &fakeRenderer{err: errors.New("disk full")}
		gen := NewGenerator(st, rd, testLogger())

		_, err := gen.Generate(ctx, validRequest())
		if !errors.Is(err, ErrRender) {
			t.Fatalf("error = %v, want ErrRender", err)
		}
		if len(st.saved) != 0 {
			t.Error("record persisted despite render failure")
		}
		leftover := filepath.Join(profile.OutputDir, "INV-20251118-00001.pdf")
		if _, statErr := os.Stat(leftover); !os.IsNotExist(statErr) {
			t.Error("partial artifact left behind")
		}
	})

	t.Run("duplicate identifier keeps artifact and reports persistence failure", func(t *testing.T) {
		profile := testProfile(t)
		st := &fakeStore{profile: profile, saveErr: ErrDuplicateIdentifier}
		gen := NewGenerator(st, &fakeRenderer{}, testLogger())

		_, err := gen.Generate(ctx, validRequest())
		if !errors.Is(err, ErrDuplicateIdentifier) {
			t.Fatalf("error = %v, want ErrDuplicateIdentifier", err)
		}
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("error = %v, want ErrPersistence category", err)
		}
		artifact := filepath.Join(profile.OutputDir, "INV-20251118-00001.pdf")
		if _, statErr := os.Stat(artifact); statErr != nil {
			t.Error("artifact must be kept when only persistence failed")
		}
	})

	t.Run("missing profile propagates", func(t *testing.T) {
		gen := NewGenerator(&fakeStore{}, &fakeRenderer{}, testLogger())
		_, err := gen.Generate(ctx, validRequest())
		if !errors.Is(err, ErrProfileNotFound) {
			t.Fatalf("error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("request currency overrides profile default", func(t *testing.T) {
		st := &fakeStore{profile: testProfile(t)}
		gen := NewGenerator(st, &fakeRenderer{}, testLogger())

		req := validRequest()
		req.Currency = "EUR"
		res, err := gen.Generate(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Record.Currency != "EUR" {
			t.Errorf("currency = %s, want EUR", res.Record.Currency)
		}
	})

	t.Run("blank request currency falls back to profile default", func(t *testing.T) {
		st := &fakeStore{profile: testProfile(t)}
		gen := NewGenerator(st, &fakeRenderer{}, testLogger())

		req := validRequest()
		req.Currency = ""
		res, err := gen.Generate(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Record.Currency != "USD" {
			t.Errorf("currency = %s, want USD", res.Record.Currency)
		}
	})
}
