package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicegen/pkg/invoice"
	"github.com/invoicegen/pkg/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testComposer() *Composer {
	return NewComposer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testDocument(itemCount int) invoice.Document {
	items := make([]ledger.LineItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, ledger.LineItem{
			Description: "Professional Web Design Service",
			Quantity:    2,
			UnitPrice:   dec("50.0"),
		})
	}
	taxRate := dec("10")
	discount := dec("5")
	return invoice.Document{
		Profile: invoice.CompanyProfile{
			Name:    "Acme Corporation",
			Address: "456 Business Avenue\nSuite 100\nNew York, NY 10002",
			Phone:   "+1-555-0123",
		},
		Billing: invoice.BillingInfo{
			Name:    "John Doe",
			Address: "123 Customer Street\nApt 4B\nNew York, NY 10001",
			Phone:   "+1-555-9999",
		},
		OrderNumber:    "INV-20251118-00001",
		InvoiceDate:    time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
		Currency:       "USD",
		TaxRatePercent: taxRate,
		Items:          items,
		Totals:         ledger.ComputeTotals(items, taxRate, discount),
	}
}

func writeLogo(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	for x := 0; x < 200; x++ {
		for y := 0; y < 80; y++ {
			img.Set(x, y, color.RGBA{R: 44, G: 62, B: 80, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("artifact is not a PDF")
	}
}

func TestSpacingScale(t *testing.T) {
	cases := []struct {
		items int
		want  float64
	}{
		{0, compressedScale},
		{1, compressedScale},
		{3, compressedScale},
		{4, 1.0},
		{50, 1.0},
	}
	for _, tc := range cases {
		if got := SpacingScale(tc.items); got != tc.want {
			t.Errorf("SpacingScale(%d) = %v, want %v", tc.items, got, tc.want)
		}
	}
}

func TestRender(t *testing.T) {
	t.Run("small invoice", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "INV-20251118-00001.pdf")
		if err := testComposer().Render(testDocument(2), out); err != nil {
			t.Fatalf("Render: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("large invoice paginates without error", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "big.pdf")
		if err := testComposer().Render(testDocument(60), out); err != nil {
			t.Fatalf("Render: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("with logo", func(t *testing.T) {
		doc := testDocument(2)
		doc.Profile.LogoPath = writeLogo(t)
		out := filepath.Join(t.TempDir(), "logo.pdf")
		if err := testComposer().Render(doc, out); err != nil {
			t.Fatalf("Render: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("missing logo is non-fatal", func(t *testing.T) {
		doc := testDocument(2)
		doc.Profile.LogoPath = filepath.Join(t.TempDir(), "no-such-logo.png")
		out := filepath.Join(t.TempDir(), "nologo.pdf")
		if err := testComposer().Render(doc, out); err != nil {
			t.Fatalf("Render must not fail on a missing logo: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("unreadable logo is non-fatal", func(t *testing.T) {
		bogus := filepath.Join(t.TempDir(), "bogus.png")
		if err := os.WriteFile(bogus, []byte("not an image"), 0o644); err != nil {
			t.Fatal(err)
		}
		doc := testDocument(2)
		doc.Profile.LogoPath = bogus
		out := filepath.Join(t.TempDir(), "badlogo.pdf")
		if err := testComposer().Render(doc, out); err != nil {
			t.Fatalf("Render must not fail on an unreadable logo: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("eur document", func(t *testing.T) {
		doc := testDocument(2)
		doc.Currency = "EUR"
		out := filepath.Join(t.TempDir(), "eur.pdf")
		if err := testComposer().Render(doc, out); err != nil {
			t.Fatalf("Render: %v", err)
		}
		assertPDF(t, out)
	})

	t.Run("unwritable output leaves no artifact", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "missing-subdir", "out.pdf")
		if err := testComposer().Render(testDocument(1), out); err == nil {
			t.Fatal("expected error for unwritable output path")
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Fatal("partial artifact left behind")
		}
	})
}

func TestProbeImage(t *testing.T) {
	w, h, imgType, err := probeImage(writeLogo(t))
	if err != nil {
		t.Fatalf("probeImage: %v", err)
	}
	if w != 200 || h != 80 || imgType != "PNG" {
		t.Fatalf("probeImage = %d x %d %s", w, h, imgType)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := "This is a long description"
	if got := truncate(long, 10); got != "This is..." {
		t.Errorf("truncate = %q", got)
	}
}
