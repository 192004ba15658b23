// Package pdf renders invoice documents to PDF artifacts. It is the terminal
// sink of the generation flow: a Document goes in, one A4 file comes out.
package pdf

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/invoicegen/pkg/currency"
	"github.com/invoicegen/pkg/invoice"
)

const (
	pageMargin   = 19.05 // 0.75in in mm
	contentWidth = 210 - 2*pageMargin

	logoMaxWidth   = 40.0 // mm
	descriptionMax = 60

	// Invoices with few items get compressed inter-section spacing so the
	// document stays on a single page.
	compressThreshold = 3
	compressedScale   = 0.6
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{44, 62, 80}    // #2C3E50
	colorSecondary = rgb{52, 152, 219}  // #3498DB
	colorLightGray = rgb{236, 240, 241} // #ECF0F1
	colorDarkGray  = rgb{127, 140, 141} // #7F8C8D
)

// SpacingScale returns the inter-section spacing multiplier for an invoice
// with n line items. It is a pure function of the item count.
func SpacingScale(n int) float64 {
	if n <= compressThreshold {
		return compressedScale
	}
	return 1.0
}

// Composer lays out and renders invoice documents.
type Composer struct {
	log *slog.Logger
}

// NewComposer returns a Composer that reports non-fatal asset problems
// through log.
func NewComposer(log *slog.Logger) *Composer {
	return &Composer{log: log}
}

var _ invoice.Renderer = (*Composer)(nil)

// section is one block of the transient document structure, in render order.
type section struct {
	name       string
	spaceAfter float64 // mm, already scaled
	draw       func(p *gofpdf.Fpdf, tr func(string) string)
}

// compose builds the ordered section sequence for a document. The structure
// is transient: built, drawn, then discarded.
func (c *Composer) compose(doc invoice.Document) []section {
	scale := SpacingScale(len(doc.Items))
	return []section{
		{"banner", 6 * scale, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawBanner(p) }},
		{"header", 8 * scale, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawHeader(p, tr, doc) }},
		{"billing", 8 * scale, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawBilling(p, tr, doc.Billing) }},
		{"items", 5 * scale, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawItems(p, tr, doc) }},
		{"totals", 10 * scale, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawTotals(p, tr, doc) }},
		{"footer", 0, func(p *gofpdf.Fpdf, tr func(string) string) { c.drawFooter(p, tr) }},
	}
}

// Render writes the document to a single PDF at outPath. A failure never
// leaves a partial file behind.
func (c *Composer) Render(doc invoice.Document, outPath string) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetAutoPageBreak(true, pageMargin)
	tr := p.UnicodeTranslatorFromDescriptor("")

	// Page-completion hook: stamp a page number on every finished page.
	p.SetFooterFunc(func() {
		p.SetY(-pageMargin + 6)
		p.SetFont("Helvetica", "", 8)
		p.SetTextColor(colorDarkGray.r, colorDarkGray.g, colorDarkGray.b)
		p.CellFormat(0, 5, fmt.Sprintf("Page %d", p.PageNo()), "", 0, "R", false, 0, "")
	})

	p.AddPage()
	for _, s := range c.compose(doc) {
		s.draw(p, tr)
		if s.spaceAfter > 0 {
			p.Ln(s.spaceAfter)
		}
	}

	if err := p.OutputFileAndClose(outPath); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// drawBanner draws the decorative rule across the top of the document.
func (c *Composer) drawBanner(p *gofpdf.Fpdf) {
	y := p.GetY()
	p.SetFillColor(colorSecondary.r, colorSecondary.g, colorSecondary.b)
	p.Rect(pageMargin, y, contentWidth, 1.5, "F")
	p.SetY(y + 1.5)
}

// drawHeader draws the two-column header: company identity on the left,
// invoice metadata on the right.
func (c *Composer) drawHeader(p *gofpdf.Fpdf, tr func(string) string, doc invoice.Document) {
	const leftWidth = 100.0
	rightWidth := contentWidth - leftWidth
	top := p.GetY()

	// Left column.
	if doc.Profile.LogoPath != "" {
		c.drawLogo(p, doc.Profile.LogoPath)
	}
	p.SetX(pageMargin)
	p.SetFont("Helvetica", "B", 18)
	p.SetTextColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	p.MultiCell(leftWidth, 8, tr(doc.Profile.Name), "", "L", false)

	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(0, 0, 0)
	p.MultiCell(leftWidth, 4.5, tr(doc.Profile.Address), "", "L", false)
	p.MultiCell(leftWidth, 4.5, tr("Phone: "+doc.Profile.Phone), "", "L", false)
	leftBottom := p.GetY()

	// Right column.
	y := top
	line := func(txt, style string, size, h float64, color rgb) {
		p.SetXY(pageMargin+leftWidth, y)
		p.SetFont("Helvetica", style, size)
		p.SetTextColor(color.r, color.g, color.b)
		p.CellFormat(rightWidth, h, tr(txt), "", 0, "R", false, 0, "")
		y += h
	}
	line("INVOICE", "B", 24, 11, colorSecondary)
	line("Order #: "+doc.OrderNumber, "", 9, 5, rgb{0, 0, 0})
	line("Date: "+doc.InvoiceDate.Format("January 2, 2006"), "", 9, 5, rgb{0, 0, 0})
	line("Currency: "+string(doc.Currency), "", 9, 5, rgb{0, 0, 0})

	if y > leftBottom {
		leftBottom = y
	}
	p.SetXY(pageMargin, leftBottom)
}

// drawLogo places the company logo scaled to the fixed maximum width while
// preserving aspect ratio. A missing or unreadable file is skipped with a
// diagnostic; it never aborts the render.
func (c *Composer) drawLogo(p *gofpdf.Fpdf, path string) {
	w, h, imgType, err := probeImage(path)
	if err != nil {
		c.log.Warn("skipping logo", "path", path, "error", err.Error())
		return
	}
	scaledH := logoMaxWidth * float64(h) / float64(w)
	opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
	p.ImageOptions(path, pageMargin, p.GetY(), logoMaxWidth, scaledH, false, opts, 0, "")
	p.SetY(p.GetY() + scaledH + 2)
}

// probeImage reads only the image header and reports the intrinsic pixel
// dimensions plus the gofpdf image type.
func probeImage(path string) (width, height int, imgType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("decoding %s: %w", path, err)
	}
	switch format {
	case "png":
		imgType = "PNG"
	case "jpeg":
		imgType = "JPEG"
	case "gif":
		imgType = "GIF"
	default:
		return 0, 0, "", fmt.Errorf("unsupported logo format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", fmt.Errorf("invalid logo dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, imgType, nil
}

// drawBilling draws the customer block inside a filled panel.
func (c *Composer) drawBilling(p *gofpdf.Fpdf, tr func(string) string, billing invoice.BillingInfo) {
	addressLines := strings.Split(billing.Address, "\n")
	panelHeight := 6 + 5 + float64(len(addressLines))*4.5 + 4.5 + 6

	top := p.GetY()
	p.SetFillColor(colorLightGray.r, colorLightGray.g, colorLightGray.b)
	p.Rect(pageMargin, top, contentWidth, panelHeight, "F")

	y := top + 3
	write := func(txt, style string, size, h float64, color rgb) {
		p.SetXY(pageMargin+3, y)
		p.SetFont("Helvetica", style, size)
		p.SetTextColor(color.r, color.g, color.b)
		p.CellFormat(contentWidth-6, h, tr(txt), "", 0, "L", false, 0, "")
		y += h
	}
	write("BILL TO:", "B", 11, 6, colorPrimary)
	write(billing.Name, "B", 9, 5, rgb{0, 0, 0})
	for _, addr := range addressLines {
		write(addr, "", 9, 4.5, rgb{0, 0, 0})
	}
	write("Phone: "+billing.Phone, "", 9, 4.5, rgb{0, 0, 0})

	p.SetXY(pageMargin, top+panelHeight)
}

// drawItems draws the itemized table: index, description, quantity, unit
// price and line total, with a filled header row and alternating row fills.
func (c *Composer) drawItems(p *gofpdf.Fpdf, tr func(string) string, doc invoice.Document) {
	type column struct {
		title string
		width float64
		align string
	}
	columns := []column{
		{"#", 10, "C"},
		{"Description", contentWidth - 10 - 15 - 30 - 30, "L"},
		{"Qty", 15, "C"},
		{"Unit Price", 30, "R"},
		{"Total", 30, "R"},
	}

	p.SetDrawColor(colorDarkGray.r, colorDarkGray.g, colorDarkGray.b)
	p.SetLineWidth(0.2)

	// Header row.
	p.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	p.SetTextColor(255, 255, 255)
	p.SetFont("Helvetica", "B", 10)
	for _, col := range columns {
		p.CellFormat(col.width, 9, tr(col.title), "1", 0, "C", true, 0, "")
	}
	p.Ln(-1)

	// Data rows, 1-based indices, alternating fill.
	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(0, 0, 0)
	p.SetFillColor(colorLightGray.r, colorLightGray.g, colorLightGray.b)
	for i, item := range doc.Items {
		fill := (i+1)%2 == 0
		cells := []string{
			strconv.Itoa(i + 1),
			truncate(item.Description, descriptionMax),
			strconv.Itoa(item.Quantity),
			currency.Format(item.UnitPrice, doc.Currency),
			currency.Format(item.LineTotal(), doc.Currency),
		}
		for j, col := range columns {
			p.CellFormat(col.width, 8, tr(cells[j]), "1", 0, col.align, fill, 0, "")
		}
		p.Ln(-1)
	}
}

// drawTotals draws the right-aligned totals block. The tax line appears only
// for a positive rate, the discount line only for a positive discount, and
// the grand total always carries the strongest emphasis.
func (c *Composer) drawTotals(p *gofpdf.Fpdf, tr func(string) string, doc invoice.Document) {
	const (
		labelWidth = 45.0
		valueWidth = 32.0
	)
	x := pageMargin + contentWidth - labelWidth - valueWidth

	row := func(label, value string, fill bool) {
		p.SetX(x)
		p.CellFormat(labelWidth, 7, tr(label), "", 0, "R", fill, 0, "")
		p.CellFormat(valueWidth, 7, tr(value), "", 1, "R", fill, 0, "")
	}

	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(0, 0, 0)
	row("Subtotal:", currency.Format(doc.Totals.Subtotal, doc.Currency), false)
	if doc.TaxRatePercent.IsPositive() {
		label := fmt.Sprintf("Tax (%s%%):", doc.TaxRatePercent.String())
		row(label, currency.Format(doc.Totals.TaxAmount, doc.Currency), false)
	}
	if doc.Totals.DiscountAmount.IsPositive() {
		row("Discount:", "- "+currency.Format(doc.Totals.DiscountAmount, doc.Currency), false)
	}

	// Grand total: rule above, filled, larger bold type.
	p.SetDrawColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	p.SetLineWidth(0.6)
	p.Line(x, p.GetY(), x+labelWidth+valueWidth, p.GetY())
	p.SetFillColor(colorLightGray.r, colorLightGray.g, colorLightGray.b)
	p.SetFont("Helvetica", "B", 11)
	row("GRAND TOTAL:", currency.Format(doc.Totals.Total, doc.Currency), true)
}

// drawFooter draws the closing message.
func (c *Composer) drawFooter(p *gofpdf.Fpdf, tr func(string) string) {
	p.SetFont("Helvetica", "I", 8)
	p.SetTextColor(colorDarkGray.r, colorDarkGray.g, colorDarkGray.b)
	p.CellFormat(contentWidth, 5, tr("Thank you for your business!"), "", 1, "C", false, 0, "")
}

// truncate limits text to max runes, appending an ellipsis when shortened.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
