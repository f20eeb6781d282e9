package invoices

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/gulfevents/backoffice/internal/models"
)

// VAT rates by region. Saudi raised VAT to 15% in July 2020.
const (
	vatRateUAE   = 0.05
	vatRateSaudi = 0.15
)

// VATRate returns the VAT rate for a region. Unknown regions fall back to
// the UAE rate.
func VATRate(region models.Region) float64 {
	if region == models.RegionSaudi {
		return vatRateSaudi
	}
	return vatRateUAE
}

// TaxBreakdown is the VAT math shown on the invoice document.
type TaxBreakdown struct {
	Subtotal float64 `json:"subtotal"`
	VATRate  float64 `json:"vat_rate"`
	VAT      float64 `json:"vat"`
	Total    float64 `json:"total"`
}

// Breakdown computes the VAT breakdown for a pre-tax subtotal.
func Breakdown(subtotal float64, region models.Region) TaxBreakdown {
	rate := VATRate(region)
	vat := subtotal * rate
	return TaxBreakdown{
		Subtotal: subtotal,
		VATRate:  rate,
		VAT:      vat,
		Total:    subtotal + vat,
	}
}

func regionCurrency(region models.Region) string {
	if region == models.RegionSaudi {
		return "SAR"
	}
	return "AED"
}

// RenderPDF generates the invoice document. The event supplies the title,
// region (for VAT and currency) and location printed on the document.
func RenderPDF(inv *models.Invoice, event *models.Event) ([]byte, error) {
	tax := Breakdown(inv.TotalAmount, event.Region)
	cur := regionCurrency(event.Region)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, "INVOICE")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}
	row("Invoice No.", inv.InvoiceNumber)
	row("Issue Date", inv.IssueDate.Format("2006-01-02"))
	row("Due Date", inv.DueDate.Format("2006-01-02"))
	row("Status", string(inv.Status))
	pdf.Ln(4)

	row("Billed To", inv.ClientName)
	if inv.ClientContact != "" {
		row("Contact", inv.ClientContact)
	}
	pdf.Ln(4)

	row("Event", event.Title)
	if event.Location != "" {
		row("Location", event.Location)
	}
	row("Event Date", event.EventDate.Format("2006-01-02"))
	pdf.Ln(8)

	// Amounts table.
	amount := func(label string, v float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(120, 8, label, "T", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, fmt.Sprintf("%s %.2f", cur, v), "T", 1, "R", false, 0, "")
	}
	amount("Subtotal", tax.Subtotal, false)
	amount(fmt.Sprintf("VAT (%.0f%%)", tax.VATRate*100), tax.VAT, false)
	amount("Total Due", tax.Total, true)

	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
