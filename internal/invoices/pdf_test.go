package invoices

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gulfevents/backoffice/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVATRateByRegion(t *testing.T) {
	tests := []struct {
		region models.Region
		want   float64
	}{
		{models.RegionUAE, 0.05},
		{models.RegionSaudi, 0.15},
		{models.Region("unknown"), 0.05},
	}
	for _, tt := range tests {
		if got := VATRate(tt.region); !almostEqual(got, tt.want) {
			t.Errorf("VATRate(%q) = %v, want %v", tt.region, got, tt.want)
		}
	}
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(1000, models.RegionSaudi)
	if !almostEqual(b.VAT, 150) {
		t.Errorf("VAT = %v, want 150", b.VAT)
	}
	if !almostEqual(b.Total, 1150) {
		t.Errorf("Total = %v, want 1150", b.Total)
	}

	b = Breakdown(1000, models.RegionUAE)
	if !almostEqual(b.VAT, 50) || !almostEqual(b.Total, 1050) {
		t.Errorf("uae breakdown = %+v", b)
	}
}

func TestRenderPDF(t *testing.T) {
	inv := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-202608-0001",
		EventID:       uuid.New(),
		ClientName:    "Falcon Trading LLC",
		ClientContact: "accounts@falcon.example",
		IssueDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		TotalAmount:   5000,
		Status:        models.InvoiceSent,
		Notes:         "Payment via bank transfer.",
	}
	event := &models.Event{
		ID:        inv.EventID,
		Title:     "Product Launch Gala",
		Region:    models.RegionUAE,
		Location:  "Dubai World Trade Centre",
		EventDate: time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC),
	}

	pdf, err := RenderPDF(inv, event)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF document")
	}
	if len(pdf) < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(pdf))
	}
}
