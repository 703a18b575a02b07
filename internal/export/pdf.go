package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"tripdesk/internal/lifecycle"
)

// BuildStatementPDF renders a landscape settlement statement.
func BuildStatementPDF(stmt Statement) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Settlement Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", stmt.Period()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stmt.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)

	sum := stmt.Summarize()
	pdf.Cell(0, 6, fmt.Sprintf("Trips: %d (cancelled %d, unsettled %d)", sum.Trips, sum.Cancelled, sum.Unsettled))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net Settlement: %s", money(sum.Settlement)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Outstanding: %s", money(sum.Outstanding)))
	pdf.Ln(8)

	widths := []float64{24, 24, 22, 56, 40, 32, 32, 32}
	headers := []string{"Date", "Status", "Settled", "Customer", "Destination", "Collection", "Commercial", "Settlement"}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, t := range stmt.Trips {
		settled := "no"
		if t.IsSettled {
			settled = "yes"
		}
		cells := []struct {
			text  string
			align string
		}{
			{t.Date.Format(time.DateOnly), "C"},
			{string(t.Status), "C"},
			{settled, "C"},
			{truncate(t.CustomerName, 30), "L"},
			{truncate(t.Destination, 22), "L"},
			{money(t.Collection), "R"},
			{money(t.CommercialPrice), "R"},
			{money(lifecycle.SettlementValue(t)), "R"},
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c.text, "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
