package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"tripdesk/internal/lifecycle"
)

const (
	summarySheet = "summary"
	tripsSheet   = "trips"
)

var tripColumns = []string{
	"Trip ID", "Date", "Status", "Settled", "Customer", "Supplier", "Destination",
	"Quantity", "Trip Price", "Paid", "Commercial Price", "Collection", "Commission",
	"Settlement", "Direction",
}

// BuildStatementXLSX renders a statement as a workbook with a summary sheet
// and one row per trip.
func BuildStatementXLSX(stmt Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(tripsSheet); err != nil {
		return nil, err
	}

	sum := stmt.Summarize()
	summary := [][2]any{
		{"Settlement Statement", ""},
		{"Period", stmt.Period()},
		{"Generated", stmt.GeneratedAt.Format(time.RFC3339)},
		{"Trips", sum.Trips},
		{"Cancelled", sum.Cancelled},
		{"Unsettled", sum.Unsettled},
		{"Total Collection", sum.Collection.InexactFloat64()},
		{"Total Commercial Price", sum.CommercialPrice.InexactFloat64()},
		{"Total Commission", sum.Commission.InexactFloat64()},
		{"Net Settlement", sum.Settlement.InexactFloat64()},
		{"Outstanding", sum.Outstanding.InexactFloat64()},
	}
	for i, row := range summary {
		r := i + 1
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), row[0])
		if row[1] != "" {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), row[1])
		}
	}

	for i, name := range tripColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(tripsSheet, cell, name)
	}
	for i, t := range stmt.Trips {
		value := lifecycle.SettlementValue(t)
		row := []any{
			t.ID,
			t.Date.Format(time.DateOnly),
			string(t.Status),
			t.IsSettled,
			t.CustomerName,
			t.SupplierName,
			t.Destination,
			t.Quantity,
			t.TripPrice.InexactFloat64(),
			t.PaidAmount.InexactFloat64(),
			t.CommercialPrice.InexactFloat64(),
			t.Collection.InexactFloat64(),
			t.Commission.InexactFloat64(),
			value.InexactFloat64(),
			lifecycle.SettlementDirection(value),
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(tripsSheet, start, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
