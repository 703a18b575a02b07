package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"tripdesk/internal/domain"
)

func sampleStatement() Statement {
	day := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	return Statement{
		From:        day,
		To:          day.AddDate(0, 0, 30),
		GeneratedAt: day.AddDate(0, 1, 0),
		Trips: []*domain.Trip{
			{
				ID:              "trip-1",
				Date:            day,
				Status:          domain.TripStatusCompleted,
				CommercialPrice: decimal.NewFromInt(800),
				TripPrice:       decimal.NewFromInt(1000),
				Collection:      decimal.NewFromInt(600),
				CustomerName:    "Acme Tours",
				Destination:     "Luxor",
			},
			{
				ID:              "trip-2",
				Date:            day.AddDate(0, 0, 3),
				Status:          domain.TripStatusCancelled,
				IsSettled:       true,
				CommercialPrice: decimal.NewFromInt(100),
				TripPrice:       decimal.NewFromInt(150),
				Collection:      decimal.NewFromInt(350),
				Commission:      decimal.NewFromInt(10),
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	sum := sampleStatement().Summarize()

	if sum.Trips != 2 || sum.Cancelled != 1 || sum.Unsettled != 1 {
		t.Errorf("unexpected counts: %+v", sum)
	}
	if !sum.Settlement.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected settlement 50, got %s", sum.Settlement)
	}
	if !sum.Outstanding.Equal(decimal.NewFromInt(-200)) {
		t.Errorf("expected outstanding -200, got %s", sum.Outstanding)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", FormatPDF, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestBuildStatementXLSX_RoundTrip(t *testing.T) {
	t.Parallel()
	data, err := BuildStatementXLSX(sampleStatement())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(tripsSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Trip ID" {
		t.Errorf("expected header Trip ID, got %s", rows[0][0])
	}
	if rows[1][0] != "trip-1" || rows[1][1] != "2024-05-02" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][13] != "-200" || rows[1][14] != "owed_by_agency" {
		t.Errorf("expected settlement -200 owed_by_agency, got %s %s", rows[1][13], rows[1][14])
	}

	period, err := f.GetCellValue(summarySheet, "B2")
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if period != "2024-05-02_2024-06-01" {
		t.Errorf("expected period 2024-05-02_2024-06-01, got %s", period)
	}
}

func TestBuildStatementPDF(t *testing.T) {
	t.Parallel()
	data, err := Render(FormatPDF, sampleStatement())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("expected PDF header")
	}
}
