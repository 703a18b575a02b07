// Package export renders settlement statements for a range of trips.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
)

// Format names an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name. Empty means xlsx.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Statement is a settlement report over trips dated From..To.
type Statement struct {
	From        time.Time // Zero means open-ended.
	To          time.Time
	GeneratedAt time.Time
	Trips       []*domain.Trip
}

// Summary aggregates a statement.
type Summary struct {
	Trips           int
	Cancelled       int
	Unsettled       int
	Collection      decimal.Decimal
	CommercialPrice decimal.Decimal
	Commission      decimal.Decimal
	Settlement      decimal.Decimal
	Outstanding     decimal.Decimal // Settlement of unsettled trips only.
}

// Summarize totals the statement's trips.
func (s Statement) Summarize() Summary {
	var sum Summary
	for _, t := range s.Trips {
		value := lifecycle.SettlementValue(t)
		sum.Trips++
		if t.Status == domain.TripStatusCancelled {
			sum.Cancelled++
		}
		sum.Collection = sum.Collection.Add(t.Collection)
		sum.CommercialPrice = sum.CommercialPrice.Add(t.CommercialPrice)
		sum.Commission = sum.Commission.Add(t.Commission)
		sum.Settlement = sum.Settlement.Add(value)
		if !t.IsSettled {
			sum.Unsettled++
			sum.Outstanding = sum.Outstanding.Add(value)
		}
	}
	return sum
}

// Period renders the date range for headings and file names.
func (s Statement) Period() string {
	from, to := "start", "today"
	if !s.From.IsZero() {
		from = s.From.Format(time.DateOnly)
	}
	if !s.To.IsZero() {
		to = s.To.Format(time.DateOnly)
	}
	return from + "_" + to
}

// Render builds the statement in the requested format.
func Render(format Format, stmt Statement) ([]byte, error) {
	switch format {
	case FormatPDF:
		return BuildStatementPDF(stmt)
	case FormatXLSX:
		return BuildStatementXLSX(stmt)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
