package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/middleware"
	"tripdesk/internal/service"
)

func init() {
	color.NoColor = true
}

func TestPrintReconcileResult(t *testing.T) {
	var buf bytes.Buffer
	printReconcileResult(&buf, service.ReconcileResult{
		Today:   time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		Checked: 4,
		Updated: []lifecycle.Change{
			{TripID: "trip-1", From: domain.TripStatusActive, To: domain.TripStatusCompleted},
		},
		Skipped: 1,
	})

	out := buf.String()
	for _, want := range []string{
		"Reconciled 2024-06-15: checked 4 trip(s)",
		"trip-1  active → completed",
		"1 updated, 1 skipped, 0 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDateRange(t *testing.T) {
	f, err := dateRange("2024-06-01", "2024-06-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.DateFrom.Day() != 1 || f.DateTo.Day() != 30 {
		t.Errorf("unexpected range %s..%s", f.DateFrom, f.DateTo)
	}

	for _, tt := range [][2]string{{"2024-06-30", "2024-06-01"}, {"June", ""}, {"", "2024/06/01"}} {
		if _, err := dateRange(tt[0], tt[1]); err == nil {
			t.Errorf("dateRange(%q, %q): expected error", tt[0], tt[1])
		}
	}
}

func TestIssueToken(t *testing.T) {
	secret := []byte("cli-secret")
	token, err := issueToken(secret, "mgr-1", "manager", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := middleware.ParseToken(token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "mgr-1" || claims.Role != "manager" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := issueToken(secret, "x", "owner", time.Hour); err == nil {
		t.Error("expected unknown role to fail")
	}
	if _, err := issueToken(secret, "x", "employee", 0); err == nil {
		t.Error("expected zero ttl to fail")
	}
}
