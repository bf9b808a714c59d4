package ingest_test

import (
	"regexp"
	"testing"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
)

func TestLocateHeaderRow_FindsRowWithinFirstFive(t *testing.T) {
	for headerAt := 0; headerAt < 5; headerAt++ {
		grid := make([][]string, 0, 8)
		for i := 0; i < headerAt; i++ {
			grid = append(grid, []string{"Quarterly actuals export", "", "generated"})
		}
		grid = append(grid, []string{"Category", " cost center ", "Date", "Main Account", "Amount"})
		grid = append(grid, []string{"Travel", "14152001", "45352", "730007", "100"})

		idx, confident := ingest.LocateHeaderRow(grid, ingest.ActualHeaders)
		if !confident {
			t.Fatalf("header at %d: expected confident match", headerAt)
		}
		if idx != headerAt {
			t.Errorf("expected header row %d, got %d", headerAt, idx)
		}
	}
}

func TestLocateHeaderRow_IgnoresRowsBeyondFive(t *testing.T) {
	grid := [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}, ingest.ActualHeaders}

	idx, confident := ingest.LocateHeaderRow(grid, ingest.ActualHeaders)
	if confident {
		t.Error("expected fallback when header is the sixth row")
	}
	if idx != 0 {
		t.Errorf("expected fallback to row 0, got %d", idx)
	}
}

func TestLocateHeaderRow_RequiresHalfTheExpectedHeaders(t *testing.T) {
	// 4 of 9 expected headers is below half.
	grid := [][]string{
		{"notes"},
		{"Category", "Cost Center", "Date", "Amount", "Whatever"},
	}
	if _, confident := ingest.LocateHeaderRow(grid, ingest.ActualHeaders); confident {
		t.Error("expected no confident header row with 4 of 9 headers")
	}

	// 5 of 9 qualifies.
	grid[1] = append(grid[1], "Party Name")
	idx, confident := ingest.LocateHeaderRow(grid, ingest.ActualHeaders)
	if !confident || idx != 1 {
		t.Errorf("expected row 1 confident, got %d (confident=%v)", idx, confident)
	}
}

func TestLocateHeaderRow_PrefersHighestScore(t *testing.T) {
	grid := [][]string{
		{"Category", "Cost Center", "Date", "Amount", "Main Account"},
		{"Category", "Cost Center", "Date", "Amount", "Main Account", "Party Name", "Main Account Name"},
	}
	idx, _ := ingest.LocateHeaderRow(grid, ingest.ActualHeaders)
	if idx != 1 {
		t.Errorf("expected row 1 with the higher score, got %d", idx)
	}
}

func TestNormalizeHeaders(t *testing.T) {
	expected := []string{"Category", "MainAccount", "CostCenter"}
	table := &ingest.Table{
		Headers: []string{"Category", "MianAccount", "Region"},
		Rows: []domain.Row{
			{"Category": "Travel", "MianAccount": "730007", "Region": "EMEA"},
			{"Category": "Events", "MianAccount": "710010", "Region": "APAC"},
		},
	}

	corrections := ingest.NormalizeHeaders(table, expected)

	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %v", corrections)
	}
	want := `Corrected column header: "MianAccount" was interpreted as "MainAccount".`
	if corrections[0] != want {
		t.Errorf("unexpected correction note: %s", corrections[0])
	}
	for i, row := range table.Rows {
		if _, ok := row["MianAccount"]; ok {
			t.Errorf("row %d still has the misspelled header", i)
		}
		if _, ok := row["MainAccount"]; !ok {
			t.Errorf("row %d missing corrected header", i)
		}
		if row["Category"] == nil {
			t.Errorf("row %d lost exact-match header", i)
		}
		if row["Region"] == nil {
			t.Errorf("row %d lost unrelated header", i)
		}
	}
	if table.Rows[1]["MainAccount"] != "710010" {
		t.Errorf("expected value carried over, got %v", table.Rows[1]["MainAccount"])
	}
}

func TestNormalizeHeaders_CaseOnlyDifferenceIsKept(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"category"},
		Rows:    []domain.Row{{"category": "Travel"}},
	}
	if corrections := ingest.NormalizeHeaders(table, []string{"Category"}); len(corrections) != 0 {
		t.Errorf("expected no correction for case-only difference, got %v", corrections)
	}
}

func TestNormalizeHeaders_TieGoesToFirstExpected(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"Date1"},
		Rows:    []domain.Row{{"Date1": "x"}},
	}
	corrections := ingest.NormalizeHeaders(table, []string{"Date2", "Date3"})
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %v", corrections)
	}
	if _, ok := table.Rows[0]["Date2"]; !ok {
		t.Errorf("expected tie to resolve to Date2, got %v", table.Rows[0])
	}
}

func TestInferMonthHeader(t *testing.T) {
	tokenRe := regexp.MustCompile(`^[A-Za-z]{3}-\d{2}$`)

	got := ingest.InferMonthHeader("45322")
	if !tokenRe.MatchString(got) {
		t.Fatalf("serial header produced %q", got)
	}
	if got != "Jan-24" {
		t.Errorf("expected Jan-24, got %s", got)
	}

	tests := map[string]string{
		"Mar-25":     "Mar-25",
		" apr-25 ":   "apr-25",
		"March 2025": "Mar-25",
		"2025-04-01": "Apr-25",
		"45352":      "Mar-24",
		"CostCenter": "CostCenter",
		"Mar - 25":   "Mar - 25",
	}
	for in, want := range tests {
		if got := ingest.InferMonthHeader(in); got != want {
			t.Errorf("InferMonthHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeMonthKey(t *testing.T) {
	tests := map[string]string{
		"Mar - 25":  "Mar-25",
		" Mar-25 ":  "Mar-25",
		"Mar  -25":  "Mar-25",
		"Account":   "Account",
		"Apr -  26": "Apr-26",
	}
	for in, want := range tests {
		if got := ingest.NormalizeMonthKey(in); got != want {
			t.Errorf("NormalizeMonthKey(%q) = %q, want %q", in, got, want)
		}
	}
	if !ingest.IsMonthToken(ingest.NormalizeMonthKey("Mar - 25")) {
		t.Error("normalized key should match the month pattern")
	}
}

func TestMonthTokens_DistinctInColumnOrder(t *testing.T) {
	got := ingest.MonthTokens([]string{"Account name", "Mar-25", "45717", "Apr-25", "MainAccount"})
	// 45717 is 2025-03-01 and collapses onto Mar-25.
	if len(got) != 2 || got[0] != "Mar-25" || got[1] != "Apr-25" {
		t.Errorf("unexpected tokens %v", got)
	}
}
