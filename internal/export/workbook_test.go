package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func TestColName(t *testing.T) {
	cases := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 53: "BA"}
	for n, want := range cases {
		if got := colName(n); got != want {
			t.Errorf("colName(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestMarksheetFilename(t *testing.T) {
	got := MarksheetFilename("  Rahim / Uddin ", "2025-06")
	want := "Marksheet - Rahim _ Uddin - 2025-06.xlsx"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := MarksheetFilename("", "2025-06"); got != "Marksheet - unknown - 2025-06.xlsx" {
		t.Fatalf("empty name: got %q", got)
	}
}

func TestMarksheetRoundTrip(t *testing.T) {
	gift := models.GiftBonus
	r := models.MonthlyResult{
		SubjectID: 7, MonthlyScore: 92.5, Tier: models.TierBonus, ActionType: models.ActionBonus,
		GiftType: &gift, GiftAmount: 1500, WeeksCountUsed: 4, ExpectedWeeksCount: 4, IsCompleteMonth: true,
	}
	weekly := []models.WeeklyResult{
		{WeekKey: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC), AverageScore: 90, SubmissionCount: 2, IsComplete: true},
		{WeekKey: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), AverageScore: 95, SubmissionCount: 1},
	}
	f, err := Marksheet(models.Person{ID: 7, Name: "Karim"}, r, weekly)
	if err != nil {
		t.Fatalf("Marksheet: %v", err)
	}
	data, err := Bytes(f)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	rf, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rf.Close() }()

	if got := rf.GetSheetList(); len(got) != 2 || got[0] != "Summary" || got[1] != "Weeks" {
		t.Fatalf("sheets = %v", got)
	}
	check := func(sheet, cell, want string) {
		t.Helper()
		got, err := rf.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("%s!%s: %v", sheet, cell, err)
		}
		if got != want {
			t.Errorf("%s!%s = %q, want %q", sheet, cell, got, want)
		}
	}
	check("Summary", "B2", "Karim")
	check("Summary", "C2", "92.5")
	check("Summary", "D2", "BONUS")
	check("Summary", "H2", "BONUS")
	check("Summary", "I2", "1500")
	check("Summary", "L2", "yes")
	check("Weeks", "A3", "2025-06-13")
	check("Weeks", "D3", "no")
}

func TestMonthWorkbookLedger(t *testing.T) {
	actual := int64(600)
	at := time.Date(2025, 7, 2, 10, 30, 0, 0, time.UTC)
	results := []models.MonthlyResult{
		{SubjectID: 1, MonthlyScore: 55, Tier: models.TierFine, ActionType: models.ActionFine, BaseFine: 600, FinalFine: 600},
	}
	fund := []models.FundLogEntry{
		{ID: 11, SubjectID: 1, EntryType: models.EntryFine, Status: models.FundCollected,
			ExpectedAmount: 600, ActualAmount: &actual, MarkedAt: &at},
	}
	f, err := MonthWorkbook("2025-06", results, map[int64]string{1: "Nadia"}, fund)
	if err != nil {
		t.Fatalf("MonthWorkbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Fund 2025-06")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	want := []string{"11", "1", "Nadia", "FINE", "COLLECTED", "600", "600", "2025-07-02 10:30"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("col %d = %q, want %q", i, rows[1][i], w)
		}
	}
	res, _ := f.GetRows("Results 2025-06")
	if len(res) != 2 || res[1][3] != "FINE" {
		t.Fatalf("results sheet = %v", res)
	}
}
