package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]any
}

func buildWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", s.Title, err)
		}

		for c, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(c+1))
			if err := f.SetCellStr(s.Title, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		for r, row := range s.Rows {
			for c, v := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellValue(s.Title, cell, v); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		if err := applySheetFormatting(f, s.Title); err != nil {
			return nil, fmt.Errorf("format %q: %w", s.Title, err)
		}
	}
	return f, nil
}

// Bytes serialises the workbook for upload.
func Bytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var resultHeader = []string{
	"Subject ID", "Name", "Monthly score", "Tier", "Action", "Base fine", "Final fine",
	"Gift", "Gift amount", "Weeks used", "Weeks expected", "Complete",
}

func resultRow(name string, r models.MonthlyResult) []any {
	gift := ""
	if r.GiftType != nil {
		gift = string(*r.GiftType)
	}
	return []any{
		r.SubjectID, name, r.MonthlyScore, string(r.Tier), string(r.ActionType), r.BaseFine, r.FinalFine,
		gift, r.GiftAmount, r.WeeksCountUsed, r.ExpectedWeeksCount, yesNo(r.IsCompleteMonth),
	}
}

// MonthWorkbook lists every subject's monthly result and the month's fund
// ledger. names maps subject id to display name.
func MonthWorkbook(monthKey string, results []models.MonthlyResult, names map[int64]string, fund []models.FundLogEntry) (*excelize.File, error) {
	res := SheetSpec{Title: "Results " + monthKey, Header: resultHeader}
	for _, r := range results {
		res.Rows = append(res.Rows, resultRow(names[r.SubjectID], r))
	}

	ledger := SheetSpec{
		Title:  "Fund " + monthKey,
		Header: []string{"Entry ID", "Subject ID", "Name", "Type", "Status", "Expected", "Actual", "Marked at", "Note"},
	}
	for _, e := range fund {
		var actual any = ""
		if e.ActualAmount != nil {
			actual = *e.ActualAmount
		}
		marked, note := "", ""
		if e.MarkedAt != nil {
			marked = e.MarkedAt.Format("2006-01-02 15:04")
		}
		if e.Note != nil {
			note = *e.Note
		}
		ledger.Rows = append(ledger.Rows, []any{
			e.ID, e.SubjectID, names[e.SubjectID], string(e.EntryType), string(e.Status), e.ExpectedAmount, actual, marked, note,
		})
	}
	return buildWorkbook([]SheetSpec{res, ledger})
}

// Marksheet is the per-subject workbook delivered after a month locks.
func Marksheet(subject models.Person, r models.MonthlyResult, weekly []models.WeeklyResult) (*excelize.File, error) {
	summary := SheetSpec{
		Title:  "Summary",
		Header: resultHeader,
		Rows:   [][]any{resultRow(subject.Name, r)},
	}
	weeks := SheetSpec{
		Title:  "Weeks",
		Header: []string{"Week (Friday)", "Average score", "Submissions", "All markers"},
	}
	for _, w := range weekly {
		weeks.Rows = append(weeks.Rows, []any{
			w.WeekKey.Format("2006-01-02"), w.AverageScore, w.SubmissionCount, yesNo(w.IsComplete),
		})
	}
	return buildWorkbook([]SheetSpec{summary, weeks})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
