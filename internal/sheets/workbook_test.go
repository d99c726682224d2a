package sheets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

func readWorkbookRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(WorksheetName)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	return rows
}

func TestWorkbookCreateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	repo := NewWorkbookRepository(path)

	if err := repo.EnsureHeaders(context.Background()); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}

	row := models.SheetRow{
		Date:        "2024/04/05",
		UserID:      "U001",
		DisplayName: "Alice",
		Mode:        models.ModeInPerson,
		Presenter:   true,
		Topic:       "Goroutines",
	}
	if err := repo.Upsert(context.Background(), row); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rows := readWorkbookRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("Expected header and 1 data row, got %d rows", len(rows))
	}
	if !equalRow(rows[0], Headers) {
		t.Errorf("Expected current headers, got %v", rows[0])
	}
	want := []string{"2024/04/05", "Alice", "対面", "○", "Goroutines", "U001"}
	if !equalRow(rows[1], want) {
		t.Errorf("Expected %v, got %v", want, rows[1])
	}
}

func TestWorkbookUpsertReplacesMatchingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	repo := NewWorkbookRepository(path)

	first := models.SheetRow{Date: "2024/04/05", UserID: "U001", DisplayName: "Alice", Mode: models.ModeInPerson}
	if err := repo.Upsert(context.Background(), first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	other := models.SheetRow{Date: "2024/04/05", UserID: "U002", DisplayName: "Bob", Mode: models.ModeOnline}
	if err := repo.Upsert(context.Background(), other); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	updated := first
	updated.Mode = models.ModeAbsent
	if err := repo.Upsert(context.Background(), updated); err != nil {
		t.Fatalf("Update upsert failed: %v", err)
	}

	rows := readWorkbookRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 data rows, got %d rows", len(rows))
	}
	if rows[1][2] != "欠席" {
		t.Errorf("Expected Alice's mode updated to 欠席, got %q", rows[1][2])
	}
	if rows[2][1] != "Bob" || rows[2][2] != "オンライン" {
		t.Errorf("Expected Bob's row untouched, got %v", rows[2])
	}
}

func TestWorkbookSameUserDifferentDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	repo := NewWorkbookRepository(path)

	monday := models.SheetRow{Date: "2024/04/01", UserID: "U001", DisplayName: "Alice", Mode: models.ModeInPerson}
	friday := models.SheetRow{Date: "2024/04/05", UserID: "U001", DisplayName: "Alice", Mode: models.ModeOnline}
	if err := repo.Upsert(context.Background(), monday); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(context.Background(), friday); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rows := readWorkbookRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("Expected one row per date, got %d rows", len(rows))
	}
}

func TestWorkbookUpgradesLegacyHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.xlsx")

	f := excelize.NewFile()
	if _, err := f.NewSheet(WorksheetName); err != nil {
		t.Fatalf("Failed to create sheet: %v", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("Failed to drop default sheet: %v", err)
	}
	if err := f.SetSheetRow(WorksheetName, "A1", &LegacyHeaders); err != nil {
		t.Fatalf("Failed to write legacy header: %v", err)
	}
	legacyRow := []interface{}{"2024/03/29", "Carol", "対面", "", ""}
	if err := f.SetSheetRow(WorksheetName, "A2", &legacyRow); err != nil {
		t.Fatalf("Failed to write legacy row: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	f.Close()

	repo := NewWorkbookRepository(path)
	if err := repo.EnsureHeaders(context.Background()); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}

	rows := readWorkbookRows(t, path)
	if !equalRow(rows[0], Headers) {
		t.Errorf("Expected upgraded headers, got %v", rows[0])
	}
	if rows[1][1] != "Carol" {
		t.Errorf("Expected legacy data preserved, got %v", rows[1])
	}

	// Legacy rows carry no user ID, so the same person gets a fresh row.
	carol := models.SheetRow{Date: "2024/03/29", UserID: "U003", DisplayName: "Carol", Mode: models.ModeOnline}
	if err := repo.Upsert(context.Background(), carol); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	rows = readWorkbookRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("Expected legacy row plus new row, got %d rows", len(rows))
	}
}

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want headerKind
	}{
		{"empty", nil, headerEmpty},
		{"blank cells", []string{"", ""}, headerEmpty},
		{"current", Headers, headerCurrent},
		{"current with trailing blank", append(append([]string{}, Headers...), ""), headerCurrent},
		{"legacy", LegacyHeaders, headerLegacy},
		{"unknown", []string{"Date", "Name"}, headerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyHeader(tt.row); got != tt.want {
				t.Errorf("Expected kind %d, got %d", tt.want, got)
			}
		})
	}
}
