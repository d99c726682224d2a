package sheets

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// WorkbookRepository mirrors rows into a local .xlsx workbook. Handy for
// development and for deployments without Google credentials.
type WorkbookRepository struct {
	path string
	mu   sync.Mutex
}

func NewWorkbookRepository(path string) *WorkbookRepository {
	log.Printf("📊 [SHEETS] Workbook backend at %s", path)
	return &WorkbookRepository{path: path}
}

func (r *WorkbookRepository) Name() string {
	return "workbook"
}

func (r *WorkbookRepository) EnsureHeaders(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, created, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := r.ensureHeaders(f); err != nil {
		return err
	}
	if created {
		log.Printf("📊 [SHEETS] Created workbook %s", r.path)
	}
	return f.SaveAs(r.path)
}

func (r *WorkbookRepository) Upsert(ctx context.Context, row models.SheetRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, _, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := r.ensureHeaders(f); err != nil {
		return err
	}

	rows, err := f.GetRows(WorksheetName)
	if err != nil {
		return fmt.Errorf("failed to read worksheet rows: %w", err)
	}

	target := len(rows) + 1
	if target < 2 {
		target = 2
	}
	for i := 1; i < len(rows); i++ {
		existing := rows[i]
		if len(existing) < 6 {
			continue
		}
		if existing[0] == row.Date && existing[5] == row.UserID {
			target = i + 1
			break
		}
	}

	cells := rowCells(row)
	if err := f.SetSheetRow(WorksheetName, fmt.Sprintf("A%d", target), &cells); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return f.SaveAs(r.path)
}

// open loads the workbook, creating a fresh one with the attendance sheet
// when the file does not exist yet.
func (r *WorkbookRepository) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		f := excelize.NewFile()
		if _, err := f.NewSheet(WorksheetName); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("failed to create worksheet: %w", err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("failed to drop default sheet: %w", err)
		}
		return f, true, nil
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open Excel file: %w", err)
	}
	idx, err := f.GetSheetIndex(WorksheetName)
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("failed to inspect workbook: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(WorksheetName); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("failed to create worksheet: %w", err)
		}
	}
	return f, false, nil
}

func (r *WorkbookRepository) ensureHeaders(f *excelize.File) error {
	rows, err := f.GetRows(WorksheetName)
	if err != nil {
		return fmt.Errorf("failed to read worksheet rows: %w", err)
	}

	var first []string
	if len(rows) > 0 {
		first = rows[0]
	}
	switch classifyHeader(first) {
	case headerCurrent:
		return nil
	case headerEmpty, headerLegacy:
		if err := f.SetSheetRow(WorksheetName, "A1", &Headers); err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}
	case headerUnknown:
		log.Printf("⚠️ [SHEETS] Unexpected header row in %s: %v", r.path, first)
	}
	return nil
}
