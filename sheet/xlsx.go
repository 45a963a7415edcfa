package sheet

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXBackend keeps day sheets in local workbook files. The spreadsheet id
// is the workbook path and a sheet id is the sheet's position in the
// workbook's sheet list.
type XLSXBackend struct {
	mu sync.Mutex
}

func NewXLSXBackend() *XLSXBackend {
	return &XLSXBackend{}
}

func (b *XLSXBackend) ReadRows(ctx context.Context, path, readRange string) ([][]string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	name := SheetName(readRange)
	if !hasSheet(f, name) {
		return nil, false, fmt.Errorf("%w: %s", ErrRangeNotParseable, readRange)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, false, fmt.Errorf("get rows: %w", err)
	}
	if len(rows) > RowLimit {
		rows = rows[:RowLimit]
	}
	if len(rows) == 0 {
		// Same as the Sheets API, which omits values for an empty range.
		return nil, false, nil
	}

	return rows, true, nil
}

func (b *XLSXBackend) DuplicateSheet(ctx context.Context, path string, req DuplicateRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if hasSheet(f, req.NewSheetName) {
		return fmt.Errorf("sheet %q already exists", req.NewSheetName)
	}

	list := f.GetSheetList()
	if req.SourceSheetID < 0 || req.SourceSheetID >= int64(len(list)) {
		return fmt.Errorf("no sheet with id %d", req.SourceSheetID)
	}
	from, err := f.GetSheetIndex(list[req.SourceSheetID])
	if err != nil {
		return fmt.Errorf("get sheet index: %w", err)
	}

	to, err := f.NewSheet(req.NewSheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := f.CopySheet(from, to); err != nil {
		return fmt.Errorf("copy sheet: %w", err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	return nil
}

func (b *XLSXBackend) AppendRow(ctx context.Context, path, writeRange string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	name := SheetName(writeRange)
	if !hasSheet(f, name) {
		return fmt.Errorf("%w: %s", ErrRangeNotParseable, writeRange)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return fmt.Errorf("get rows: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}

	if err := f.SetSheetRow(name, cell, userEntered(row)); err != nil {
		return fmt.Errorf("set sheet row: %w", err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	return nil
}

func (b *XLSXBackend) SheetExists(ctx context.Context, path, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return hasSheet(f, title), nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// userEntered stores integer cells as numbers and everything else as text.
func userEntered(row []string) *[]interface{} {
	cells := make([]interface{}, len(row))
	for i, c := range row {
		if n, err := strconv.Atoi(c); err == nil {
			cells[i] = n
			continue
		}
		cells[i] = c
	}

	return &cells
}
