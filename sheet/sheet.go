// Package sheet resolves serial numbers in per-day attendance sheets and
// appends rows to them.
package sheet

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// RowLimit is the last row of a day sheet that is read.
const RowLimit = 50

// TemplateInsertIndex is where a new day sheet is placed in the sheet list.
const TemplateInsertIndex = 1

var (
	// ErrRangeNotParseable is returned by backends when the named sheet of a range does not exist.
	ErrRangeNotParseable = errors.New("unable to parse range")
	// ErrNotAvailable is returned when no serial number can be resolved.
	ErrNotAvailable = errors.New("serial number not available")
)

// Backend is a remote spreadsheet addressed by id and A1 range.
type Backend interface {
	// ReadRows returns the rows of readRange. present reports whether the
	// response carried a values field at all.
	ReadRows(ctx context.Context, spreadsheetID, readRange string) (rows [][]string, present bool, err error)
	DuplicateSheet(ctx context.Context, spreadsheetID string, req DuplicateRequest) error
	// AppendRow appends after the last row of writeRange with user-entered semantics.
	AppendRow(ctx context.Context, spreadsheetID, writeRange string, row []string) error
}

// ExistenceChecker is implemented by backends that can list sheet titles.
type ExistenceChecker interface {
	SheetExists(ctx context.Context, spreadsheetID, title string) (bool, error)
}

type DuplicateRequest struct {
	SourceSheetID    int64
	NewSheetName     string
	InsertSheetIndex int64
}

// DateKey formats t in loc as a day sheet name, e.g. "5 Jun".
func DateKey(t time.Time, loc *time.Location) string {
	return strings.TrimSpace(t.In(loc).Format("_2 Jan"))
}

// Range returns the A1 range covering a day sheet.
func Range(dateKey string) string {
	return dateKey + "!1:" + strconv.Itoa(RowLimit)
}

// SheetName returns the sheet part of an A1 range.
func SheetName(a1 string) string {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return strings.Trim(a1, "'")
	}
	return strings.Trim(a1[:i], "'")
}
