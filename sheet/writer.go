package sheet

import (
	"context"
	"fmt"

	"github.com/178inaba/attendance-sheet-bot/entity"
)

// Writer appends attendance entries to day sheets. Repeated calls append
// repeated rows.
type Writer struct {
	backend       Backend
	spreadsheetID string
}

func NewWriter(backend Backend, spreadsheetID string) *Writer {
	return &Writer{backend: backend, spreadsheetID: spreadsheetID}
}

func (w *Writer) Append(ctx context.Context, dateKey string, e entity.Entry) error {
	if err := w.backend.AppendRow(ctx, w.spreadsheetID, Range(dateKey), e.Row()); err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	return nil
}
