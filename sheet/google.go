package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const unparseableRangeMessage = "Unable to parse range"

// GoogleBackend talks to the Google Sheets API v4.
type GoogleBackend struct {
	srv *sheets.Service
}

func NewGoogleBackend(ctx context.Context, opts ...option.ClientOption) (*GoogleBackend, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new sheets service: %w", err)
	}

	return &GoogleBackend{srv: srv}, nil
}

func (b *GoogleBackend) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, bool, error) {
	vr, err := b.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, false, fmt.Errorf("get values: %w", translateError(err))
	}
	if vr.Values == nil {
		return nil, false, nil
	}

	rows := make([][]string, len(vr.Values))
	for i, vs := range vr.Values {
		rows[i] = make([]string, len(vs))
		for j, v := range vs {
			rows[i][j] = fmt.Sprint(v)
		}
	}

	return rows, true, nil
}

func (b *GoogleBackend) DuplicateSheet(ctx context.Context, spreadsheetID string, req DuplicateRequest) error {
	batch := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DuplicateSheet: &sheets.DuplicateSheetRequest{
				InsertSheetIndex: req.InsertSheetIndex,
				NewSheetName:     req.NewSheetName,
				SourceSheetId:    req.SourceSheetID,
				// The first sheet of a spreadsheet has id 0.
				ForceSendFields: []string{"SourceSheetId", "InsertSheetIndex"},
			},
		}},
	}

	if _, err := b.srv.Spreadsheets.BatchUpdate(spreadsheetID, batch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch update: %w", err)
	}

	return nil
}

func (b *GoogleBackend) AppendRow(ctx context.Context, spreadsheetID, writeRange string, row []string) error {
	cells := make([]interface{}, len(row))
	for i, c := range row {
		cells[i] = c
	}

	vr := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Range:          writeRange,
		Values:         [][]interface{}{cells},
	}

	if _, err := b.srv.Spreadsheets.Values.Append(spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("append values: %w", err)
	}

	return nil
}

func (b *GoogleBackend) SheetExists(ctx context.Context, spreadsheetID, title string) (bool, error) {
	ss, err := b.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return true, nil
		}
	}

	return false, nil
}

// translateError maps the API's bad request for an unknown sheet name to
// ErrRangeNotParseable. The API exposes no structured code for it.
func translateError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Error(), unparseableRangeMessage) {
		return fmt.Errorf("%w: %w", ErrRangeNotParseable, err)
	}

	return err
}
