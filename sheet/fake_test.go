package sheet

import (
	"context"
	"sync"
)

type fakeBackend struct {
	mu sync.Mutex

	sheets   map[string][][]string
	readErr  error
	dupErr   error
	noValues bool

	// readBarrier, when set, holds every read until it is released.
	readBarrier *sync.WaitGroup

	reads      []string
	duplicates []DuplicateRequest
	appends    map[string][][]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sheets:  make(map[string][][]string),
		appends: make(map[string][][]string),
	}
}

func (f *fakeBackend) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, bool, error) {
	f.mu.Lock()
	f.reads = append(f.reads, readRange)
	rows, ok := f.sheets[SheetName(readRange)]
	readErr, noValues := f.readErr, f.noValues
	f.mu.Unlock()

	if f.readBarrier != nil {
		f.readBarrier.Done()
		f.readBarrier.Wait()
	}

	if readErr != nil {
		return nil, false, readErr
	}
	if !ok {
		return nil, false, ErrRangeNotParseable
	}
	if noValues {
		return nil, false, nil
	}

	return rows, true, nil
}

func (f *fakeBackend) DuplicateSheet(ctx context.Context, spreadsheetID string, req DuplicateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.duplicates = append(f.duplicates, req)
	if f.dupErr != nil {
		return f.dupErr
	}
	f.sheets[req.NewSheetName] = [][]string{}

	return nil
}

func (f *fakeBackend) AppendRow(ctx context.Context, spreadsheetID, writeRange string, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := SheetName(writeRange)
	f.sheets[name] = append(f.sheets[name], row)
	f.appends[writeRange] = append(f.appends[writeRange], row)

	return nil
}

type fakeCheckingBackend struct {
	*fakeBackend
	checks int
}

func (f *fakeCheckingBackend) SheetExists(ctx context.Context, spreadsheetID, title string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checks++
	_, ok := f.sheets[title]

	return ok, nil
}
