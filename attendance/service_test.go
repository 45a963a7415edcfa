package attendance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/178inaba/attendance-sheet-bot/entity"
	"github.com/178inaba/attendance-sheet-bot/lock"
	"github.com/178inaba/attendance-sheet-bot/metrics"
	"github.com/178inaba/attendance-sheet-bot/repository"
	"github.com/178inaba/attendance-sheet-bot/sheet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var kolkata = time.FixedZone("IST", 5*60*60+30*60)

// 5 Jun 2024 18:00 IST.
var testNow = time.Date(2024, 6, 5, 12, 30, 0, 0, time.UTC)

type fakeMembers struct {
	members map[string]entity.Member
	err     error
}

func (f fakeMembers) FindByKey(ctx context.Context, key string) (*entity.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.members[key]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

type fakeProvider struct {
	backend sheet.Backend
	err     error
}

func (f fakeProvider) Backend(context.Context) (sheet.Backend, error) {
	return f.backend, f.err
}

// memoryBackend copies the template's rows when duplicating.
type memoryBackend struct {
	mu        sync.Mutex
	template  [][]string
	sheets    map[string][][]string
	dupCount  int
	readErr   error
	appendErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		template: [][]string{{"S.No", "Name", "Roll No", "Seat", "In", "Out"}},
		sheets:   make(map[string][][]string),
	}
}

func (b *memoryBackend) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readErr != nil {
		return nil, false, b.readErr
	}
	rows, ok := b.sheets[sheet.SheetName(readRange)]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", sheet.ErrRangeNotParseable, readRange)
	}
	return rows, true, nil
}

func (b *memoryBackend) DuplicateSheet(ctx context.Context, spreadsheetID string, req sheet.DuplicateRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dupCount++
	b.sheets[req.NewSheetName] = append([][]string(nil), b.template...)
	return nil
}

func (b *memoryBackend) AppendRow(ctx context.Context, spreadsheetID, writeRange string, row []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.appendErr != nil {
		return b.appendErr
	}
	name := sheet.SheetName(writeRange)
	b.sheets[name] = append(b.sheets[name], row)
	return nil
}

var testMembers = fakeMembers{members: map[string]entity.Member{
	"alice": {Key: "alice", Name: "Alice A", ExternalID: "R100", Category: "F"},
	"bob":   {Key: "bob", Name: "Bob B", ExternalID: "R200", Category: entity.CategoryM},
}}

func newTestService(members MemberFinder, backends BackendProvider, locker lock.Locker, spreadsheetID string) *Service {
	s := NewService(members, backends, locker, metrics.New(prometheus.NewRegistry()), Config{
		SpreadsheetID: spreadsheetID,
		Location:      kolkata,
		Defaults:      DefaultTimes,
	})
	s.now = func() time.Time { return testNow }
	return s
}

func TestService_Record_EndToEnd(t *testing.T) {
	// Day sheet "5 Jun" already holds a header and two entries.
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Template"))
	_, err := f.NewSheet("5 Jun")
	require.NoError(t, err)
	for i, row := range [][]interface{}{
		{"S.No", "Name", "Roll No", "Seat", "In", "Out"},
		{1, "Bob B", "R200", "", "17:30", "22:00"},
		{2, "Carol C", "R300", "A4", "17:45", "21:00"},
	} {
		require.NoError(t, f.SetSheetRow("5 Jun", fmt.Sprintf("A%d", i+1), &row))
	}
	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	s := newTestService(testMembers, fakeProvider{backend: sheet.NewXLSXBackend()}, lock.NewLocal(), path)

	got, err := s.Record(context.Background(), Command{UserKey: "alice"})
	require.NoError(t, err)
	assert.Equal(t, Receipt{
		DateKey: "5 Jun",
		Entry:   entity.Entry{Serial: 3, Name: "Alice A", ExternalID: "R100", Seat: "", TimeIn: "17:30", TimeOut: "21:00"},
	}, got)

	f, err = excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("5 Jun")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"3", "Alice A", "R100", "", "17:30", "21:00"}, rows[3])
}

func TestService_Record_FirstOfDay(t *testing.T) {
	b := newMemoryBackend()
	s := newTestService(testMembers, fakeProvider{backend: b}, lock.NewLocal(), "sid")

	got, err := s.Record(context.Background(), Command{UserKey: "bob", Overrides: Overrides{Seat: "B12"}})
	require.NoError(t, err)

	assert.Equal(t, entity.Entry{Serial: 1, Name: "Bob B", ExternalID: "R200", Seat: "B12", TimeIn: "17:30", TimeOut: "22:00"}, got.Entry)
	assert.Equal(t, 1, b.dupCount)
	assert.Equal(t, []string{"1", "Bob B", "R200", "B12", "17:30", "22:00"}, b.sheets["5 Jun"][1])
}

func TestService_Record_Errors(t *testing.T) {
	backendErr := errors.New("backend")

	tests := []struct {
		name     string
		members  MemberFinder
		provider func(b *memoryBackend) BackendProvider
		wantKind Kind
	}{
		{
			name:     "member not found",
			members:  fakeMembers{},
			wantKind: KindMemberNotFound,
		},
		{
			name:     "record store cannot be opened",
			members:  fakeMembers{err: fmt.Errorf("%w: %w", repository.ErrSourceOpen, errors.New("no such file"))},
			wantKind: KindRecordOpen,
		},
		{
			name:     "record store cannot be read",
			members:  fakeMembers{err: fmt.Errorf("%w: line 2", repository.ErrMalformedRecord)},
			wantKind: KindRecordRead,
		},
		{
			name:    "credentials",
			members: testMembers,
			provider: func(*memoryBackend) BackendProvider {
				return fakeProvider{err: errors.New("read credentials")}
			},
			wantKind: KindCredentials,
		},
		{
			name:    "serial number",
			members: testMembers,
			provider: func(b *memoryBackend) BackendProvider {
				b.readErr = backendErr
				return fakeProvider{backend: b}
			},
			wantKind: KindSerial,
		},
		{
			name:    "insert",
			members: testMembers,
			provider: func(b *memoryBackend) BackendProvider {
				b.appendErr = backendErr
				return fakeProvider{backend: b}
			},
			wantKind: KindInsert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMemoryBackend()
			var p BackendProvider = fakeProvider{backend: b}
			if tt.provider != nil {
				p = tt.provider(b)
			}
			s := newTestService(tt.members, p, lock.Nop{}, "sid")

			_, err := s.Record(context.Background(), Command{UserKey: "alice"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestService_Record_LockSerializesFirstOfDay(t *testing.T) {
	b := newMemoryBackend()
	s := newTestService(testMembers, fakeProvider{backend: b}, lock.NewLocal(), "sid")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		serials []int
	)
	for _, key := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			r, err := s.Record(context.Background(), Command{UserKey: key})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			serials = append(serials, r.Entry.Serial)
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	sort.Ints(serials)
	assert.Equal(t, []int{1, 2}, serials)
	assert.Equal(t, 1, b.dupCount)
}
