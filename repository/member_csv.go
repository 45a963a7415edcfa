package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/178inaba/attendance-sheet-bot/entity"
)

var (
	// ErrSourceOpen is wrapped when the record source cannot be opened.
	ErrSourceOpen = errors.New("open member source")
	// ErrMalformedRecord is wrapped when the matching row lacks columns.
	ErrMalformedRecord = errors.New("malformed member record")
)

const memberColumns = 4

// MemberCSVRepository scans a header-less CSV of key,name,external id,category.
type MemberCSVRepository struct {
	source Source
}

func NewMemberCSVRepository(source Source) *MemberCSVRepository {
	return &MemberCSVRepository{source: source}
}

// FindByKey returns the first row whose first column equals key, or nil if
// none does. A row with missing columns fails the whole scan.
func (r *MemberCSVRepository) FindByKey(ctx context.Context, key string) (*entity.Member, error) {
	rc, err := r.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceOpen, r.source, err)
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	// Every row must have as many fields as the first.
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = true

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		if len(record) < memberColumns {
			log.Printf("Member record on line %d has %d columns, want %d.", line, len(record), memberColumns)
			return nil, fmt.Errorf("%w: line %d", ErrMalformedRecord, line)
		}
		if record[0] != key {
			continue
		}

		return &entity.Member{
			Key:        record[0],
			Name:       record[1],
			ExternalID: record[2],
			Category:   record[3],
		}, nil
	}
}
