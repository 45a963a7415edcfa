package sheet

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Resolution is the outcome of resolving a day sheet's serial number.
type Resolution struct {
	Serial int
	// Created reports that the day sheet was duplicated from the template.
	Created bool
}

// Resolver finds the serial number of the next entry in a day sheet and
// creates the sheet from a template when it does not exist yet.
type Resolver struct {
	backend         Backend
	spreadsheetID   string
	templateSheetID int64
	explicitCheck   bool
}

type ResolverOption func(*Resolver)

// WithExplicitCheck makes the resolver ask backends that implement
// ExistenceChecker whether the day sheet exists before reading it.
func WithExplicitCheck() ResolverOption {
	return func(r *Resolver) {
		r.explicitCheck = true
	}
}

func NewResolver(backend Backend, spreadsheetID string, templateSheetID int64, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		backend:         backend,
		spreadsheetID:   spreadsheetID,
		templateSheetID: templateSheetID,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the number of rows already present in the dateKey sheet.
// A missing sheet is duplicated from the template and resolves to 1.
// Every failure is reported as ErrNotAvailable.
func (r *Resolver) Resolve(ctx context.Context, dateKey string) (Resolution, error) {
	if ec, ok := r.backend.(ExistenceChecker); ok && r.explicitCheck {
		exists, err := ec.SheetExists(ctx, r.spreadsheetID, dateKey)
		if err != nil {
			log.Printf("Check sheet %q exists: %v.", dateKey, err)
			return Resolution{}, fmt.Errorf("%w: check sheet: %w", ErrNotAvailable, err)
		}
		if !exists {
			return r.create(ctx, dateKey)
		}
	}

	rows, present, err := r.backend.ReadRows(ctx, r.spreadsheetID, Range(dateKey))
	switch {
	case errors.Is(err, ErrRangeNotParseable):
		return r.create(ctx, dateKey)
	case err != nil:
		log.Printf("Read rows of %q: %v.", dateKey, err)
		return Resolution{}, fmt.Errorf("%w: read rows: %w", ErrNotAvailable, err)
	case !present:
		// An existing sheet whose range came back without values is not
		// treated as zero rows.
		log.Printf("Read rows of %q: response has no values.", dateKey)
		return Resolution{}, fmt.Errorf("%w: no values in %s", ErrNotAvailable, Range(dateKey))
	}

	return Resolution{Serial: len(rows)}, nil
}

func (r *Resolver) create(ctx context.Context, dateKey string) (Resolution, error) {
	log.Printf("Sheet %q does not exist, duplicating template %d.", dateKey, r.templateSheetID)

	if err := r.backend.DuplicateSheet(ctx, r.spreadsheetID, DuplicateRequest{
		SourceSheetID:    r.templateSheetID,
		NewSheetName:     dateKey,
		InsertSheetIndex: TemplateInsertIndex,
	}); err != nil {
		log.Printf("Duplicate sheet %q: %v.", dateKey, err)
		return Resolution{}, fmt.Errorf("%w: duplicate sheet: %w", ErrNotAvailable, err)
	}

	return Resolution{Serial: 1, Created: true}, nil
}
