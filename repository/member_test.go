package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/178inaba/attendance-sheet-bot/entity"
	sq "github.com/Masterminds/squirrel"
)

func TestMemberRepository_FindByKey(t *testing.T) {
	requireDB(t)

	ctx := context.Background()
	r := NewMemberRepository(testDB)

	count := 5
	members := make([]*entity.Member, count)
	for i := 0; i < count; i++ {
		members[i] = &entity.Member{
			Key:        fmt.Sprintf("test_key_%d", i+1),
			Name:       fmt.Sprintf("Test Name: %d", i+1),
			ExternalID: fmt.Sprintf("R%03d", i+1),
			Category:   "F",
		}
	}
	members[1].Category = entity.CategoryM
	if err := r.bulkCreate(ctx, members); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	t.Cleanup(func() {
		if _, err := testDB.ExecContext(ctx, "TRUNCATE members"); err != nil {
			t.Fatalf("Fail cleanup: %v.", err)
		}
	})

	gotMember, err := r.FindByKey(ctx, "test_key_2")
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := gotMember.Name, "Test Name: 2"; got != want {
		t.Fatalf("Name is %q, but want %q.", got, want)
	}
	if got, want := gotMember.ExternalID, "R002"; got != want {
		t.Fatalf("ExternalID is %q, but want %q.", got, want)
	}
	if got, want := gotMember.Category, entity.CategoryM; got != want {
		t.Fatalf("Category is %q, but want %q.", got, want)
	}

	gotMember, err = r.FindByKey(ctx, "unknown")
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if gotMember != nil {
		t.Fatalf("Member is %+v, but want nil.", gotMember)
	}
}

// For test use only.
func (r *MemberRepository) bulkCreate(ctx context.Context, members []*entity.Member) error {
	ib := sq.
		Insert("members").
		Columns(
			"member_key",
			"name",
			"external_id",
			"category",
		)

	for _, m := range members {
		ib = ib.Values(
			m.Key,
			m.Name,
			m.ExternalID,
			m.Category,
		)
	}

	query, args, err := ib.ToSql()
	if err != nil {
		return fmt.Errorf("to sql: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	return nil
}
