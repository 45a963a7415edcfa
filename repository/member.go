package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/178inaba/attendance-sheet-bot/entity"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// MemberRepository looks members up in the members table.
type MemberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) FindByKey(ctx context.Context, key string) (*entity.Member, error) {
	b := sq.
		Select(
			"member_key",
			"name",
			"external_id",
			"category",
		).
		From("members").
		Where(sq.And{
			sq.Eq{"member_key": key},
			sq.Eq{"deleted_at": nil},
		}).
		OrderBy("id").
		Limit(1)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var m entity.Member
	if err := r.db.GetContext(ctx, &m, query, args...); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &m, nil
}
