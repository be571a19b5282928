package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/kronos/internal/model"
)

const performerColumns = "id, name, phone_number, member_id"

// PerformerRepo persists performers.
type PerformerRepo struct{ db DBTX }

func NewPerformerRepo(db *sql.DB) *PerformerRepo { return &PerformerRepo{db: db} }

func (r *PerformerRepo) WithTx(tx *sql.Tx) *PerformerRepo { return &PerformerRepo{db: tx} }

func scanPerformer(s scanner) (model.Performer, error) {
	var p model.Performer
	err := s.Scan(&p.ID, &p.Name, &p.PhoneNumber, &p.MemberID)
	return p, err
}

// Create inserts p.  A non-nil MemberID must reference an existing member.
func (r *PerformerRepo) Create(ctx context.Context, p *model.Performer) error {
	p.Name = strings.TrimSpace(p.Name)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO performers (name, phone_number, member_id) VALUES (?, ?, ?)",
		p.Name, p.PhoneNumber, p.MemberID)
	if err != nil {
		return classify(err, opWrite, "performer")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PerformerRepo) GetByID(ctx context.Context, id uint64) (model.Performer, error) {
	p, err := scanPerformer(r.db.QueryRowContext(ctx,
		"SELECT "+performerColumns+" FROM performers WHERE id = ?", id))
	return p, classify(err, opRead, "performer")
}

func (r *PerformerRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "performers", id)
}

func (r *PerformerRepo) List(ctx context.Context, limit, offset int) ([]model.Performer, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanPerformer,
		"SELECT "+performerColumns+" FROM performers ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListByMember returns the performers assigned to a member.
func (r *PerformerRepo) ListByMember(ctx context.Context, memberID uint64) ([]model.Performer, error) {
	return collect(ctx, r.db, scanPerformer,
		"SELECT "+performerColumns+" FROM performers WHERE member_id = ? ORDER BY id", memberID)
}

func (r *PerformerRepo) Update(ctx context.Context, p *model.Performer) error {
	p.Name = strings.TrimSpace(p.Name)
	res, err := r.db.ExecContext(ctx,
		"UPDATE performers SET name = ?, phone_number = ?, member_id = ? WHERE id = ?",
		p.Name, p.PhoneNumber, p.MemberID, p.ID)
	if err != nil {
		return classify(err, opWrite, "performer")
	}
	return affected(res, "performer")
}

// Delete removes a performer.  Performers with scheduled performances
// cannot be deleted (ErrConflict).
func (r *PerformerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM performers WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "performer")
	}
	return affected(res, "performer")
}
