package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kronos/internal/model"
)

const checkOutColumns = "id, checked_at, performance_id, member_id"

// CheckOutRepo persists member departures.
type CheckOutRepo struct{ db DBTX }

func NewCheckOutRepo(db *sql.DB) *CheckOutRepo { return &CheckOutRepo{db: db} }

func (r *CheckOutRepo) WithTx(tx *sql.Tx) *CheckOutRepo { return &CheckOutRepo{db: tx} }

func scanCheckOut(s scanner) (model.CheckOut, error) {
	var c model.CheckOut
	err := s.Scan(&c.ID, &c.When, &c.PerformanceID, &c.MemberID)
	c.When = c.When.UTC()
	return c, err
}

func (r *CheckOutRepo) Create(ctx context.Context, c *model.CheckOut) error {
	c.When = Timestamp(c.When)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO check_outs (checked_at, performance_id, member_id) VALUES (?, ?, ?)",
		c.When, c.PerformanceID, c.MemberID)
	if err != nil {
		return classify(err, opWrite, "check-out")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *CheckOutRepo) GetByID(ctx context.Context, id uint64) (model.CheckOut, error) {
	c, err := scanCheckOut(r.db.QueryRowContext(ctx,
		"SELECT "+checkOutColumns+" FROM check_outs WHERE id = ?", id))
	return c, classify(err, opRead, "check-out")
}

func (r *CheckOutRepo) List(ctx context.Context, limit, offset int) ([]model.CheckOut, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanCheckOut,
		"SELECT "+checkOutColumns+" FROM check_outs ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *CheckOutRepo) ListByMember(ctx context.Context, memberID uint64) ([]model.CheckOut, error) {
	return collect(ctx, r.db, scanCheckOut,
		"SELECT "+checkOutColumns+" FROM check_outs WHERE member_id = ? ORDER BY checked_at, id", memberID)
}

func (r *CheckOutRepo) Update(ctx context.Context, c *model.CheckOut) error {
	c.When = Timestamp(c.When)
	res, err := r.db.ExecContext(ctx,
		"UPDATE check_outs SET checked_at = ?, performance_id = ?, member_id = ? WHERE id = ?",
		c.When, c.PerformanceID, c.MemberID, c.ID)
	if err != nil {
		return classify(err, opWrite, "check-out")
	}
	return affected(res, "check-out")
}

func (r *CheckOutRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM check_outs WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "check-out")
	}
	return affected(res, "check-out")
}
