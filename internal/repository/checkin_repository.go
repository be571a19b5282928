package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kronos/internal/model"
)

const checkInColumns = "id, checked_at, performance_id, member_id"

// CheckInRepo persists member arrivals.
type CheckInRepo struct{ db DBTX }

func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

func (r *CheckInRepo) WithTx(tx *sql.Tx) *CheckInRepo { return &CheckInRepo{db: tx} }

func scanCheckIn(s scanner) (model.CheckIn, error) {
	var c model.CheckIn
	err := s.Scan(&c.ID, &c.When, &c.PerformanceID, &c.MemberID)
	c.When = c.When.UTC()
	return c, err
}

func (r *CheckInRepo) Create(ctx context.Context, c *model.CheckIn) error {
	c.When = Timestamp(c.When)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO check_ins (checked_at, performance_id, member_id) VALUES (?, ?, ?)",
		c.When, c.PerformanceID, c.MemberID)
	if err != nil {
		return classify(err, opWrite, "check-in")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *CheckInRepo) GetByID(ctx context.Context, id uint64) (model.CheckIn, error) {
	c, err := scanCheckIn(r.db.QueryRowContext(ctx,
		"SELECT "+checkInColumns+" FROM check_ins WHERE id = ?", id))
	return c, classify(err, opRead, "check-in")
}

func (r *CheckInRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "check_ins", id)
}

func (r *CheckInRepo) List(ctx context.Context, limit, offset int) ([]model.CheckIn, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanCheckIn,
		"SELECT "+checkInColumns+" FROM check_ins ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *CheckInRepo) ListByMember(ctx context.Context, memberID uint64) ([]model.CheckIn, error) {
	return collect(ctx, r.db, scanCheckIn,
		"SELECT "+checkInColumns+" FROM check_ins WHERE member_id = ? ORDER BY checked_at, id", memberID)
}

func (r *CheckInRepo) ListByPerformance(ctx context.Context, performanceID uint64) ([]model.CheckIn, error) {
	return collect(ctx, r.db, scanCheckIn,
		"SELECT "+checkInColumns+" FROM check_ins WHERE performance_id = ? ORDER BY checked_at, id", performanceID)
}

// Update only rewrites the timestamp: who checked in to what is fixed at
// creation.
func (r *CheckInRepo) Update(ctx context.Context, c *model.CheckIn) error {
	c.When = Timestamp(c.When)
	res, err := r.db.ExecContext(ctx, "UPDATE check_ins SET checked_at = ? WHERE id = ?", c.When, c.ID)
	if err != nil {
		return classify(err, opWrite, "check-in")
	}
	return affected(res, "check-in")
}

func (r *CheckInRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM check_ins WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "check-in")
	}
	return affected(res, "check-in")
}
