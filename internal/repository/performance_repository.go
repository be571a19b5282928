package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kronos/internal/model"
)

const performanceColumns = "id, duration_min, scheduled_at, performer_id, stage_id, created_at"

// PerformanceRepo persists scheduled performances.
type PerformanceRepo struct{ db DBTX }

func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

func (r *PerformanceRepo) WithTx(tx *sql.Tx) *PerformanceRepo { return &PerformanceRepo{db: tx} }

func scanPerformance(s scanner) (model.Performance, error) {
	var p model.Performance
	err := s.Scan(&p.ID, &p.Duration, &p.When, &p.PerformerID, &p.StageID, &p.CreatedAt)
	p.When, p.CreatedAt = p.When.UTC(), p.CreatedAt.UTC()
	return p, err
}

// Create inserts p.  The performer (and the stage when set) must exist;
// otherwise the foreign key rejects the row with ErrReferenceNotFound.
func (r *PerformanceRepo) Create(ctx context.Context, p *model.Performance) error {
	p.When = Timestamp(p.When)
	p.CreatedAt = Timestamp(p.CreatedAt)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO performances (duration_min, scheduled_at, performer_id, stage_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Duration, p.When, p.PerformerID, p.StageID, p.CreatedAt)
	if err != nil {
		return classify(err, opWrite, "performance")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PerformanceRepo) GetByID(ctx context.Context, id uint64) (model.Performance, error) {
	p, err := scanPerformance(r.db.QueryRowContext(ctx,
		"SELECT "+performanceColumns+" FROM performances WHERE id = ?", id))
	return p, classify(err, opRead, "performance")
}

func (r *PerformanceRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "performances", id)
}

// List returns performances in schedule order.
func (r *PerformanceRepo) List(ctx context.Context, limit, offset int) ([]model.Performance, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanPerformance,
		"SELECT "+performanceColumns+" FROM performances ORDER BY scheduled_at, id LIMIT ? OFFSET ?", limit, offset)
}

// ListByPerformer returns a performer's performances in schedule order.
func (r *PerformanceRepo) ListByPerformer(ctx context.Context, performerID uint64) ([]model.Performance, error) {
	return collect(ctx, r.db, scanPerformance,
		"SELECT "+performanceColumns+" FROM performances WHERE performer_id = ? ORDER BY scheduled_at, id", performerID)
}

// ListByStage returns the performances on a stage in schedule order.
func (r *PerformanceRepo) ListByStage(ctx context.Context, stageID uint64) ([]model.Performance, error) {
	return collect(ctx, r.db, scanPerformance,
		"SELECT "+performanceColumns+" FROM performances WHERE stage_id = ? ORDER BY scheduled_at, id", stageID)
}

// Update reschedules a performance.  created_at is never rewritten.
func (r *PerformanceRepo) Update(ctx context.Context, p *model.Performance) error {
	p.When = Timestamp(p.When)
	res, err := r.db.ExecContext(ctx,
		"UPDATE performances SET duration_min = ?, scheduled_at = ?, performer_id = ?, stage_id = ? WHERE id = ?",
		p.Duration, p.When, p.PerformerID, p.StageID, p.ID)
	if err != nil {
		return classify(err, opWrite, "performance")
	}
	return affected(res, "performance")
}

func (r *PerformanceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM performances WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "performance")
	}
	return affected(res, "performance")
}
