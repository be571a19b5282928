package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kronos/internal/model"
)

// BoxRepo persists storage boxes.  Box ids are labels chosen by the caller.
type BoxRepo struct{ db DBTX }

func NewBoxRepo(db *sql.DB) *BoxRepo { return &BoxRepo{db: db} }

func (r *BoxRepo) WithTx(tx *sql.Tx) *BoxRepo { return &BoxRepo{db: tx} }

func scanBox(s scanner) (model.Box, error) {
	var b model.Box
	err := s.Scan(&b.ID, &b.StageID)
	return b, err
}

// Create inserts b using its caller-assigned ID.  Reusing an ID yields
// ErrUniquenessViolation.
func (r *BoxRepo) Create(ctx context.Context, b *model.Box) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO boxes (id, stage_id) VALUES (?, ?)", b.ID, b.StageID)
	return classify(err, opWrite, "box")
}

func (r *BoxRepo) GetByID(ctx context.Context, id uint64) (model.Box, error) {
	b, err := scanBox(r.db.QueryRowContext(ctx, "SELECT id, stage_id FROM boxes WHERE id = ?", id))
	return b, classify(err, opRead, "box")
}

// Lock takes a write lock on the box row for the rest of the transaction
// and reports whether the box exists.
func (r *BoxRepo) Lock(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE boxes SET stage_id = stage_id WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *BoxRepo) List(ctx context.Context, limit, offset int) ([]model.Box, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanBox, "SELECT id, stage_id FROM boxes ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *BoxRepo) ListByStage(ctx context.Context, stageID uint64) ([]model.Box, error) {
	return collect(ctx, r.db, scanBox, "SELECT id, stage_id FROM boxes WHERE stage_id = ? ORDER BY id", stageID)
}

// Update moves a box to another stage (or none).
func (r *BoxRepo) Update(ctx context.Context, b *model.Box) error {
	res, err := r.db.ExecContext(ctx, "UPDATE boxes SET stage_id = ? WHERE id = ?", b.StageID, b.ID)
	if err != nil {
		return classify(err, opWrite, "box")
	}
	return affected(res, "box")
}

// Delete removes a box; its storage history keeps existing without one.
func (r *BoxRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM boxes WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "box")
	}
	return affected(res, "box")
}
