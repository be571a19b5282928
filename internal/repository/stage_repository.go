package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/kronos/internal/model"
)

// StageRepo persists stages.
type StageRepo struct{ db DBTX }

func NewStageRepo(db *sql.DB) *StageRepo { return &StageRepo{db: db} }

func (r *StageRepo) WithTx(tx *sql.Tx) *StageRepo { return &StageRepo{db: tx} }

func scanStage(s scanner) (model.Stage, error) {
	var st model.Stage
	err := s.Scan(&st.ID, &st.Name)
	return st, err
}

func (r *StageRepo) Create(ctx context.Context, s *model.Stage) error {
	s.Name = strings.TrimSpace(s.Name)
	res, err := r.db.ExecContext(ctx, "INSERT INTO stages (name) VALUES (?)", s.Name)
	if err != nil {
		return classify(err, opWrite, "stage")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *StageRepo) GetByID(ctx context.Context, id uint64) (model.Stage, error) {
	s, err := scanStage(r.db.QueryRowContext(ctx, "SELECT id, name FROM stages WHERE id = ?", id))
	return s, classify(err, opRead, "stage")
}

func (r *StageRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "stages", id)
}

func (r *StageRepo) List(ctx context.Context, limit, offset int) ([]model.Stage, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanStage, "SELECT id, name FROM stages ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *StageRepo) Update(ctx context.Context, s *model.Stage) error {
	s.Name = strings.TrimSpace(s.Name)
	res, err := r.db.ExecContext(ctx, "UPDATE stages SET name = ? WHERE id = ?", s.Name, s.ID)
	if err != nil {
		return classify(err, opWrite, "stage")
	}
	return affected(res, "stage")
}

// Delete removes a stage; its performances and boxes keep existing without one.
func (r *StageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM stages WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "stage")
	}
	return affected(res, "stage")
}
