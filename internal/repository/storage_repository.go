package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/kronos/internal/model"
)

const storageColumns = "id, box_id, checkin_id, time_in, time_out"

// StorageRepo persists items held in boxes.
type StorageRepo struct{ db DBTX }

func NewStorageRepo(db *sql.DB) *StorageRepo { return &StorageRepo{db: db} }

func (r *StorageRepo) WithTx(tx *sql.Tx) *StorageRepo { return &StorageRepo{db: tx} }

func scanStorage(s scanner) (model.Storage, error) {
	var (
		st  model.Storage
		out sql.NullTime
	)
	err := s.Scan(&st.ID, &st.BoxID, &st.CheckInID, &st.TimeIn, &out)
	st.TimeIn = st.TimeIn.UTC()
	st.TimeOut = nullTime(out)
	return st, err
}

// Create inserts s.  TimeOut is ignored: new records are always open.
func (r *StorageRepo) Create(ctx context.Context, s *model.Storage) error {
	s.TimeIn = Timestamp(s.TimeIn)
	s.TimeOut = nil
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO storage_records (box_id, checkin_id, time_in) VALUES (?, ?, ?)",
		s.BoxID, s.CheckInID, s.TimeIn)
	if err != nil {
		return classify(err, opWrite, "storage")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *StorageRepo) GetByID(ctx context.Context, id uint64) (model.Storage, error) {
	s, err := scanStorage(r.db.QueryRowContext(ctx,
		"SELECT "+storageColumns+" FROM storage_records WHERE id = ?", id))
	return s, classify(err, opRead, "storage")
}

func (r *StorageRepo) List(ctx context.Context, limit, offset int) ([]model.Storage, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanStorage,
		"SELECT "+storageColumns+" FROM storage_records ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *StorageRepo) ListByCheckIn(ctx context.Context, checkInID uint64) ([]model.Storage, error) {
	return collect(ctx, r.db, scanStorage,
		"SELECT "+storageColumns+" FROM storage_records WHERE checkin_id = ? ORDER BY id", checkInID)
}

func (r *StorageRepo) ListByBox(ctx context.Context, boxID uint64) ([]model.Storage, error) {
	return collect(ctx, r.db, scanStorage,
		"SELECT "+storageColumns+" FROM storage_records WHERE box_id = ? ORDER BY id", boxID)
}

// CountOpenInBox returns how many unreleased items a box holds.
func (r *StorageRepo) CountOpenInBox(ctx context.Context, boxID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM storage_records WHERE box_id = ? AND time_out IS NULL", boxID).Scan(&n)
	return n, err
}

// ListOpenFor returns the unreleased items stored under any check-in of
// memberID at performanceID.
func (r *StorageRepo) ListOpenFor(ctx context.Context, memberID, performanceID uint64) ([]model.Storage, error) {
	return collect(ctx, r.db, scanStorage,
		`SELECT s.id, s.box_id, s.checkin_id, s.time_in, s.time_out
		 FROM storage_records s
		 JOIN check_ins c ON c.id = s.checkin_id
		 WHERE c.member_id = ? AND c.performance_id = ? AND s.time_out IS NULL
		 ORDER BY s.id`, memberID, performanceID)
}

// Update moves an item to another box.  time_in and time_out are not
// editable here; use Release to close a record.
func (r *StorageRepo) Update(ctx context.Context, s *model.Storage) error {
	res, err := r.db.ExecContext(ctx, "UPDATE storage_records SET box_id = ? WHERE id = ?", s.BoxID, s.ID)
	if err != nil {
		return classify(err, opWrite, "storage")
	}
	return affected(res, "storage")
}

// Release sets time_out on an open record.  The update is conditional on
// time_out still being NULL, so an existing time_out is never overwritten
// and concurrent releases cannot both succeed.  at is clamped to time_in.
func (r *StorageRepo) Release(ctx context.Context, id uint64, at time.Time) (model.Storage, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Storage{}, err
	}
	if s.Released() {
		return s, fmt.Errorf("storage %d: %w", id, ErrAlreadyReleased)
	}
	at = Timestamp(at)
	if at.Before(s.TimeIn) {
		at = s.TimeIn
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE storage_records SET time_out = ? WHERE id = ? AND time_out IS NULL", at, id)
	if err != nil {
		return model.Storage{}, classify(err, opWrite, "storage")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Storage{}, err
	}
	if n == 0 {
		return r.released(ctx, id)
	}
	s.TimeOut = &at
	return s, nil
}

// released reloads a record that lost a release race.
func (r *StorageRepo) released(ctx context.Context, id uint64) (model.Storage, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Storage{}, err
	}
	return s, fmt.Errorf("storage %d: %w", id, ErrAlreadyReleased)
}

func (r *StorageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM storage_records WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "storage")
	}
	return affected(res, "storage")
}
