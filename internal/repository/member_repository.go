package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/kronos/internal/model"
)

const memberColumns = "id, first_name, last_name, email, password_hash"

// MemberRepo persists venue members.
type MemberRepo struct{ db DBTX }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

func (r *MemberRepo) WithTx(tx *sql.Tx) *MemberRepo { return &MemberRepo{db: tx} }

func scanMember(s scanner) (model.Member, error) {
	var m model.Member
	err := s.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PasswordHash)
	return m, err
}

// Create inserts m and sets its ID.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) error {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = NormalizeEmail(m.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO members (first_name, last_name, email, password_hash) VALUES (?,?,?,?)",
		m.FirstName, m.LastName, m.Email, m.PasswordHash)
	if err != nil {
		return classify(err, opWrite, "member")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", id))
	return m, classify(err, opRead, "member")
}

// Exists reports whether a member with id exists.
func (r *MemberRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "members", id)
}

func (r *MemberRepo) List(ctx context.Context, limit, offset int) ([]model.Member, error) {
	limit, offset = page(limit, offset)
	return collect(ctx, r.db, scanMember,
		"SELECT "+memberColumns+" FROM members ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *MemberRepo) Update(ctx context.Context, m *model.Member) error {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = NormalizeEmail(m.Email)
	res, err := r.db.ExecContext(ctx,
		"UPDATE members SET first_name = ?, last_name = ?, email = ?, password_hash = ? WHERE id = ?",
		m.FirstName, m.LastName, m.Email, m.PasswordHash, m.ID)
	if err != nil {
		return classify(err, opWrite, "member")
	}
	return affected(res, "member")
}

// Delete removes a member.  Members with check-ins cannot be deleted
// (ErrConflict); their performers and check-outs are detached.
func (r *MemberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return classify(err, opDelete, "member")
	}
	return affected(res, "member")
}
