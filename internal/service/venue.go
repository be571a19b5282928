// Package service implements the venue scheduling operations on top of the
// repositories.  Every exported operation runs in a single transaction.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/kronos/internal/model"
	"github.com/iliyamo/kronos/internal/queue"
	"github.com/iliyamo/kronos/internal/repository"
	"github.com/iliyamo/kronos/internal/utils"
)

// ErrInvalidInput marks caller mistakes that no database state can fix.
var ErrInvalidInput = errors.New("invalid input")

// Publisher receives activity events after the originating transaction
// commits.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// Venue is the scheduling store.  It is safe for concurrent use; all state
// lives in the database.
type Venue struct {
	db *sql.DB

	Users        *repository.UserRepo
	Members      *repository.MemberRepo
	Stages       *repository.StageRepo
	Performers   *repository.PerformerRepo
	Performances *repository.PerformanceRepo
	CheckIns     *repository.CheckInRepo
	CheckOuts    *repository.CheckOutRepo
	Boxes        *repository.BoxRepo
	Storage      *repository.StorageRepo

	// Publisher may be nil, in which case no events are sent.
	Publisher Publisher
	// BoxExclusive rejects StoreItem into a box that still holds an
	// unreleased item.
	BoxExclusive bool
	// Now is the clock used for every recorded timestamp.
	Now func() time.Time
}

// NewVenue wires repositories for db.
func NewVenue(db *sql.DB, pub Publisher, boxExclusive bool) *Venue {
	return &Venue{
		db:           db,
		Users:        repository.NewUserRepo(db),
		Members:      repository.NewMemberRepo(db),
		Stages:       repository.NewStageRepo(db),
		Performers:   repository.NewPerformerRepo(db),
		Performances: repository.NewPerformanceRepo(db),
		CheckIns:     repository.NewCheckInRepo(db),
		CheckOuts:    repository.NewCheckOutRepo(db),
		Boxes:        repository.NewBoxRepo(db),
		Storage:      repository.NewStorageRepo(db),
		Publisher:    pub,
		BoxExclusive: boxExclusive,
		Now:          time.Now,
	}
}

// DB exposes the underlying handle for callers that manage their own
// transactions.
func (v *Venue) DB() *sql.DB { return v.db }

func (v *Venue) now() time.Time { return repository.Timestamp(v.Now()) }

// inTx runs fn inside a transaction, committing only if fn returns nil.
func (v *Venue) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func missing(what string, id uint64) error {
	return fmt.Errorf("%s %d: %w", what, id, repository.ErrReferenceNotFound)
}

// CreateUser registers a login account.  Username is trimmed, email is
// trimmed and lower-cased; duplicates of either fail with
// ErrUniquenessViolation.
func (v *Venue) CreateUser(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	u := model.User{
		Username:     strings.TrimSpace(username),
		Email:        repository.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    v.now(),
	}
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return model.User{}, fmt.Errorf("username, email and password are required: %w", ErrInvalidInput)
	}
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		return v.Users.WithTx(tx).Create(ctx, &u)
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash is a bcrypt hash of a random string, verified against when the
// email is unknown.
func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = utils.HashPassword(uuid.NewString(), bcrypt.DefaultCost)
	})
	return dummy
}

// Authenticate returns the user owning email when verify accepts password.
// Unknown emails and wrong passwords both return (nil, nil).
func (v *Venue) Authenticate(ctx context.Context, email, password string, verify func(hash, plain string) bool) (*model.User, error) {
	u, err := v.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// Spend the same hashing work as a real check so response time
		// does not reveal which emails are registered.
		verify(dummyHash(), password)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !verify(u.PasswordHash, password) {
		return nil, nil
	}
	return &u, nil
}

// CreatePerformance schedules performerID at when, optionally on stageID.
func (v *Venue) CreatePerformance(ctx context.Context, performerID uint64, when time.Time, duration int, stageID *uint64) (model.Performance, error) {
	if duration < 0 {
		return model.Performance{}, fmt.Errorf("duration must not be negative: %w", ErrInvalidInput)
	}
	p := model.Performance{
		Duration:    duration,
		When:        when,
		PerformerID: performerID,
		StageID:     stageID,
		CreatedAt:   v.now(),
	}
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := v.Performers.WithTx(tx).Exists(ctx, performerID)
		if err != nil {
			return err
		}
		if !ok {
			return missing("performer", performerID)
		}
		if stageID != nil {
			ok, err := v.Stages.WithTx(tx).Exists(ctx, *stageID)
			if err != nil {
				return err
			}
			if !ok {
				return missing("stage", *stageID)
			}
		}
		return v.Performances.WithTx(tx).Create(ctx, &p)
	})
	if err != nil {
		return model.Performance{}, err
	}
	return p, nil
}

// requireAttendance checks that both sides of a check-in or check-out exist.
func (v *Venue) requireAttendance(ctx context.Context, tx *sql.Tx, memberID, performanceID uint64) error {
	ok, err := v.Members.WithTx(tx).Exists(ctx, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return missing("member", memberID)
	}
	ok, err = v.Performances.WithTx(tx).Exists(ctx, performanceID)
	if err != nil {
		return err
	}
	if !ok {
		return missing("performance", performanceID)
	}
	return nil
}

// CheckIn records memberID arriving at performanceID now.
func (v *Venue) CheckIn(ctx context.Context, memberID, performanceID uint64) (model.CheckIn, error) {
	c := model.CheckIn{When: v.now(), MemberID: memberID, PerformanceID: performanceID}
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		if err := v.requireAttendance(ctx, tx, memberID, performanceID); err != nil {
			return err
		}
		return v.CheckIns.WithTx(tx).Create(ctx, &c)
	})
	if err != nil {
		return model.CheckIn{}, err
	}

	ev := queue.NewActivityEvent(queue.EventCheckInCreated, c.When)
	ev.MemberID, ev.PerformanceID, ev.CheckInID = memberID, performanceID, c.ID
	v.publish(ctx, ev)
	return c, nil
}

// CheckOutResult is a recorded check-out plus the storage records it closed.
type CheckOutResult struct {
	CheckOut model.CheckOut `json:"checkout"`
	Released []uint64       `json:"released"`
}

// CheckOut records memberID leaving performanceID now.  A prior check-in is
// not required.  Every still-open storage record held under a check-in of
// the same member at the same performance is released in the same
// transaction.
func (v *Venue) CheckOut(ctx context.Context, memberID, performanceID uint64) (CheckOutResult, error) {
	now := v.now()
	res := CheckOutResult{
		CheckOut: model.CheckOut{When: now, MemberID: &memberID, PerformanceID: &performanceID},
		Released: []uint64{},
	}
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		if err := v.requireAttendance(ctx, tx, memberID, performanceID); err != nil {
			return err
		}
		if err := v.CheckOuts.WithTx(tx).Create(ctx, &res.CheckOut); err != nil {
			return err
		}
		storage := v.Storage.WithTx(tx)
		open, err := storage.ListOpenFor(ctx, memberID, performanceID)
		if err != nil {
			return err
		}
		for _, s := range open {
			if _, err := storage.Release(ctx, s.ID, now); err != nil {
				return err
			}
			res.Released = append(res.Released, s.ID)
		}
		return nil
	})
	if err != nil {
		return CheckOutResult{}, err
	}

	ev := queue.NewActivityEvent(queue.EventCheckOutCreated, now)
	ev.MemberID, ev.PerformanceID, ev.CheckOutID = memberID, performanceID, res.CheckOut.ID
	ev.Released = res.Released
	v.publish(ctx, ev)
	return res, nil
}

// StoreItem places an item for checkInID into boxID (which may be nil).
func (v *Venue) StoreItem(ctx context.Context, boxID *uint64, checkInID uint64) (model.Storage, error) {
	s := model.Storage{BoxID: boxID, CheckInID: checkInID, TimeIn: v.now()}
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := v.CheckIns.WithTx(tx).Exists(ctx, checkInID)
		if err != nil {
			return err
		}
		if !ok {
			return missing("check-in", checkInID)
		}
		storage := v.Storage.WithTx(tx)
		if boxID != nil {
			// Locking serializes concurrent stores into the same box so the
			// occupancy check below cannot race.
			ok, err := v.Boxes.WithTx(tx).Lock(ctx, *boxID)
			if err != nil {
				return err
			}
			if !ok {
				return missing("box", *boxID)
			}
			if v.BoxExclusive {
				n, err := storage.CountOpenInBox(ctx, *boxID)
				if err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("box %d: %w", *boxID, repository.ErrBoxOccupied)
				}
			}
		}
		return storage.Create(ctx, &s)
	})
	if err != nil {
		return model.Storage{}, err
	}

	ev := queue.NewActivityEvent(queue.EventStorageStored, s.TimeIn)
	ev.CheckInID, ev.StorageID = checkInID, s.ID
	if boxID != nil {
		ev.BoxID = *boxID
	}
	v.publish(ctx, ev)
	return s, nil
}

// ReleaseItem closes storageID.  It fails with ErrNotFound for an unknown
// record and ErrAlreadyReleased if time_out is already set; an existing
// time_out is never overwritten.
func (v *Venue) ReleaseItem(ctx context.Context, storageID uint64) (model.Storage, error) {
	var s model.Storage
	err := v.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		s, err = v.Storage.WithTx(tx).Release(ctx, storageID, v.now())
		return err
	})
	if err != nil {
		return model.Storage{}, err
	}

	ev := queue.NewActivityEvent(queue.EventStorageReleased, *s.TimeOut)
	ev.CheckInID, ev.StorageID = s.CheckInID, s.ID
	if s.BoxID != nil {
		ev.BoxID = *s.BoxID
	}
	v.publish(ctx, ev)
	return s, nil
}

// publish sends ev without letting broker trouble reach the caller.
func (v *Venue) publish(ctx context.Context, ev queue.ActivityEvent) {
	if v.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := v.Publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Str("event_id", ev.ID).Msg("publish activity event failed")
	}
}
