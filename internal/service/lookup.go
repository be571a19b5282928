package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/kronos/internal/model"
	"github.com/iliyamo/kronos/internal/repository"
)

func (v *Venue) User(ctx context.Context, id uint64) (model.User, error) {
	return v.Users.GetByID(ctx, id)
}

func (v *Venue) Member(ctx context.Context, id uint64) (model.Member, error) {
	return v.Members.GetByID(ctx, id)
}

func (v *Venue) Stage(ctx context.Context, id uint64) (model.Stage, error) {
	return v.Stages.GetByID(ctx, id)
}

func (v *Venue) Performer(ctx context.Context, id uint64) (model.Performer, error) {
	return v.Performers.GetByID(ctx, id)
}

func (v *Venue) Performance(ctx context.Context, id uint64) (model.Performance, error) {
	return v.Performances.GetByID(ctx, id)
}

func (v *Venue) CheckInByID(ctx context.Context, id uint64) (model.CheckIn, error) {
	return v.CheckIns.GetByID(ctx, id)
}

func (v *Venue) CheckOutByID(ctx context.Context, id uint64) (model.CheckOut, error) {
	return v.CheckOuts.GetByID(ctx, id)
}

func (v *Venue) Box(ctx context.Context, id uint64) (model.Box, error) {
	return v.Boxes.GetByID(ctx, id)
}

func (v *Venue) StorageByID(ctx context.Context, id uint64) (model.Storage, error) {
	return v.Storage.GetByID(ctx, id)
}

// Back-reference queries.  Each returns ErrNotFound when the parent row
// does not exist, and an empty slice when it exists but owns nothing.

func notFound(what string, id uint64) error {
	return fmt.Errorf("%s %d: %w", what, id, repository.ErrNotFound)
}

func parent(ctx context.Context, exists func(context.Context, uint64) (bool, error), what string, id uint64) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(what, id)
	}
	return nil
}

func (v *Venue) PerformersForMember(ctx context.Context, memberID uint64) ([]model.Performer, error) {
	if err := parent(ctx, v.Members.Exists, "member", memberID); err != nil {
		return nil, err
	}
	return v.Performers.ListByMember(ctx, memberID)
}

func (v *Venue) CheckInsForMember(ctx context.Context, memberID uint64) ([]model.CheckIn, error) {
	if err := parent(ctx, v.Members.Exists, "member", memberID); err != nil {
		return nil, err
	}
	return v.CheckIns.ListByMember(ctx, memberID)
}

func (v *Venue) CheckOutsForMember(ctx context.Context, memberID uint64) ([]model.CheckOut, error) {
	if err := parent(ctx, v.Members.Exists, "member", memberID); err != nil {
		return nil, err
	}
	return v.CheckOuts.ListByMember(ctx, memberID)
}

func (v *Venue) PerformancesForPerformer(ctx context.Context, performerID uint64) ([]model.Performance, error) {
	if err := parent(ctx, v.Performers.Exists, "performer", performerID); err != nil {
		return nil, err
	}
	return v.Performances.ListByPerformer(ctx, performerID)
}

func (v *Venue) PerformancesForStage(ctx context.Context, stageID uint64) ([]model.Performance, error) {
	if err := parent(ctx, v.Stages.Exists, "stage", stageID); err != nil {
		return nil, err
	}
	return v.Performances.ListByStage(ctx, stageID)
}

func (v *Venue) BoxesForStage(ctx context.Context, stageID uint64) ([]model.Box, error) {
	if err := parent(ctx, v.Stages.Exists, "stage", stageID); err != nil {
		return nil, err
	}
	return v.Boxes.ListByStage(ctx, stageID)
}

func (v *Venue) CheckInsForPerformance(ctx context.Context, performanceID uint64) ([]model.CheckIn, error) {
	if err := parent(ctx, v.Performances.Exists, "performance", performanceID); err != nil {
		return nil, err
	}
	return v.CheckIns.ListByPerformance(ctx, performanceID)
}

func (v *Venue) StorageForCheckIn(ctx context.Context, checkInID uint64) ([]model.Storage, error) {
	if err := parent(ctx, v.CheckIns.Exists, "check-in", checkInID); err != nil {
		return nil, err
	}
	return v.Storage.ListByCheckIn(ctx, checkInID)
}

func (v *Venue) StorageForBox(ctx context.Context, boxID uint64) ([]model.Storage, error) {
	if _, err := v.Boxes.GetByID(ctx, boxID); err != nil {
		return nil, err
	}
	return v.Storage.ListByBox(ctx, boxID)
}
