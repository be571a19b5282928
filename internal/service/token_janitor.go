package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/kronos/internal/repository"
)

// TokenJanitor periodically deletes expired and revoked refresh tokens.
type TokenJanitor struct {
	tokens *repository.TokenRepo
	cron   *cron.Cron
	now    func() time.Time
}

// NewTokenJanitor schedules Purge on schedule, a standard five-field cron
// spec or a descriptor such as "@hourly".
func NewTokenJanitor(tokens *repository.TokenRepo, schedule string) (*TokenJanitor, error) {
	j := &TokenJanitor{tokens: tokens, cron: cron.New(), now: time.Now}
	if _, err := j.cron.AddFunc(schedule, func() { _, _ = j.Purge(context.Background()) }); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *TokenJanitor) Start() {
	j.cron.Start()
	log.Info().Msg("token janitor started")
}

// Stop halts scheduling and waits for a running purge to finish.
func (j *TokenJanitor) Stop() {
	<-j.cron.Stop().Done()
}

// Purge removes dead tokens once and reports how many were deleted.
func (j *TokenJanitor) Purge(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := j.tokens.PurgeExpired(ctx, j.now())
	if err != nil {
		log.Error().Err(err).Msg("purge refresh tokens failed")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("purged refresh tokens")
	}
	return n, nil
}
