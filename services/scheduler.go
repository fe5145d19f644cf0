// services/scheduler.go
package services

import (
	"context"
	"time"

	"vip-passport/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BacklogScheduler periodically refreshes the pending-submissions gauge. It only reads.
type BacklogScheduler struct {
	DB       *gorm.DB
	Metrics  *Metrics
	Log      logrus.FieldLogger
	Interval time.Duration

	sched gocron.Scheduler
}

func NewBacklogScheduler(db *gorm.DB, metrics *Metrics, log logrus.FieldLogger) *BacklogScheduler {
	return &BacklogScheduler{
		DB:       db,
		Metrics:  metrics,
		Log:      log.WithField("component", "scheduler"),
		Interval: time.Minute,
	}
}

func (b *BacklogScheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(b.Interval),
		gocron.NewTask(func() {
			if err := b.RefreshPending(ctx); err != nil {
				b.Log.WithError(err).Warn("pending backlog refresh failed")
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	b.sched = sched
	return nil
}

func (b *BacklogScheduler) Stop() {
	if b.sched == nil {
		return
	}
	if err := b.sched.Shutdown(); err != nil {
		b.Log.WithError(err).Warn("scheduler shutdown")
	}
}

// RefreshPending counts PENDING rows per submission kind and per generic mission log.
func (b *BacklogScheduler) RefreshPending(ctx context.Context) error {
	tables := []struct {
		kind  models.SubmissionKind
		model any
	}{
		{models.KindPurchase, &models.Purchase{}},
		{models.KindDisplay, &models.Display{}},
		{models.KindReferral, &models.Referral{}},
		{models.KindMission, &models.MissionLog{}},
	}
	db := b.DB.WithContext(ctx)
	for _, t := range tables {
		var n int64
		if err := db.Model(t.model).Where("status = ?", models.MissionStatusPending).Count(&n).Error; err != nil {
			return err
		}
		b.Metrics.setPending(string(t.kind), n)
	}
	return nil
}
