package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReminderSpec fires at the top of every hour.
const ReminderSpec = "0 * * * *"

// Reminder sends the dose reminders due at the given instant.
type Reminder interface {
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

// StartReminderScheduler registers the reminder sweep and starts the cron.
// The returned cron is stopped by the caller on shutdown.
func StartReminderScheduler(r Reminder, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(ReminderSpec, func() {
		RunReminders(context.Background(), r, time.Now(), log)
	}); err != nil {
		return nil, err
	}
	c.Start()
	log.Info("reminder scheduler started", zap.String("spec", ReminderSpec))
	return c, nil
}

// RunReminders performs one sweep. Failures are logged, never returned.
func RunReminders(ctx context.Context, r Reminder, now time.Time, log *zap.Logger) {
	log.Info("running medication reminder sweep", zap.String("slot", now.Format("15:04")))
	sent, err := r.SendReminders(ctx, now)
	if err != nil {
		log.Error("reminder sweep failed", zap.Error(err))
		return
	}
	log.Info("reminder sweep finished", zap.Int("sent", sent))
}
