package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
	"trustbit/infrastructure/observability"
)

// ExpiryWorker periodically reconciles bots whose paid period has lapsed:
// it claims every expired active bot in one atomic statement, then tears
// the claimed processes down. Because the claim commits before any stop is
// attempted, overlapping sweeps (or a crash mid-sweep) can never double-bill
// or double-claim; at worst a process outlives its EXPIRED row until the
// next stop attempt.
type ExpiryWorker struct {
	uowFactory        UnitOfWorkFactory
	supervisor        interfaces.ProcessSupervisor
	interval          time.Duration
	supervisorTimeout time.Duration
	clock             func() time.Time
	metrics           *observability.MetricsProvider
}

// NewExpiryWorker creates a new expiry worker. metrics may be nil.
func NewExpiryWorker(
	uowFactory UnitOfWorkFactory,
	supervisor interfaces.ProcessSupervisor,
	interval time.Duration,
	supervisorTimeout time.Duration,
	metrics *observability.MetricsProvider,
) *ExpiryWorker {
	return &ExpiryWorker{
		uowFactory:        uowFactory,
		supervisor:        supervisor,
		interval:          interval,
		supervisorTimeout: supervisorTimeout,
		clock:             func() time.Time { return time.Now().UTC() },
		metrics:           metrics,
	}
}

// WithClock overrides the worker's time source.
func (w *ExpiryWorker) WithClock(clock func() time.Time) *ExpiryWorker {
	w.clock = clock
	return w
}

// Start begins the periodic sweep and returns a stop function.
func (w *ExpiryWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Expiry worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		// Sweep once at startup to catch bots that expired while the
		// service was down.
		if _, err := w.ReconcileExpired(ctx, w.clock()); err != nil {
			log.WithError(err).Error("Initial expiry sweep failed")
		}

		for {
			select {
			case <-ctx.Done():
				log.Info("Expiry worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Expiry worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				if _, err := w.ReconcileExpired(ctx, w.clock()); err != nil {
					log.WithError(err).Error("Expiry sweep failed")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// ReconcileExpired runs one sweep: claim every expired active bot, commit,
// then stop each claimed process and append an expiry log line. Returns the
// number of bots claimed.
func (w *ExpiryWorker) ReconcileExpired(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()

	claimed, err := w.claimExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	log.WithFields(log.Fields{
		"count": len(claimed),
		"as_of": now,
	}).Info("Claimed expired bots")

	for _, bot := range claimed {
		w.teardown(ctx, bot, now)
	}

	if w.metrics != nil {
		w.metrics.RecordBotsExpired(int64(len(claimed)))
		w.metrics.RecordSweepDuration(time.Since(started))
	}
	return len(claimed), nil
}

// claimExpired flips every expired active bot to EXPIRED in one transaction
// and returns the claimed set.
func (w *ExpiryWorker) claimExpired(ctx context.Context, now time.Time) ([]*entities.Bot, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claimed, err := uow.BotRepository().ClaimExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim expired bots: %w", err)
	}

	for _, bot := range claimed {
		if err := uow.EventBus().Publish(events.BotExpiredEvent{
			BotID:     bot.ID,
			OwnerID:   bot.OwnerID,
			ExpiredAt: now,
		}); err != nil {
			log.WithField("bot_id", bot.ID).WithError(err).Warn("Failed to publish bot expired event")
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return claimed, nil
}

// teardown stops one claimed bot's process and records the expiry in its
// log. Failures never propagate: the EXPIRED flip is already durable and a
// later manual stop is idempotent.
func (w *ExpiryWorker) teardown(ctx context.Context, bot *entities.Bot, now time.Time) {
	stopCtx, cancel := context.WithTimeout(ctx, w.supervisorTimeout)
	defer cancel()

	message := fmt.Sprintf("expired at %s, process stopped", now.Format(time.RFC3339))
	if err := w.supervisor.Stop(stopCtx, bot.ProcessName()); err != nil {
		log.WithFields(log.Fields{
			"bot_id":  bot.ID,
			"process": bot.ProcessName(),
		}).WithError(err).Error("Failed to stop expired bot process")
		if w.metrics != nil {
			w.metrics.RecordSupervisorFailure("stop")
		}
		message = fmt.Sprintf("expired at %s, process stop failed: %v", now.Format(time.RFC3339), err)
	}

	if err := w.appendLog(ctx, bot, message); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to append expiry log")
	}
}

func (w *ExpiryWorker) appendLog(ctx context.Context, bot *entities.Bot, message string) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.BotRepository().AppendLog(ctx, bot.ID, message); err != nil {
		return err
	}
	return uow.Commit()
}
