package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
	"trustbit/domain/services"
	"trustbit/infrastructure/observability"
)

// BotService coordinates bot provisioning with wallet billing. Each
// operation runs its database work inside a single unit of work so the bot
// row and its debit commit or roll back together; supervisor calls happen
// outside the transaction and are reconciled with compensating updates.
type BotService struct {
	uowFactory        UnitOfWorkFactory
	supervisor        interfaces.ProcessSupervisor
	gateway           interfaces.PaymentGateway
	supervisorTimeout time.Duration
	metrics           *observability.MetricsProvider
}

// NewBotService creates a new bot service. metrics may be nil.
func NewBotService(
	uowFactory UnitOfWorkFactory,
	supervisor interfaces.ProcessSupervisor,
	gateway interfaces.PaymentGateway,
	supervisorTimeout time.Duration,
	metrics *observability.MetricsProvider,
) *BotService {
	return &BotService{
		uowFactory:        uowFactory,
		supervisor:        supervisor,
		gateway:           gateway,
		supervisorTimeout: supervisorTimeout,
		metrics:           metrics,
	}
}

// CreateBot provisions a new bot for the user: the bot row (DEPLOYING) and
// the plan-price debit commit in one transaction, then the process launch is
// requested from the supervisor. A launch failure after commit is
// compensated with a refund credit and a STOPPED flip; the caller sees
// ErrLaunchFailed.
func (s *BotService) CreateBot(ctx context.Context, userID uuid.UUID, params services.CreateBotParams) (*entities.Bot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	plan, err := entities.PlanByID(params.PlanID)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now().UTC()

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	bot, err := registry.Create(ctx, userID, params, now)
	if err != nil {
		return nil, err
	}

	ledger := services.NewLedgerService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	description := fmt.Sprintf("Bot creation: %s (%s plan)", bot.Name, plan.ID)
	if _, err := ledger.Debit(ctx, userID, plan.Price, description, nil); err != nil {
		return nil, err
	}

	if err := uow.EventBus().Publish(events.BotCreatedEvent{
		BotID:   bot.ID,
		OwnerID: userID,
		Name:    bot.Name,
		Plan:    plan.ID,
		Price:   plan.Price,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish bot created event")
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBotCreated(plan.ID)
		s.metrics.RecordTransaction(string(entities.TransactionTypeDeduction))
	}

	// The bot and its debit are durable; launch the process. Any failure
	// from here on is compensated, not rolled back.
	startCtx, cancel := context.WithTimeout(ctx, s.supervisorTimeout)
	defer cancel()

	port, err := s.supervisor.Start(startCtx, bot.ProcessName(), interfaces.LaunchSpec{
		Language: bot.Language,
		RAMMB:    bot.RAMMB,
		Name:     bot.Name,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"bot_id": bot.ID,
			"owner":  userID,
		}).WithError(err).Error("Process launch failed, refunding")
		if s.metrics != nil {
			s.metrics.RecordSupervisorFailure("start")
		}
		s.compensateLaunchFailure(ctx, bot, plan.Price, err)
		return nil, fmt.Errorf("launch failed for bot %s: %w", bot.ID, entities.ErrLaunchFailed)
	}

	if err := s.finishDeploy(ctx, bot, port); err != nil {
		// The process is up but the flip did not commit; stop the process
		// so nothing runs for a bot that never reached RUNNING.
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to mark bot running, stopping process")
		stopCtx, cancelStop := context.WithTimeout(context.Background(), s.supervisorTimeout)
		defer cancelStop()
		if stopErr := s.supervisor.Stop(stopCtx, bot.ProcessName()); stopErr != nil {
			log.WithField("bot_id", bot.ID).WithError(stopErr).Error("Failed to stop orphaned process")
		}
		s.compensateLaunchFailure(ctx, bot, plan.Price, err)
		return nil, fmt.Errorf("launch failed for bot %s: %w", bot.ID, entities.ErrLaunchFailed)
	}

	bot.Status = entities.BotStatusRunning
	bot.Port = &port
	return bot, nil
}

// finishDeploy flips the bot to RUNNING with its assigned port and records a
// deploy log line.
func (s *BotService) finishDeploy(ctx context.Context, bot *entities.Bot, port int) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	if err := registry.MarkRunning(ctx, bot, port); err != nil {
		return err
	}
	message := fmt.Sprintf("deployed on port %d", port)
	if err := uow.BotRepository().AppendLog(ctx, bot.ID, message); err != nil {
		return fmt.Errorf("failed to append deploy log: %w", err)
	}

	return uow.Commit()
}

// compensateLaunchFailure settles a bot whose debit committed but whose
// process never came up: the bot goes STOPPED and the owner gets the price
// back as a DEPOSIT. Failures here are logged; the owner-facing error stays
// ErrLaunchFailed.
func (s *BotService) compensateLaunchFailure(ctx context.Context, bot *entities.Bot, price int64, cause error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to begin compensation transaction")
		return
	}
	defer uow.Rollback()

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	if err := registry.MarkStopped(ctx, bot); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to stop bot after launch failure")
		return
	}

	ledger := services.NewLedgerService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	description := fmt.Sprintf("refund: launch failed for bot %s", bot.Name)
	if _, err := ledger.Credit(ctx, bot.OwnerID, price, description, nil); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to refund launch failure")
		return
	}

	message := fmt.Sprintf("launch failed: %v", cause)
	if err := uow.BotRepository().AppendLog(ctx, bot.ID, message); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to append launch failure log")
	}

	if err := uow.Commit(); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to commit compensation transaction")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTransaction(string(entities.TransactionTypeDeposit))
	}
}

// ListBotsForUser returns all bots owned by the user.
func (s *BotService) ListBotsForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Bot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.BotRepository().ListByOwner(ctx, userID)
}

// GetBot returns a bot if the actor owns it or is an admin.
func (s *BotService) GetBot(ctx context.Context, actor *entities.User, botID uuid.UUID) (*entities.Bot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.getAuthorizedBot(ctx, uow, actor, botID)
}

// BotLogs returns the most recent log lines for a bot, oldest first.
func (s *BotService) BotLogs(ctx context.Context, actor *entities.User, botID uuid.UUID, limit int) ([]*entities.BotLog, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := s.getAuthorizedBot(ctx, uow, actor, botID); err != nil {
		return nil, err
	}
	return uow.BotRepository().GetLogs(ctx, botID, limit)
}

// StopBot terminates a bot at the owner's (or an admin's) request. The
// STOPPED flip commits before the supervisor is asked to tear the process
// down, mirroring the expiry sweep's claim-then-stop order.
func (s *BotService) StopBot(ctx context.Context, actor *entities.User, botID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bot, err := s.getAuthorizedBot(ctx, uow, actor, botID)
	if err != nil {
		return err
	}

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	if err := registry.MarkStopped(ctx, bot); err != nil {
		return err
	}
	if err := uow.BotRepository().AppendLog(ctx, bot.ID, "stopped by user"); err != nil {
		return fmt.Errorf("failed to append stop log: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.stopProcess(bot)
	return nil
}

// SuspendBot places a running bot on hold. Admin only.
func (s *BotService) SuspendBot(ctx context.Context, actor *entities.User, botID uuid.UUID) error {
	if !actor.IsAdmin() {
		return entities.ErrUnauthorized
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bot, err := s.requireBot(ctx, uow, botID)
	if err != nil {
		return err
	}

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	if err := registry.Suspend(ctx, bot); err != nil {
		return err
	}
	if err := uow.BotRepository().AppendLog(ctx, bot.ID, "suspended by admin"); err != nil {
		return fmt.Errorf("failed to append suspend log: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.stopProcess(bot)
	return nil
}

// ResumeBot relaunches a suspended bot's process and then returns it to
// RUNNING. The launch comes first: a failed relaunch leaves the bot
// SUSPENDED, so the admin retries the resume itself. Admin only.
func (s *BotService) ResumeBot(ctx context.Context, actor *entities.User, botID uuid.UUID) error {
	if !actor.IsAdmin() {
		return entities.ErrUnauthorized
	}

	bot, err := s.loadBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.Status != entities.BotStatusSuspended {
		return entities.ErrInvalidTransition
	}

	startCtx, cancel := context.WithTimeout(ctx, s.supervisorTimeout)
	defer cancel()
	port, err := s.supervisor.Start(startCtx, bot.ProcessName(), interfaces.LaunchSpec{
		Language: bot.Language,
		RAMMB:    bot.RAMMB,
		Name:     bot.Name,
	})
	if err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to relaunch suspended bot")
		if s.metrics != nil {
			s.metrics.RecordSupervisorFailure("start")
		}
		return fmt.Errorf("relaunch failed for bot %s: %w", bot.ID, entities.ErrLaunchFailed)
	}

	if err := s.finishResume(ctx, bot); err != nil {
		// The flip did not commit; stop the relaunched process so a
		// SUSPENDED bot never has a live process behind it.
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to record resume, stopping process")
		s.stopProcess(bot)
		return err
	}

	log.WithFields(log.Fields{
		"bot_id": bot.ID,
		"port":   port,
	}).Info("Bot resumed")
	return nil
}

// finishResume flips the bot SUSPENDED to RUNNING and records the resume.
func (s *BotService) finishResume(ctx context.Context, bot *entities.Bot) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	registry := services.NewBotRegistryService(uow.BotRepository(), uow.EventBus())
	if err := registry.Resume(ctx, bot); err != nil {
		return err
	}
	if err := uow.BotRepository().AppendLog(ctx, bot.ID, "resumed by admin"); err != nil {
		return fmt.Errorf("failed to append resume log: %w", err)
	}
	return uow.Commit()
}

// Deposit starts a wallet top-up through the payment gateway and returns
// the redirect handle.
func (s *BotService) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*interfaces.FundingIntent, error) {
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	user, err := uow.UserRepository().GetByID(ctx, userID)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	return s.gateway.InitializeTransaction(ctx, userID, amount)
}

// ConfirmDeposit verifies a gateway reference and credits the wallet of
// the user the payment was initialized for. A reference that was already
// credited is a no-op returning the existing transaction, so gateway
// callbacks can be retried safely.
func (s *BotService) ConfirmDeposit(ctx context.Context, userID uuid.UUID, reference string) (*entities.Transaction, error) {
	payment, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !payment.Settled {
		return nil, fmt.Errorf("payment %s not settled: %w", reference, entities.ErrGateway)
	}
	if payment.UserID != userID {
		return nil, entities.ErrUnauthorized
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.TransactionRepository().GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	if existing != nil {
		return existing, nil
	}

	ledger := services.NewLedgerService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	description := fmt.Sprintf("wallet top-up %s", reference)
	tx, err := ledger.Credit(ctx, userID, payment.Amount, description, &reference)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTransaction(string(entities.TransactionTypeDeposit))
	}
	return tx, nil
}

// Debit removes funds from a wallet in its own unit of work.
func (s *BotService) Debit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*entities.Transaction, error) {
	return s.moveFunds(ctx, userID, amount, description, false)
}

// Credit adds funds to a wallet in its own unit of work.
func (s *BotService) Credit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*entities.Transaction, error) {
	return s.moveFunds(ctx, userID, amount, description, true)
}

func (s *BotService) moveFunds(ctx context.Context, userID uuid.UUID, amount int64, description string, credit bool) (*entities.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledger := services.NewLedgerService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())

	var tx *entities.Transaction
	var err error
	if credit {
		tx, err = ledger.Credit(ctx, userID, amount, description, nil)
	} else {
		tx, err = ledger.Debit(ctx, userID, amount, description, nil)
	}
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.metrics != nil {
		if credit {
			s.metrics.RecordTransaction(string(entities.TransactionTypeDeposit))
		} else {
			s.metrics.RecordTransaction(string(entities.TransactionTypeDeduction))
		}
	}
	return tx, nil
}

// loadBot reads a bot in its own short unit of work.
func (s *BotService) loadBot(ctx context.Context, botID uuid.UUID) (*entities.Bot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.requireBot(ctx, uow, botID)
}

// requireBot loads a bot or returns ErrBotNotFound.
func (s *BotService) requireBot(ctx context.Context, uow UnitOfWork, botID uuid.UUID) (*entities.Bot, error) {
	bot, err := uow.BotRepository().GetByID(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot %s: %w", botID, err)
	}
	if bot == nil {
		return nil, entities.ErrBotNotFound
	}
	return bot, nil
}

// getAuthorizedBot loads a bot and checks the actor may act on it.
func (s *BotService) getAuthorizedBot(ctx context.Context, uow UnitOfWork, actor *entities.User, botID uuid.UUID) (*entities.Bot, error) {
	bot, err := s.requireBot(ctx, uow, botID)
	if err != nil {
		return nil, err
	}
	if bot.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, entities.ErrUnauthorized
	}
	return bot, nil
}

// stopProcess asks the supervisor to tear a bot's process down. The status
// flip is already committed, so failures are logged only; the sweep-style
// retry path is a manual re-stop, which is idempotent.
func (s *BotService) stopProcess(bot *entities.Bot) {
	stopCtx, cancel := context.WithTimeout(context.Background(), s.supervisorTimeout)
	defer cancel()

	if err := s.supervisor.Stop(stopCtx, bot.ProcessName()); err != nil {
		log.WithField("bot_id", bot.ID).WithError(err).Error("Failed to stop bot process")
		if s.metrics != nil {
			s.metrics.RecordSupervisorFailure("stop")
		}
	}
}
