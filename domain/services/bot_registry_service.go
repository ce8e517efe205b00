package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
)

// BotRegistryService owns bot records and enforces valid state transitions.
// It never touches the wallet; billing is coordinated at the application
// layer.
type BotRegistryService struct {
	botRepo        interfaces.BotRepository
	eventPublisher interfaces.EventPublisher
}

// NewBotRegistryService creates a new bot registry service
func NewBotRegistryService(botRepo interfaces.BotRepository, eventPublisher interfaces.EventPublisher) *BotRegistryService {
	return &BotRegistryService{
		botRepo:        botRepo,
		eventPublisher: eventPublisher,
	}
}

// CreateBotParams describes a bot creation request
type CreateBotParams struct {
	Name     string
	Language string
	PlanID   string
}

// Validate checks the creation parameters against the known plans
func (p CreateBotParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("bot name is required")
	}
	if strings.TrimSpace(p.Language) == "" {
		return fmt.Errorf("bot language is required")
	}
	if _, err := entities.PlanByID(p.PlanID); err != nil {
		return err
	}
	return nil
}

// Create inserts a new bot in DEPLOYING status and returns it
func (s *BotRegistryService) Create(ctx context.Context, ownerID uuid.UUID, params CreateBotParams, now time.Time) (*entities.Bot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	plan, err := entities.PlanByID(params.PlanID)
	if err != nil {
		return nil, err
	}

	bot := &entities.Bot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      params.Name,
		Language:  params.Language,
		RAMMB:     plan.RAMMB,
		Status:    entities.BotStatusDeploying,
		Plan:      plan.ID,
		ExpiresAt: now.Add(plan.Duration),
	}
	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return bot, nil
}

// MarkRunning flips a deploying bot to RUNNING with its assigned port
func (s *BotRegistryService) MarkRunning(ctx context.Context, bot *entities.Bot, port int) error {
	if !bot.Status.CanTransitionTo(entities.BotStatusRunning) {
		return entities.ErrInvalidTransition
	}
	if err := s.botRepo.MarkRunning(ctx, bot.ID, port); err != nil {
		return err
	}
	s.publishStatusChange(bot, entities.BotStatusRunning)
	return nil
}

// MarkStopped flips a bot to the terminal STOPPED status
func (s *BotRegistryService) MarkStopped(ctx context.Context, bot *entities.Bot) error {
	if !bot.Status.CanTransitionTo(entities.BotStatusStopped) {
		return entities.ErrInvalidTransition
	}
	err := s.botRepo.UpdateStatus(ctx, bot.ID, []entities.BotStatus{bot.Status}, entities.BotStatusStopped)
	if err != nil {
		return err
	}
	s.publishStatusChange(bot, entities.BotStatusStopped)
	return nil
}

// Suspend places a running bot on administrative hold
func (s *BotRegistryService) Suspend(ctx context.Context, bot *entities.Bot) error {
	if !bot.Status.CanTransitionTo(entities.BotStatusSuspended) {
		return entities.ErrInvalidTransition
	}
	err := s.botRepo.UpdateStatus(ctx, bot.ID, []entities.BotStatus{entities.BotStatusRunning}, entities.BotStatusSuspended)
	if err != nil {
		return err
	}
	s.publishStatusChange(bot, entities.BotStatusSuspended)
	return nil
}

// Resume returns a suspended bot to RUNNING
func (s *BotRegistryService) Resume(ctx context.Context, bot *entities.Bot) error {
	if bot.Status != entities.BotStatusSuspended {
		return entities.ErrInvalidTransition
	}
	err := s.botRepo.UpdateStatus(ctx, bot.ID, []entities.BotStatus{entities.BotStatusSuspended}, entities.BotStatusRunning)
	if err != nil {
		return err
	}
	s.publishStatusChange(bot, entities.BotStatusRunning)
	return nil
}

func (s *BotRegistryService) publishStatusChange(bot *entities.Bot, to entities.BotStatus) {
	// Best-effort: transactional publishers buffer until commit
	_ = s.eventPublisher.Publish(events.BotStatusChangedEvent{
		BotID:     bot.ID,
		OldStatus: bot.Status,
		NewStatus: to,
	})
}
