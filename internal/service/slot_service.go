package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotInput параметры нового слота
type SlotInput struct {
	Title                string
	StartTime            time.Time
	EndTime              time.Time
	SlotType             model.SlotType
	MaxParticipants      int
	RequiresConfirmation bool
	Price                int
}

// PatternInput параметры регулярного расписания. Для каждого дня недели
// создаётся отдельный шаблон с общим GroupID.
type PatternInput struct {
	Title                string
	Weekdays             []time.Weekday
	StartHour            int
	StartMinute          int
	DurationMinutes      int
	SlotType             model.SlotType
	MaxParticipants      int
	RequiresConfirmation bool
	Price                int
}

type SlotService struct {
	store    repository.Store
	machine  *BookingStateMachine
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewSlotService(store repository.Store, machine *BookingStateMachine, notifier Notifier, clk clock.Clock, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:    store,
		machine:  machine,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// CreateSlot создаёт разовый слот преподавателя
func (s *SlotService) CreateSlot(ctx context.Context, professorID int64, in SlotInput) (*model.Slot, error) {
	if err := s.requireProfessor(ctx, professorID); err != nil {
		return nil, err
	}

	slot, err := newSlot(professorID, in)
	if err != nil {
		return nil, err
	}
	if !slot.StartTime.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: cannot create slot in the past", ErrInvalidSlot)
	}

	if err := s.store.Repositories().Slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("professor_id", professorID),
		zap.Time("start_time", slot.StartTime),
		zap.String("slot_type", string(slot.SlotType)),
		zap.Int("max_participants", slot.MaxParticipants),
	)

	return slot, nil
}

func newSlot(professorID int64, in SlotInput) (*model.Slot, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: negative price", ErrInvalidSlot)
	}

	maxParticipants := in.MaxParticipants
	switch in.SlotType {
	case model.SlotTypeIndividual:
		maxParticipants = 1
	case model.SlotTypeGroup:
		if maxParticipants < 1 {
			return nil, fmt.Errorf("%w: group slot needs at least one seat", ErrInvalidSlot)
		}
	default:
		return nil, fmt.Errorf("%w: unknown slot type %q", ErrInvalidSlot, in.SlotType)
	}

	return &model.Slot{
		ProfessorID:          professorID,
		Title:                strings.TrimSpace(in.Title),
		StartTime:            in.StartTime,
		EndTime:              in.EndTime,
		SlotType:             in.SlotType,
		MaxParticipants:      maxParticipants,
		Status:               model.SlotStatusAvailable,
		RequiresConfirmation: in.RequiresConfirmation,
		Price:                in.Price,
	}, nil
}

// CancelSlot отменяет слот и все активные бронирования на него.
// Отмена слота и бронирований выполняется в одной транзакции.
func (s *SlotService) CancelSlot(ctx context.Context, slotID, professorID int64, reason string) ([]*model.Booking, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	now := s.clock.Now()
	var (
		slot      *model.Slot
		cancelled []*model.Booking
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		slot, err = repos.Slots.GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return ErrSlotNotFound
		}
		if slot.ProfessorID != professorID {
			return ErrForbidden
		}

		ok, err := repos.Slots.Cancel(ctx, slotID)
		if err != nil {
			return fmt.Errorf("cancel slot: %w", err)
		}
		if !ok {
			return ErrSlotNotAvailable
		}

		active, err := repos.Bookings.GetActiveBySlotID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot bookings: %w", err)
		}

		cancelled = cancelled[:0]
		for _, booking := range active {
			// Просроченное ожидание уже не держит место по смыслу, закрываем его как EXPIRED
			ev := model.EventProfessorCancel
			if booking.ConfirmationLapsed(now) {
				ev = model.EventConfirmationLost
			}
			result, err := s.machine.Apply(ctx, repos, booking, ev, now, reasonPtr)
			if err != nil {
				return fmt.Errorf("cancel booking %d: %w", booking.ID, err)
			}
			if result.Slot != nil {
				slot = result.Slot
			}
			cancelled = append(cancelled, result.Booking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot cancelled",
		zap.Int64("slot_id", slotID),
		zap.Int64("professor_id", professorID),
		zap.Int("bookings_cancelled", len(cancelled)),
	)

	for _, booking := range cancelled {
		if booking.Status != model.BookingStatusCancelledByProfessor {
			continue
		}
		if err := s.notifier.NotifyCancelled(ctx, booking, slot); err != nil {
			s.logger.Warn("Failed to send notification",
				zap.String("kind", "cancelled"),
				zap.Int64("booking_id", booking.ID),
				zap.Error(err),
			)
		}
	}

	return cancelled, nil
}

// ListAvailableSlots возвращает слоты со свободными местами, начинающиеся в [from, to)
func (s *SlotService) ListAvailableSlots(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	now := s.clock.Now()
	if from.Before(now) {
		from = now
	}
	slots, err := s.store.Repositories().Slots.GetAvailable(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	return slots, nil
}

// ListProfessorSlots получает расписание преподавателя за период
func (s *SlotService) ListProfessorSlots(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Slot, error) {
	slots, err := s.store.Repositories().Slots.GetByProfessorID(ctx, professorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get professor slots: %w", err)
	}
	return slots, nil
}

// CreateRecurringPattern создаёт группу шаблонов и сразу генерирует слоты на weeksAhead недель
func (s *SlotService) CreateRecurringPattern(ctx context.Context, professorID int64, in PatternInput, weeksAhead int) (uuid.UUID, error) {
	if err := s.requireProfessor(ctx, professorID); err != nil {
		return uuid.Nil, err
	}
	if len(in.Weekdays) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no weekdays selected", ErrInvalidSlot)
	}
	if in.StartHour < 0 || in.StartHour > 23 || in.StartMinute < 0 || in.StartMinute > 59 {
		return uuid.Nil, fmt.Errorf("%w: invalid start time", ErrInvalidSlot)
	}
	if in.DurationMinutes <= 0 {
		return uuid.Nil, fmt.Errorf("%w: duration must be positive", ErrInvalidSlot)
	}

	// Проверяем параметры слота на пробном экземпляре
	template, err := newSlot(professorID, SlotInput{
		Title:           in.Title,
		StartTime:       time.Time{},
		EndTime:         time.Time{}.Add(time.Duration(in.DurationMinutes) * time.Minute),
		SlotType:        in.SlotType,
		MaxParticipants: in.MaxParticipants,
		Price:           in.Price,
	})
	if err != nil {
		return uuid.Nil, err
	}

	groupID := uuid.New()
	var patterns []*model.RecurringPattern
	err = s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		patterns = patterns[:0]
		for _, weekday := range in.Weekdays {
			pattern := &model.RecurringPattern{
				GroupID:              groupID,
				ProfessorID:          professorID,
				Title:                template.Title,
				Weekday:              int(weekday),
				StartHour:            in.StartHour,
				StartMinute:          in.StartMinute,
				DurationMinutes:      in.DurationMinutes,
				SlotType:             in.SlotType,
				MaxParticipants:      template.MaxParticipants,
				RequiresConfirmation: in.RequiresConfirmation,
				Price:                in.Price,
				IsActive:             true,
			}
			if err := repos.Patterns.Create(ctx, pattern); err != nil {
				return fmt.Errorf("create recurring pattern: %w", err)
			}
			patterns = append(patterns, pattern)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	total := 0
	for _, pattern := range patterns {
		count, err := s.expandPattern(ctx, pattern, weeksAhead)
		if err != nil {
			return groupID, err
		}
		total += count
	}

	s.logger.Info("Recurring pattern group created",
		zap.String("group_id", groupID.String()),
		zap.Int64("professor_id", professorID),
		zap.Int("patterns", len(patterns)),
		zap.Int("slots_created", total),
	)

	return groupID, nil
}

// ExpandRecurringPatterns генерирует слоты для всех активных шаблонов.
// Вызывается планировщиком раз в сутки; уже существующие слоты пропускаются.
func (s *SlotService) ExpandRecurringPatterns(ctx context.Context, weeksAhead int) (int, error) {
	patterns, err := s.store.Repositories().Patterns.GetAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("get active recurring patterns: %w", err)
	}

	total := 0
	for _, pattern := range patterns {
		count, err := s.expandPattern(ctx, pattern, weeksAhead)
		if err != nil {
			s.logger.Error("Failed to generate slots for recurring pattern",
				zap.Error(err),
				zap.Int64("recurring_pattern_id", pattern.ID),
			)
			continue
		}
		total += count
	}

	s.logger.Info("Generated slots for all recurring patterns",
		zap.Int("total_patterns", len(patterns)),
		zap.Int("total_slots_created", total),
	)

	return total, nil
}

func (s *SlotService) expandPattern(ctx context.Context, pattern *model.RecurringPattern, weeksAhead int) (int, error) {
	repos := s.store.Repositories()
	now := s.clock.Now()

	count := 0
	for _, start := range pattern.OccurrencesBetween(now, now.AddDate(0, 0, weeksAhead*7)) {
		exists, err := repos.Slots.Exists(ctx, pattern.ProfessorID, start)
		if err != nil {
			return count, fmt.Errorf("check slot existence: %w", err)
		}
		if exists {
			continue
		}

		patternID := pattern.ID
		slot := &model.Slot{
			ProfessorID:          pattern.ProfessorID,
			Title:                pattern.Title,
			StartTime:            start,
			EndTime:              start.Add(pattern.Duration()),
			SlotType:             pattern.SlotType,
			MaxParticipants:      pattern.MaxParticipants,
			Status:               model.SlotStatusAvailable,
			RequiresConfirmation: pattern.RequiresConfirmation,
			Price:                pattern.Price,
			RecurringPatternID:   &patternID,
		}
		if err := repos.Slots.Create(ctx, slot); err != nil {
			return count, fmt.Errorf("create slot: %w", err)
		}
		count++
	}

	return count, nil
}

// ListPatterns возвращает шаблоны преподавателя
func (s *SlotService) ListPatterns(ctx context.Context, professorID int64) ([]*model.RecurringPattern, error) {
	return s.store.Repositories().Patterns.GetByProfessorID(ctx, professorID)
}

// DeactivatePattern останавливает генерацию новых слотов; созданные слоты остаются
func (s *SlotService) DeactivatePattern(ctx context.Context, professorID, patternID int64) error {
	repos := s.store.Repositories()

	pattern, err := repos.Patterns.GetByID(ctx, patternID)
	if err != nil {
		return fmt.Errorf("get recurring pattern: %w", err)
	}
	if pattern == nil {
		return ErrPatternNotFound
	}
	if pattern.ProfessorID != professorID {
		return ErrForbidden
	}

	if err := repos.Patterns.Deactivate(ctx, patternID); err != nil {
		return fmt.Errorf("deactivate recurring pattern: %w", err)
	}

	s.logger.Info("Recurring pattern deactivated",
		zap.Int64("recurring_pattern_id", patternID),
		zap.Int64("professor_id", professorID),
	)

	return nil
}

func (s *SlotService) requireProfessor(ctx context.Context, userID int64) error {
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get professor: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Role() != model.RoleProfessor {
		return ErrForbidden
	}
	return nil
}
