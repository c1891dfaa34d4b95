package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"go.uber.org/zap"
)

const defaultSweepBatch = 100

// SweepResult итог одного прохода sweep
type SweepResult struct {
	ExpiredCount int `json:"expired_count"`
}

// LifecycleResult итог продвижения слотов и бронирований по времени
type LifecycleResult struct {
	CompletedBookings int   `json:"completed_bookings"`
	SlotsStarted      int64 `json:"slots_started"`
	SlotsFinished     int64 `json:"slots_finished"`
}

// ExpiryService переводит просроченные ожидания в EXPIRED и завершает прошедшие занятия.
// Состояния между запусками не хранит; безопасен при конкурентном запуске.
type ExpiryService struct {
	store     repository.Store
	machine   *BookingStateMachine
	logger    *zap.Logger
	batchSize int
}

func NewExpiryService(store repository.Store, machine *BookingStateMachine, logger *zap.Logger) *ExpiryService {
	return &ExpiryService{
		store:     store,
		machine:   machine,
		logger:    logger,
		batchSize: defaultSweepBatch,
	}
}

// Sweep истекает все PENDING_CONFIRMATION с confirmation_expires_at < now.
// Каждое бронирование обрабатывается в своей транзакции; проигранная гонка
// (бронирование уже подтвердили или истёк параллельный sweep) пропускается.
func (s *ExpiryService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	for {
		batch, err := s.store.Repositories().Bookings.GetExpiredPending(ctx, now, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("get expired pending bookings: %w", err)
		}

		for _, candidate := range batch {
			expired, err := s.expireOne(ctx, candidate.ID, now)
			if err != nil {
				// Остальное доберёт следующий запуск по расписанию
				return result, fmt.Errorf("expire booking %d: %w", candidate.ID, err)
			}
			if expired {
				result.ExpiredCount++
			}
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	if result.ExpiredCount > 0 {
		s.logger.Info("Expired pending bookings",
			zap.Int("expired_count", result.ExpiredCount),
			zap.Time("now", now),
		)
	}

	return result, nil
}

func (s *ExpiryService) expireOne(ctx context.Context, bookingID int64, now time.Time) (bool, error) {
	expired := false
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil || !booking.ConfirmationLapsed(now) {
			return nil
		}

		_, err = s.machine.Apply(ctx, repos, booking, model.EventConfirmationLost, now, nil)
		if errors.Is(err, ErrInvalidStateTransition) {
			return nil
		}
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// CompleteFinished завершает подтверждённые бронирования прошедших слотов
// и продвигает статусы слотов (IN_PROGRESS, COMPLETED)
func (s *ExpiryService) CompleteFinished(ctx context.Context, now time.Time) (LifecycleResult, error) {
	var result LifecycleResult

	for {
		batch, err := s.store.Repositories().Bookings.GetFinishedConfirmed(ctx, now, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("get finished bookings: %w", err)
		}

		for _, candidate := range batch {
			err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
				_, err := s.machine.Apply(ctx, repos, candidate, model.EventSlotFinished, now, nil)
				return err
			})
			if errors.Is(err, ErrInvalidStateTransition) {
				continue
			}
			if err != nil {
				return result, fmt.Errorf("complete booking %d: %w", candidate.ID, err)
			}
			result.CompletedBookings++
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	started, finished, err := s.store.Repositories().Slots.AdvanceLifecycle(ctx, now)
	if err != nil {
		return result, fmt.Errorf("advance slot lifecycle: %w", err)
	}
	result.SlotsStarted = started
	result.SlotsFinished = finished

	if result.CompletedBookings > 0 || started > 0 || finished > 0 {
		s.logger.Info("Advanced slot lifecycle",
			zap.Int("completed_bookings", result.CompletedBookings),
			zap.Int64("slots_started", started),
			zap.Int64("slots_finished", finished),
		)
	}

	return result, nil
}
