package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/service"
	"go.uber.org/zap"
)

// ReminderLead за сколько до начала занятия отправляется напоминание
const ReminderLead = time.Hour

const slotGenerationInterval = 24 * time.Hour

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	expiry   *service.ExpiryService
	bookings *service.BookingService
	slots    *service.SlotService
	clock    clock.Clock
	logger   *zap.Logger

	sweepInterval time.Duration
	weeksAhead    int

	// remindedUntil правая граница уже обработанного окна напоминаний
	remindedUntil time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	expiry *service.ExpiryService,
	bookings *service.BookingService,
	slots *service.SlotService,
	clk clock.Clock,
	sweepInterval time.Duration,
	weeksAhead int,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		expiry:        expiry,
		bookings:      bookings,
		slots:         slots,
		clock:         clk,
		logger:        logger,
		sweepInterval: sweepInterval,
		weeksAhead:    weeksAhead,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Int("weeks_ahead", s.weeksAhead),
	)

	s.wg.Add(2)
	go s.runPeriodic(ctx, "maintenance", s.sweepInterval, s.RunMaintenance)
	go s.runPeriodic(ctx, "slot generation", slotGenerationInterval, s.GenerateSlots)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runPeriodic(ctx context.Context, name string, interval time.Duration, task func(context.Context)) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	task(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task(ctx)
		case <-s.stopChan:
			s.logger.Info("Background task stopped", zap.String("task", name))
			return
		case <-ctx.Done():
			s.logger.Info("Background task cancelled", zap.String("task", name))
			return
		}
	}
}

// RunMaintenance один проход обслуживания: истечение ожиданий,
// завершение прошедших занятий и напоминания
func (s *Scheduler) RunMaintenance(ctx context.Context) {
	now := s.clock.Now()

	result, err := s.expiry.Sweep(ctx, now)
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
	} else if result.ExpiredCount > 0 {
		s.logger.Info("Expiry sweep completed", zap.Int("expired_count", result.ExpiredCount))
	}

	if _, err := s.expiry.CompleteFinished(ctx, now); err != nil {
		s.logger.Error("Failed to complete finished slots", zap.Error(err))
	}

	from := s.remindedUntil
	if from.Before(now) {
		from = now
	}
	to := now.Add(ReminderLead)
	if !to.After(from) {
		return
	}

	sent, err := s.bookings.SendReminders(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to send reminders", zap.Error(err))
		return
	}
	s.remindedUntil = to

	if sent > 0 {
		s.logger.Info("Reminders sent", zap.Int("count", sent))
	}
}

// GenerateSlots генерирует слоты для всех активных регулярных шаблонов
func (s *Scheduler) GenerateSlots(ctx context.Context) {
	s.logger.Info("Starting automatic slot generation")

	// Слоты всегда доступны на weeksAhead недель вперёд
	created, err := s.slots.ExpandRecurringPatterns(ctx, s.weeksAhead)
	if err != nil {
		s.logger.Error("Failed to generate slots", zap.Error(err))
		return
	}

	s.logger.Info("Automatic slot generation completed", zap.Int("slots_created", created))
}
