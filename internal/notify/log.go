package notify

import (
	"context"

	"github.com/Freeeeeet/office_hours/internal/model"
	"go.uber.org/zap"
)

// Log пишет уведомления в лог. Используется без TELEGRAM_TOKEN.
// Токен подтверждения попадает только на уровень debug.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) NotifyConfirmationRequested(_ context.Context, booking *model.Booking, slot *model.Slot, confirmationToken string) error {
	l.logger.Info("Confirmation requested",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("professor_id", slot.ProfessorID),
		zap.Timep("expires_at", booking.ConfirmationExpiresAt),
	)
	l.logger.Debug("Confirmation token",
		zap.Int64("booking_id", booking.ID),
		zap.String("token", confirmationToken),
	)
	return nil
}

func (l *Log) NotifyConfirmed(_ context.Context, booking *model.Booking, slot *model.Slot) error {
	l.logger.Info("Booking confirmed",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", booking.StudentID),
		zap.Int64("slot_id", slot.ID),
	)
	return nil
}

func (l *Log) NotifyRejected(_ context.Context, booking *model.Booking, _ *model.Slot, reason string) error {
	l.logger.Info("Booking rejected",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", booking.StudentID),
		zap.String("reason", reason),
	)
	return nil
}

func (l *Log) NotifyCancelled(_ context.Context, booking *model.Booking, _ *model.Slot) error {
	l.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("status", string(booking.Status)),
	)
	return nil
}

func (l *Log) NotifyReminder(_ context.Context, booking *model.Booking, slot *model.Slot) error {
	l.logger.Info("Reminder",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", booking.StudentID),
		zap.Time("start_time", slot.StartTime),
	)
	return nil
}
