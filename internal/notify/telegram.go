// Package notify доставляет уведомления о бронированиях.
package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/controller/formatting"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть API бота, нужная для уведомлений. Реализуется *bot.Bot.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram отправляет уведомления в личные сообщения.
// Пользователи без привязанного Telegram пропускаются.
type Telegram struct {
	sender MessageSender
	users  repository.UserRepository
	logger *zap.Logger
}

func NewTelegram(sender MessageSender, users repository.UserRepository, logger *zap.Logger) *Telegram {
	return &Telegram{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

// NotifyConfirmationRequested отправляет преподавателю токен подтверждения
func (t *Telegram) NotifyConfirmationRequested(ctx context.Context, booking *model.Booking, slot *model.Slot, confirmationToken string) error {
	student, err := t.users.GetByID(ctx, booking.StudentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}

	text := fmt.Sprintf(
		"⏳ Новый запрос на запись #%d\n\n"+
			"👤 Студент: %s\n"+
			"🕐 %s\n"+
			"⌛️ Ответить до: %s\n\n"+
			"Подтвердить:\n/confirm %s\n\n"+
			"Отклонить:\n/reject %s",
		booking.ID,
		displayName(student),
		formatting.FormatTimeRange(slot.StartTime, slot.EndTime),
		formatExpiry(booking),
		confirmationToken,
		confirmationToken,
	)

	return t.send(ctx, slot.ProfessorID, text)
}

// NotifyConfirmed сообщает студенту о подтверждении
func (t *Telegram) NotifyConfirmed(ctx context.Context, booking *model.Booking, slot *model.Slot) error {
	text := fmt.Sprintf(
		"✅ Запись #%d подтверждена\n\n"+
			"🕐 %s\n\n"+
			"Вход во встречу откроется за 15 минут до начала: /join %d",
		booking.ID,
		formatting.FormatTimeRange(slot.StartTime, slot.EndTime),
		slot.ID,
	)

	return t.send(ctx, booking.StudentID, text)
}

// NotifyRejected сообщает студенту об отклонении
func (t *Telegram) NotifyRejected(ctx context.Context, booking *model.Booking, slot *model.Slot, reason string) error {
	text := fmt.Sprintf(
		"🚫 Запись #%d отклонена преподавателем\n\n🕐 %s",
		booking.ID,
		formatting.FormatTimeRange(slot.StartTime, slot.EndTime),
	)
	if reason != "" {
		text += "\n💬 " + reason
	}

	return t.send(ctx, booking.StudentID, text)
}

// NotifyCancelled сообщает второй стороне об отмене
func (t *Telegram) NotifyCancelled(ctx context.Context, booking *model.Booking, slot *model.Slot) error {
	recipient := slot.ProfessorID
	who := "студентом"
	if booking.Status == model.BookingStatusCancelledByProfessor {
		recipient = booking.StudentID
		who = "преподавателем"
	}

	text := fmt.Sprintf(
		"❌ Запись #%d отменена %s\n\n🕐 %s",
		booking.ID,
		who,
		formatting.FormatTimeRange(slot.StartTime, slot.EndTime),
	)
	if booking.CancelReason != nil {
		text += "\n💬 " + *booking.CancelReason
	}

	return t.send(ctx, recipient, text)
}

// NotifyReminder напоминает студенту о скором занятии
func (t *Telegram) NotifyReminder(ctx context.Context, booking *model.Booking, slot *model.Slot) error {
	text := fmt.Sprintf(
		"🔔 Напоминание: занятие %s\n\nСсылка на встречу: /join %d",
		formatting.FormatTimeRange(slot.StartTime, slot.EndTime),
		slot.ID,
	)

	return t.send(ctx, booking.StudentID, text)
}

func (t *Telegram) send(ctx context.Context, userID int64, text string) error {
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if user == nil || user.TelegramID == nil {
		t.logger.Debug("Recipient has no telegram account, skipping",
			zap.Int64("user_id", userID))
		return nil
	}

	_, err = t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

func displayName(user *model.User) string {
	if user == nil || user.DisplayName == "" {
		return "без имени"
	}
	return user.DisplayName
}

func formatExpiry(booking *model.Booking) string {
	if booking.ConfirmationExpiresAt == nil {
		return "-"
	}
	return formatting.FormatDateTime(*booking.ConfirmationExpiresAt)
}
