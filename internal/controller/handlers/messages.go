package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/controller/formatting"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
)

// ErrorText переводит ошибку сервиса в сообщение пользователю
func ErrorText(err error) string {
	var tooEarly *service.TooEarlyError
	switch {
	case errors.As(err, &tooEarly):
		return fmt.Sprintf("⏰ Вход откроется через %s.", formatting.FormatMinutes(tooEarly.MinutesUntilOpen))
	case errors.Is(err, service.ErrTooLate):
		return "⌛️ Встреча уже закончилась."
	case errors.Is(err, service.ErrNoMeetingRoom):
		return "❌ Для этого слота ещё нет подтверждённых записей, комната не создана."
	case errors.Is(err, service.ErrSlotCancelled):
		return "❌ Слот отменён."
	case errors.Is(err, service.ErrSlotFull):
		return "😔 Свободных мест нет."
	case errors.Is(err, service.ErrSlotNotAvailable):
		return "❌ Запись на этот слот закрыта."
	case errors.Is(err, service.ErrDuplicateBooking):
		return "ℹ️ Вы уже записаны на этот слот."
	case errors.Is(err, service.ErrTokenExpired):
		return "⌛️ Срок подтверждения истёк."
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		return "ℹ️ Этот токен уже использован."
	case errors.Is(err, service.ErrInvalidSignature):
		return "❌ Неверный токен."
	case errors.Is(err, service.ErrInvalidStateTransition):
		return "❌ Действие недоступно для записи в текущем статусе."
	case errors.Is(err, service.ErrSlotNotFound):
		return "❌ Слот не найден."
	case errors.Is(err, service.ErrBookingNotFound):
		return "❌ Запись не найдена."
	case errors.Is(err, service.ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start для регистрации."
	case errors.Is(err, service.ErrForbidden):
		return "🚫 Недостаточно прав."
	case errors.Is(err, service.ErrInvalidSlot), errors.Is(err, service.ErrInvalidInput):
		return "❌ Неверные параметры: " + detail(err)
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

// detail возвращает часть сообщения после sentinel-префикса
func detail(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

// FormatSlot форматирует слот для списка
func FormatSlot(slot *model.Slot) string {
	title := slot.Title
	if title == "" {
		title = "Консультация"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s\n", slot.ID, title)
	fmt.Fprintf(&sb, "🕐 %s\n", formatting.FormatTimeRange(slot.StartTime, slot.EndTime))
	if slot.SlotType == model.SlotTypeGroup {
		left := slot.RemainingSeats()
		fmt.Fprintf(&sb, "👥 Осталось %d %s из %d\n", left, formatting.PluralizeSeats(left), slot.MaxParticipants)
	}
	fmt.Fprintf(&sb, "💰 %s", formatting.FormatPrice(slot.Price))
	return sb.String()
}

// FormatBooking форматирует бронирование для отображения
func FormatBooking(booking *model.Booking) string {
	display := formatting.GetBookingStatusDisplay(booking.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Запись #%d\n", display.Emoji, booking.ID)
	if booking.Slot != nil {
		fmt.Fprintf(&sb, "🕐 %s\n", formatting.FormatTimeRange(booking.Slot.StartTime, booking.Slot.EndTime))
	}
	fmt.Fprintf(&sb, "📊 Статус: %s", display.Text)
	if booking.Status == model.BookingStatusPendingConfirmation && booking.ConfirmationExpiresAt != nil {
		fmt.Fprintf(&sb, "\n⏳ Ждём ответа преподавателя до %s", formatting.FormatDateTime(*booking.ConfirmationExpiresAt))
	}
	if booking.CancelReason != nil {
		fmt.Fprintf(&sb, "\n💬 %s", *booking.CancelReason)
	}
	return sb.String()
}
