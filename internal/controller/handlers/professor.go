package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/controller/formatting"
	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const scheduleHorizonDays = 14

// HandleConfirm подтверждает запись по токену из уведомления
func (h *Handlers) HandleConfirm(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	if len(cmd.Args) != 1 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /confirm <токен>")
		return
	}

	booking, err := h.bookingService.ConfirmBooking(ctx, cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "confirm", err)
		return
	}

	h.sendMessage(ctx, b, msg.Chat.ID, "✅ Запись подтверждена.\n\n"+FormatBooking(booking), nil)
}

// HandleReject отклоняет запись. Без причины бот спросит её отдельным сообщением.
func (h *Handlers) HandleReject(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	if len(cmd.Args) == 0 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /reject <токен> [причина]")
		return
	}

	if len(cmd.Args) == 1 {
		h.stateManager.Start(msg.From.ID, state.StateRejectReason, cmd.Args[0])
		h.sendMessage(ctx, b, msg.Chat.ID, "💬 Укажите причину отклонения или отправьте \"-\".\n\nДля отмены используйте /cancel", nil)
		return
	}

	h.rejectBooking(ctx, b, msg.Chat.ID, cmd.Args[0], cmd.Tail(1))
}

func (h *Handlers) rejectBooking(ctx context.Context, b *bot.Bot, chatID int64, token, reason string) {
	booking, err := h.bookingService.RejectBooking(ctx, token, reason)
	if err != nil {
		h.replyServiceError(ctx, b, chatID, "reject", err)
		return
	}

	h.sendMessage(ctx, b, chatID, "🚫 Запись отклонена, место освобождено.\n\n"+FormatBooking(booking), nil)
}

// HandleMySchedule показывает слоты преподавателя на две недели
func (h *Handlers) HandleMySchedule(ctx context.Context, b *bot.Bot, msg *models.Message) {
	user, ok := h.requireProfessor(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}

	now := h.clock.Now()
	slots, err := h.slotService.ListProfessorSlots(ctx, user.ID, now, now.AddDate(0, 0, scheduleHorizonDays))
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "my_schedule", err)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, msg.Chat.ID, "📭 На ближайшие две недели слотов нет.\n\nСоздать: /newslot", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓 Ваше расписание:\n\n")
	for _, slot := range slots {
		status := formatting.GetSlotStatusDisplay(slot.Status)
		fmt.Fprintf(&sb, "%s\n%s · занято %d из %d\n\n", FormatSlot(slot), status, slot.CurrentParticipants, slot.MaxParticipants)
	}

	h.sendMessage(ctx, b, msg.Chat.ID, sb.String(), nil)
}

// HandleNewSlot создаёт разовый слот
func (h *Handlers) HandleNewSlot(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	user, ok := h.requireProfessor(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}

	in, err := ParseSlotArgs(cmd, h.clock.Now().Location())
	if err != nil {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /newslot <ДД.ММ.ГГГГ> <ЧЧ:ММ> <минуты> [мест] [название]\n\nНапример: /newslot 20.10.2026 14:00 60 1 Консультация по курсовой")
		return
	}

	slot, err := h.slotService.CreateSlot(ctx, user.ID, in)
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "new_slot", err)
		return
	}

	h.sendMessage(ctx, b, msg.Chat.ID, "✅ Слот создан.\n\n"+FormatSlot(slot), nil)
}

// HandleCancelSlot отменяет слот вместе со всеми записями
func (h *Handlers) HandleCancelSlot(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	user, ok := h.requireProfessor(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}
	if len(cmd.Args) == 0 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /cancelslot <номер слота> [причина]")
		return
	}
	slotID, err := ParseID(cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "cancel_slot", err)
		return
	}

	if len(cmd.Args) == 1 {
		h.stateManager.Start(msg.From.ID, state.StateCancelSlotReason, cmd.Args[0])
		h.sendMessage(ctx, b, msg.Chat.ID, "💬 Укажите причину отмены для студентов или отправьте \"-\".\n\nДля отмены используйте /cancel", nil)
		return
	}

	h.cancelSlot(ctx, b, msg.Chat.ID, user.ID, slotID, cmd.Tail(1))
}

func (h *Handlers) cancelSlot(ctx context.Context, b *bot.Bot, chatID, professorID, slotID int64, reason string) {
	cancelled, err := h.slotService.CancelSlot(ctx, slotID, professorID, reason)
	if err != nil {
		h.replyServiceError(ctx, b, chatID, "cancel_slot", err)
		return
	}

	h.logger.Info("Slot cancelled via bot",
		zap.Int64("slot_id", slotID),
		zap.Int("bookings", len(cancelled)),
	)

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Слот #%d отменён. Отменено %d %s.",
		slotID, len(cancelled), formatting.PluralizeBookings(len(cancelled))), nil)
}

// HandleNoShow отмечает неявку студента
func (h *Handlers) HandleNoShow(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	user, ok := h.requireProfessor(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}
	if len(cmd.Args) != 1 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /noshow <номер записи>")
		return
	}
	bookingID, err := ParseID(cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "no_show", err)
		return
	}

	booking, err := h.bookingService.MarkNoShow(ctx, bookingID, user.ID)
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "no_show", err)
		return
	}

	h.sendMessage(ctx, b, msg.Chat.ID, "👻 Неявка отмечена.\n\n"+FormatBooking(booking), nil)
}
