package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/controller/formatting"
	"github.com/Freeeeeet/office_hours/internal/controller/keyboard"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	slotsListHorizonDays = 14
	slotsListLimit       = 20
)

// HandleSlots показывает свободные слоты с кнопками записи
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if _, ok := h.requireUser(ctx, b, msg.From.ID, msg.Chat.ID); !ok {
		return
	}

	now := h.clock.Now()
	slots, err := h.slotService.ListAvailableSlots(ctx, now, now.AddDate(0, 0, slotsListHorizonDays))
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "list_slots", err)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, msg.Chat.ID, "📭 Свободных слотов на ближайшие две недели нет.", nil)
		return
	}
	if len(slots) > slotsListLimit {
		slots = slots[:slotsListLimit]
	}

	var sb strings.Builder
	sb.WriteString("📅 Свободные слоты:\n\n")
	kb := keyboard.NewBuilder()
	for _, slot := range slots {
		sb.WriteString(FormatSlot(slot))
		sb.WriteString("\n\n")
		kb.Row(keyboard.Button(
			fmt.Sprintf("✍️ Записаться #%d (%s)", slot.ID, slot.StartTime.Format("02.01 15:04")),
			fmt.Sprintf("%s%d", CallbackBookSlot, slot.ID),
		))
	}

	h.sendMessage(ctx, b, msg.Chat.ID, sb.String(), kb.Build())
}

// HandleBook обрабатывает /book <слот>
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	if len(cmd.Args) != 1 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /book <номер слота>")
		return
	}
	slotID, err := ParseID(cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "book", err)
		return
	}

	h.bookSlot(ctx, b, msg.From.ID, msg.Chat.ID, slotID)
}

func (h *Handlers) bookSlot(ctx context.Context, b *bot.Bot, telegramID, chatID, slotID int64) {
	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		return
	}

	booking, err := h.bookingService.RequestBooking(ctx, slotID, user.ID)
	if err != nil {
		h.replyServiceError(ctx, b, chatID, "book", err)
		return
	}

	text := "✅ Вы записаны!\n\n" + FormatBooking(booking)
	if booking.Status == model.BookingStatusPendingConfirmation {
		text = "📨 Заявка отправлена преподавателю.\n\n" + FormatBooking(booking)
	}

	kb := keyboard.NewBuilder().Row(
		keyboard.Button("❌ Отменить", fmt.Sprintf("%s%d", CallbackCancelBooking, booking.ID)),
	)
	h.sendMessage(ctx, b, chatID, text, kb.Build())
}

// HandleMyBookings показывает записи студента
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, msg *models.Message) {
	user, ok := h.requireUser(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}

	bookings, err := h.bookingService.ListStudentBookings(ctx, user.ID)
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "my_bookings", err)
		return
	}

	var active []*model.Booking
	for _, booking := range bookings {
		if booking.Status.HoldsSeat() {
			active = append(active, booking)
		}
	}

	if len(active) == 0 {
		h.sendMessage(ctx, b, msg.Chat.ID, "📭 У вас нет активных записей.\n\nСвободные слоты: /slots", nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 У вас %d %s:\n\n", len(active), formatting.PluralizeBookings(len(active)))
	kb := keyboard.NewBuilder()
	for _, booking := range active {
		sb.WriteString(FormatBooking(booking))
		sb.WriteString("\n\n")

		row := []models.InlineKeyboardButton{
			keyboard.Button(fmt.Sprintf("❌ Отменить #%d", booking.ID), fmt.Sprintf("%s%d", CallbackCancelBooking, booking.ID)),
		}
		if booking.Status == model.BookingStatusConfirmed {
			row = append(row, keyboard.Button(fmt.Sprintf("🎥 Войти #%d", booking.ID), fmt.Sprintf("%s%d", CallbackJoinSlot, booking.SlotID)))
		}
		kb.Row(row...)
	}

	h.sendMessage(ctx, b, msg.Chat.ID, sb.String(), kb.Build())
}

func (h *Handlers) handleCancelBooking(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	bookingID, err := ParseID(cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "cancel_booking", err)
		return
	}

	h.cancelBooking(ctx, b, msg.From.ID, msg.Chat.ID, bookingID, cmd.Tail(1))
}

func (h *Handlers) cancelBooking(ctx context.Context, b *bot.Bot, telegramID, chatID, bookingID int64, reason string) {
	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		return
	}

	booking, err := h.bookingService.CancelBooking(ctx, bookingID, user.ID, reason)
	if err != nil {
		h.replyServiceError(ctx, b, chatID, "cancel_booking", err)
		return
	}

	h.logger.Info("Booking cancelled via bot",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", user.ID),
	)

	h.sendMessage(ctx, b, chatID, "✅ Запись отменена.\n\n"+FormatBooking(booking), nil)
}

// HandleJoin выдаёт ссылку на встречу, если окно входа открыто
func (h *Handlers) HandleJoin(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	if len(cmd.Args) != 1 {
		h.sendError(ctx, b, msg.Chat.ID, "Использование: /join <номер слота>")
		return
	}
	slotID, err := ParseID(cmd.Args[0])
	if err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "join", err)
		return
	}

	h.joinSlot(ctx, b, msg.From.ID, msg.Chat.ID, slotID)
}

func (h *Handlers) joinSlot(ctx context.Context, b *bot.Bot, telegramID, chatID, slotID int64) {
	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		return
	}

	grant, err := h.accessGate.Authorize(ctx, slotID, user.ID, h.clock.Now())
	if err != nil {
		h.replyServiceError(ctx, b, chatID, "join", err)
		return
	}

	text := fmt.Sprintf("🎥 Встреча открыта до %s", formatting.FormatDateTime(grant.WindowCloses))
	kb := keyboard.NewBuilder().Row(keyboard.URLButton("Войти во встречу", grant.JoinURL))
	h.sendMessage(ctx, b, chatID, text, kb.Build())
}
