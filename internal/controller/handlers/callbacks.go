package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Форматы callback data inline кнопок
const (
	CallbackBookSlot      = "book_slot:"      // book_slot:slot_id
	CallbackCancelBooking = "cancel_booking:" // cancel_booking:booking_id
	CallbackJoinSlot      = "join_slot:"      // join_slot:slot_id
)

// HandleCallbackQuery маршрутизирует нажатия на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	data := callback.Data
	telegramID := callback.From.ID
	chatID := telegramID
	if callback.Message.Message != nil {
		chatID = callback.Message.Message.Chat.ID
	}

	h.logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", telegramID))

	// Убираем "часики" на кнопке
	answerCallback(ctx, b, callback.ID)

	switch {
	case strings.HasPrefix(data, CallbackBookSlot):
		slotID, err := parseIDFromCallback(data)
		if err != nil {
			h.replyServiceError(ctx, b, chatID, "book", err)
			return
		}
		h.bookSlot(ctx, b, telegramID, chatID, slotID)

	case strings.HasPrefix(data, CallbackCancelBooking):
		bookingID, err := parseIDFromCallback(data)
		if err != nil {
			h.replyServiceError(ctx, b, chatID, "cancel_booking", err)
			return
		}
		h.stateManager.Start(telegramID, state.StateCancelReason, strconv.FormatInt(bookingID, 10))
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("💬 Отмена записи #%d. Укажите причину или отправьте \"-\".\n\nЧтобы передумать, используйте /cancel", bookingID), nil)

	case strings.HasPrefix(data, CallbackJoinSlot):
		slotID, err := parseIDFromCallback(data)
		if err != nil {
			h.replyServiceError(ctx, b, chatID, "join", err)
			return
		}
		h.joinSlot(ctx, b, telegramID, chatID, slotID)

	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
	}
}

// answerCallback отвечает на callback query (без alert)
func answerCallback(ctx context.Context, b *bot.Bot, callbackID string) {
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
}

// parseIDFromCallback извлекает ID из callback data
// Например: "book_slot:123" -> 123
func parseIDFromCallback(data string) (int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid callback data format")
	}
	return ParseID(parts[1])
}
