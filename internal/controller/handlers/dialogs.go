package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// noReason ответ пользователя "без причины"
const noReason = "-"

// handleDialogStep обрабатывает обычный текст в зависимости от состояния пользователя
func (h *Handlers) handleDialogStep(ctx context.Context, b *bot.Bot, msg *models.Message) {
	telegramID := msg.From.ID

	data, ok := h.stateManager.Take(telegramID)
	if !ok {
		h.logger.Debug("No active state, ignoring message",
			zap.Int64("telegram_id", telegramID))
		return
	}

	reason := strings.TrimSpace(msg.Text)
	if reason == noReason {
		reason = ""
	}

	switch data.State {
	case state.StateRejectReason:
		h.rejectBooking(ctx, b, msg.Chat.ID, data.Subject, reason)

	case state.StateCancelReason:
		bookingID, err := ParseID(data.Subject)
		if err != nil {
			h.replyServiceError(ctx, b, msg.Chat.ID, "cancel_booking", err)
			return
		}
		h.cancelBooking(ctx, b, telegramID, msg.Chat.ID, bookingID, reason)

	case state.StateCancelSlotReason:
		slotID, err := ParseID(data.Subject)
		if err != nil {
			h.replyServiceError(ctx, b, msg.Chat.ID, "cancel_slot", err)
			return
		}
		user, ok := h.requireProfessor(ctx, b, telegramID, msg.Chat.ID)
		if !ok {
			return
		}
		h.cancelSlot(ctx, b, msg.Chat.ID, user.ID, slotID, reason)

	default:
		h.logger.Warn("Unknown dialog state",
			zap.Int64("telegram_id", telegramID),
			zap.String("state", string(data.State)))
	}
}
