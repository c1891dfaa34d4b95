package handlers

import (
	"context"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser проверяет что пользователь зарегистрирован
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, telegramID, chatID int64) (*model.User, bool) {
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if user == nil {
		h.sendError(ctx, b, chatID, "❌ Пользователь не найден. Используйте /start для регистрации.")
		return nil, false
	}

	return user, true
}

// requireProfessor проверяет что пользователь является преподавателем
func (h *Handlers) requireProfessor(ctx context.Context, b *bot.Bot, telegramID, chatID int64) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		return nil, false
	}

	if user.Role() != model.RoleProfessor {
		h.sendError(ctx, b, chatID, "❌ Эта команда доступна только преподавателям.\n\nСтать преподавателем: /becomeprofessor")
		return nil, false
	}

	return user, true
}

// replyServiceError логирует неожиданные ошибки и отвечает пользователю
func (h *Handlers) replyServiceError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	if service.KindOf(err) == service.KindUnavailable {
		h.logger.Error("Command failed",
			zap.String("op", op),
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
	h.sendError(ctx, b, chatID, ErrorText(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil && len(markup.InlineKeyboard) > 0 {
		params.ReplyMarkup = markup
	}

	_, err := b.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
