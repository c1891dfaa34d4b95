package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleTextMessage единая точка входа для текстовых сообщений:
// команды разбираются здесь, обычный текст продолжает активный диалог
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	cmd, isCommand := ParseCommand(msg.Text)
	if !isCommand {
		h.handleDialogStep(ctx, b, msg)
		return
	}

	// Новая команда прерывает незавершённый диалог
	if cmd.Name != "cancel" || len(cmd.Args) > 0 {
		h.stateManager.ClearState(msg.From.ID)
	}

	h.logger.Debug("Command received",
		zap.Int64("telegram_id", msg.From.ID),
		zap.String("command", cmd.Name),
	)

	switch cmd.Name {
	case "start":
		h.HandleStart(ctx, b, msg)
	case "help":
		h.HandleHelp(ctx, b, msg)
	case "becomeprofessor":
		h.HandleBecomeProfessor(ctx, b, msg)

	case "slots":
		h.HandleSlots(ctx, b, msg)
	case "book":
		h.HandleBook(ctx, b, msg, cmd)
	case "mybookings":
		h.HandleMyBookings(ctx, b, msg)
	case "cancel":
		h.HandleCancel(ctx, b, msg, cmd)
	case "join":
		h.HandleJoin(ctx, b, msg, cmd)

	case "confirm":
		h.HandleConfirm(ctx, b, msg, cmd)
	case "reject":
		h.HandleReject(ctx, b, msg, cmd)
	case "myschedule":
		h.HandleMySchedule(ctx, b, msg)
	case "newslot":
		h.HandleNewSlot(ctx, b, msg, cmd)
	case "cancelslot":
		h.HandleCancelSlot(ctx, b, msg, cmd)
	case "noshow":
		h.HandleNoShow(ctx, b, msg, cmd)

	default:
		h.sendError(ctx, b, msg.Chat.ID, "❓ Неизвестная команда. Список команд: /help")
	}
}

// HandleStart регистрирует пользователя
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, msg *models.Message) {
	from := msg.From

	displayName := from.FirstName
	if from.LastName != "" {
		displayName += " " + from.LastName
	}
	if displayName == "" {
		displayName = from.Username
	}

	registeredUser, err := h.userService.RegisterTelegramUser(ctx, from.ID, displayName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, msg.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот для записи на консультации к преподавателям.\n\n"+
			"/slots - Свободные слоты\n"+
			"/mybookings - Мои записи\n"+
			"/help - Справка",
		registeredUser.DisplayName,
	)

	h.sendMessage(ctx, b, msg.Chat.ID, welcomeText, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, msg *models.Message) {
	helpText := "📚 Справка по командам:\n\n" +
		"Для студентов:\n" +
		"/slots - Свободные слоты на две недели\n" +
		"/book <слот> - Записаться\n" +
		"/mybookings - Мои записи\n" +
		"/cancel <запись> [причина] - Отменить запись\n" +
		"/join <слот> - Ссылка на встречу\n\n" +
		"Для преподавателей:\n" +
		"/becomeprofessor - Стать преподавателем\n" +
		"/myschedule - Моё расписание\n" +
		"/newslot <ДД.ММ.ГГГГ> <ЧЧ:ММ> <минуты> [мест] [название] - Новый слот\n" +
		"/cancelslot <слот> - Отменить слот\n" +
		"/confirm <токен> - Подтвердить запись\n" +
		"/reject <токен> [причина] - Отклонить запись\n" +
		"/noshow <запись> - Отметить неявку\n\n" +
		"/cancel без аргументов прерывает текущий диалог"

	h.sendMessage(ctx, b, msg.Chat.ID, helpText, nil)
}

// HandleBecomeProfessor делает пользователя преподавателем
func (h *Handlers) HandleBecomeProfessor(ctx context.Context, b *bot.Bot, msg *models.Message) {
	user, ok := h.requireUser(ctx, b, msg.From.ID, msg.Chat.ID)
	if !ok {
		return
	}

	if user.IsProfessor {
		h.sendMessage(ctx, b, msg.Chat.ID, "ℹ️ Вы уже преподаватель.", nil)
		return
	}

	if err := h.userService.MakeProfessor(ctx, user.ID); err != nil {
		h.replyServiceError(ctx, b, msg.Chat.ID, "become_professor", err)
		return
	}

	h.sendMessage(ctx, b, msg.Chat.ID,
		"🎓 Теперь вы преподаватель!\n\nСоздайте первый слот: /newslot\nПодробнее: /help", nil)
}

// HandleCancel отменяет запись, а без аргументов прерывает текущий диалог
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, msg *models.Message, cmd Command) {
	if len(cmd.Args) > 0 {
		h.handleCancelBooking(ctx, b, msg, cmd)
		return
	}

	if h.stateManager.GetState(msg.From.ID) == state.StateNone {
		h.sendMessage(ctx, b, msg.Chat.ID, "❌ Нет активных операций для отмены.\n\nОтменить запись: /cancel <номер записи>", nil)
		return
	}

	h.stateManager.ClearState(msg.From.ID)
	h.sendMessage(ctx, b, msg.Chat.ID, "✅ Операция отменена.", nil)
}
