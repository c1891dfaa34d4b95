package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		users:  store.Repositories().Users,
		logger: logger,
	}
}

// RegisterTelegramUser возвращает пользователя бота, создавая его при первом обращении
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, displayName string) (*model.User, error) {
	existingUser, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existingUser != nil {
		return existingUser, nil
	}

	user := &model.User{
		TelegramID:  &telegramID,
		DisplayName: displayName,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
	)

	return user, nil
}

// CreateUser создаёт пользователя без привязки к Telegram
func (s *UserService) CreateUser(ctx context.Context, displayName string, isProfessor bool) (*model.User, error) {
	user := &model.User{
		DisplayName: displayName,
		IsProfessor: isProfessor,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role().String()),
	)

	return user, nil
}

func (s *UserService) create(ctx context.Context, user *model.User) error {
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.DisplayName == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// MakeProfessor делает пользователя преподавателем
func (s *UserService) MakeProfessor(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.users.SetProfessor(ctx, userID, true); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User became professor",
		zap.Int64("user_id", user.ID),
	)

	return nil
}
