package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, display_name, is_professor)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		user.TelegramID,
		user.DisplayName,
		user.IsProfessor,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, telegram_id, display_name, is_professor, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.TelegramID,
		&user.DisplayName,
		&user.IsProfessor,
		&user.CreatedAt,
	)

	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `
		SELECT id, telegram_id, display_name, is_professor, created_at
		FROM users
		WHERE telegram_id = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.DisplayName,
		&user.IsProfessor,
		&user.CreatedAt,
	)

	if err != nil {
		if isNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return &user, nil
}

// SetProfessor меняет роль пользователя
func (r *UserRepository) SetProfessor(ctx context.Context, id int64, isProfessor bool) error {
	query := `UPDATE users SET is_professor = $2 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, isProfessor)
	if err != nil {
		return fmt.Errorf("set professor: %w", err)
	}

	return nil
}
