package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

type UsedTokenRepository struct {
	db DBTX
}

func NewUsedTokenRepository(db DBTX) *UsedTokenRepository {
	return &UsedTokenRepository{db: db}
}

// Insert добавляет JTI в журнал; первичный ключ гарантирует единственного победителя
func (r *UsedTokenRepository) Insert(ctx context.Context, token *model.UsedToken) error {
	query := `
		INSERT INTO used_tokens (jti, booking_id, used_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, token.JTI, token.BookingID, token.UsedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert used token: %w", err)
	}

	return nil
}

// Exists проверяет погашен ли токен
func (r *UsedTokenRepository) Exists(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM used_tokens WHERE jti = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("check used token: %w", err)
	}

	return exists, nil
}
