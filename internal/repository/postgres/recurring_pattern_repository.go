package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/jackc/pgx/v5"
)

const patternColumns = `id, group_id, professor_id, title, weekday, start_hour, start_minute,
	duration_minutes, slot_type, max_participants, requires_confirmation, price, is_active, created_at`

// RecurringPatternRepository управляет шаблонами регулярного расписания
type RecurringPatternRepository struct {
	db DBTX
}

func NewRecurringPatternRepository(db DBTX) *RecurringPatternRepository {
	return &RecurringPatternRepository{db: db}
}

func scanPattern(row rowScanner) (*model.RecurringPattern, error) {
	pattern := &model.RecurringPattern{}
	err := row.Scan(
		&pattern.ID,
		&pattern.GroupID,
		&pattern.ProfessorID,
		&pattern.Title,
		&pattern.Weekday,
		&pattern.StartHour,
		&pattern.StartMinute,
		&pattern.DurationMinutes,
		&pattern.SlotType,
		&pattern.MaxParticipants,
		&pattern.RequiresConfirmation,
		&pattern.Price,
		&pattern.IsActive,
		&pattern.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pattern, nil
}

func collectPatterns(rows pgx.Rows) ([]*model.RecurringPattern, error) {
	defer rows.Close()

	var patterns []*model.RecurringPattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, rows.Err()
}

// Create создаёт новый шаблон
func (r *RecurringPatternRepository) Create(ctx context.Context, pattern *model.RecurringPattern) error {
	query := `
		INSERT INTO recurring_patterns (group_id, professor_id, title, weekday, start_hour, start_minute,
			duration_minutes, slot_type, max_participants, requires_confirmation, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		pattern.GroupID,
		pattern.ProfessorID,
		pattern.Title,
		pattern.Weekday,
		pattern.StartHour,
		pattern.StartMinute,
		pattern.DurationMinutes,
		pattern.SlotType,
		pattern.MaxParticipants,
		pattern.RequiresConfirmation,
		pattern.Price,
		pattern.IsActive,
	).Scan(&pattern.ID, &pattern.CreatedAt)

	if err != nil {
		return fmt.Errorf("create recurring pattern: %w", err)
	}

	return nil
}

// GetByID получает шаблон по ID
func (r *RecurringPatternRepository) GetByID(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM recurring_patterns WHERE id = $1`

	pattern, err := scanPattern(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recurring pattern by id: %w", err)
	}

	return pattern, nil
}

// GetByProfessorID получает все шаблоны преподавателя
func (r *RecurringPatternRepository) GetByProfessorID(ctx context.Context, professorID int64) ([]*model.RecurringPattern, error) {
	query := `
		SELECT ` + patternColumns + `
		FROM recurring_patterns
		WHERE professor_id = $1
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.db.Query(ctx, query, professorID)
	if err != nil {
		return nil, fmt.Errorf("get recurring patterns by professor: %w", err)
	}

	return collectPatterns(rows)
}

// GetAllActive получает все активные шаблоны
func (r *RecurringPatternRepository) GetAllActive(ctx context.Context) ([]*model.RecurringPattern, error) {
	query := `
		SELECT ` + patternColumns + `
		FROM recurring_patterns
		WHERE is_active = true
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all active recurring patterns: %w", err)
	}

	return collectPatterns(rows)
}

// Deactivate деактивирует шаблон; уже созданные слоты остаются
func (r *RecurringPatternRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE recurring_patterns SET is_active = false WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate recurring pattern: %w", err)
	}

	return nil
}
