package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// DBTX общий интерфейс пула и транзакции
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store хранилище поверх пула соединений PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore создаёт хранилище
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories возвращает репозитории, работающие напрямую через пул
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.pool)
}

// WithTx выполняет fn в транзакции READ COMMITTED.
// Условные UPDATE внутри держат блокировку строки до коммита.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func newRepositories(db DBTX) repository.Repositories {
	return repository.Repositories{
		Slots:      NewSlotRepository(db),
		Bookings:   NewBookingRepository(db),
		UsedTokens: NewUsedTokenRepository(db),
		Users:      NewUserRepository(db),
		Patterns:   NewRecurringPatternRepository(db),
	}
}

// isUniqueViolation проверяет является ли ошибка нарушением уникального индекса
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// isNotFound проверяет является ли ошибка "строка не найдена"
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
