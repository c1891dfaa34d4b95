package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `b.id, b.slot_id, b.student_id, b.status, b.booked_at, b.confirmation_expires_at,
	b.confirmed_at, b.rejected_at, b.cancelled_at, b.completed_at, b.cancel_reason, b.updated_at`

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.StudentID,
		&booking.Status,
		&booking.BookedAt,
		&booking.ConfirmationExpiresAt,
		&booking.ConfirmedAt,
		&booking.RejectedAt,
		&booking.CancelledAt,
		&booking.CompletedAt,
		&booking.CancelReason,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// Create создаёт новое бронирование.
// Частичный уникальный индекс не даёт завести вторую активную запись студента на слот.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (slot_id, student_id, status, booked_at, confirmation_expires_at, confirmed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $4)
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		booking.SlotID,
		booking.StudentID,
		string(booking.Status),
		booking.BookedAt,
		booking.ConfirmationExpiresAt,
		booking.ConfirmedAt,
	).Scan(&booking.ID, &booking.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetByStudentID получает все бронирования студента
func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.student_id = $1
		ORDER BY b.booked_at DESC
	`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by student: %w", err)
	}

	return collectBookings(rows)
}

// GetActiveBySlotID получает бронирования слота, занимающие места
func (r *BookingRepository) GetActiveBySlotID(ctx context.Context, slotID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.slot_id = $1 AND b.status IN ('PENDING_CONFIRMATION', 'CONFIRMED')
		ORDER BY b.booked_at
	`

	rows, err := r.db.Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("get active bookings by slot: %w", err)
	}

	return collectBookings(rows)
}

// IsParticipant проверяет есть ли у студента подтверждённая (или уже завершённая) запись на слот
func (r *BookingRepository) IsParticipant(ctx context.Context, slotID, studentID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE slot_id = $1 AND student_id = $2 AND status IN ('CONFIRMED', 'COMPLETED')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, slotID, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot participant: %w", err)
	}

	return exists, nil
}

// GetExpiredPending получает ожидающие бронирования с истёкшим окном подтверждения
func (r *BookingRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = 'PENDING_CONFIRMATION'
		  AND b.confirmation_expires_at < $1
		ORDER BY b.confirmation_expires_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("get expired pending bookings: %w", err)
	}

	return collectBookings(rows)
}

// GetFinishedConfirmed получает подтверждённые бронирования закончившихся слотов
func (r *BookingRepository) GetFinishedConfirmed(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.status = 'CONFIRMED'
		  AND s.end_time <= $1
		ORDER BY s.end_time
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("get finished confirmed bookings: %w", err)
	}

	return collectBookings(rows)
}

// GetConfirmedStartingBetween получает подтверждённые бронирования слотов, начинающихся в (from, to]
func (r *BookingRepository) GetConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.status = 'CONFIRMED'
		  AND s.status <> 'CANCELLED'
		  AND s.start_time > $1
		  AND s.start_time <= $2
		ORDER BY s.start_time
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get upcoming confirmed bookings: %w", err)
	}

	return collectBookings(rows)
}

// Transition меняет статус бронирования, если он всё ещё равен from
func (r *BookingRepository) Transition(ctx context.Context, id int64, from, to model.BookingStatus, at time.Time, reason *string) (*model.Booking, error) {
	query := `
		UPDATE bookings AS b
		SET status = $3::text,
		    updated_at = $4,
		    confirmed_at = CASE WHEN $3::text = 'CONFIRMED' THEN $4 ELSE b.confirmed_at END,
		    rejected_at = CASE WHEN $3::text = 'REJECTED' THEN $4 ELSE b.rejected_at END,
		    cancelled_at = CASE WHEN $3::text IN ('CANCELLED_BY_STUDENT', 'CANCELLED_BY_PROFESSOR') THEN $4 ELSE b.cancelled_at END,
		    completed_at = CASE WHEN $3::text IN ('COMPLETED', 'NO_SHOW') THEN $4 ELSE b.completed_at END,
		    cancel_reason = COALESCE($5::text, b.cancel_reason)
		WHERE b.id = $1 AND b.status = $2::text
		RETURNING ` + bookingColumns

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id, string(from), string(to), at, reason))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("transition booking: %w", err)
	}

	return booking, nil
}
