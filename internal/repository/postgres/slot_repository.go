package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, professor_id, title, start_time, end_time, slot_type, max_participants,
	current_participants, status, requires_confirmation, price, meeting_room_ref,
	recurring_pattern_id, created_at`

type SlotRepository struct {
	db DBTX
}

func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.ProfessorID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.SlotType,
		&slot.MaxParticipants,
		&slot.CurrentParticipants,
		&slot.Status,
		&slot.RequiresConfirmation,
		&slot.Price,
		&slot.MeetingRoomRef,
		&slot.RecurringPatternID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Create создаёт новый слот; счётчик участников всегда стартует с нуля
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (professor_id, title, start_time, end_time, slot_type, max_participants,
			current_participants, status, requires_confirmation, price, recurring_pattern_id)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
		RETURNING id, current_participants, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.ProfessorID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.SlotType,
		slot.MaxParticipants,
		slot.Status,
		slot.RequiresConfirmation,
		slot.Price,
		slot.RecurringPatternID,
	).Scan(&slot.ID, &slot.CurrentParticipants, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetAvailable получает слоты со свободными местами в заданном диапазоне времени
func (r *SlotRepository) GetAvailable(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE status = 'AVAILABLE'
		  AND start_time >= $1
		  AND start_time < $2
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}

	return collectSlots(rows)
}

// GetByProfessorID получает все слоты преподавателя
func (r *SlotRepository) GetByProfessorID(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE professor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, professorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots by professor: %w", err)
	}

	return collectSlots(rows)
}

// Exists проверяет существование слота у преподавателя в указанное время
func (r *SlotRepository) Exists(ctx context.Context, professorID int64, startTime time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM slots
			WHERE professor_id = $1 AND start_time = $2 AND status <> 'CANCELLED'
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, professorID, startTime).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot exists: %w", err)
	}

	return exists, nil
}

// TryReserveSeat занимает место одним условным UPDATE.
// Проверка и запись неделимы: строка блокируется до конца транзакции.
func (r *SlotRepository) TryReserveSeat(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET current_participants = current_participants + 1,
		    status = CASE
		        WHEN current_participants + 1 >= max_participants THEN 'FULLY_BOOKED'
		        ELSE status
		    END
		WHERE id = $1
		  AND status = 'AVAILABLE'
		  AND current_participants < max_participants
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reserve seat: %w", err)
	}

	return slot, nil
}

// ReleaseSeat освобождает место; закрытые статусы не трогаем
func (r *SlotRepository) ReleaseSeat(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET current_participants = GREATEST(current_participants - 1, 0),
		    status = CASE
		        WHEN status = 'FULLY_BOOKED' THEN 'AVAILABLE'
		        ELSE status
		    END
		WHERE id = $1
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("release seat: %w", err)
	}

	return slot, nil
}

// Cancel отменяет слот, если он ещё открыт
func (r *SlotRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE slots
		SET status = 'CANCELLED'
		WHERE id = $1 AND status IN ('AVAILABLE', 'FULLY_BOOKED')
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("cancel slot: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AssignMeetingRoom назначает комнату один раз, дальше ссылка неизменна
func (r *SlotRepository) AssignMeetingRoom(ctx context.Context, id int64, roomRef string) (bool, error) {
	query := `
		UPDATE slots
		SET meeting_room_ref = $1
		WHERE id = $2 AND meeting_room_ref IS NULL
	`

	result, err := r.db.Exec(ctx, query, roomRef, id)
	if err != nil {
		return false, fmt.Errorf("assign meeting room: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AdvanceLifecycle продвигает статусы слотов по времени
func (r *SlotRepository) AdvanceLifecycle(ctx context.Context, now time.Time) (int64, int64, error) {
	finishedQuery := `
		UPDATE slots
		SET status = 'COMPLETED'
		WHERE status IN ('AVAILABLE', 'FULLY_BOOKED', 'IN_PROGRESS')
		  AND end_time <= $1
	`

	finished, err := r.db.Exec(ctx, finishedQuery, now)
	if err != nil {
		return 0, 0, fmt.Errorf("complete finished slots: %w", err)
	}

	startedQuery := `
		UPDATE slots
		SET status = 'IN_PROGRESS'
		WHERE status IN ('AVAILABLE', 'FULLY_BOOKED')
		  AND start_time <= $1
		  AND end_time > $1
	`

	started, err := r.db.Exec(ctx, startedQuery, now)
	if err != nil {
		return 0, 0, fmt.Errorf("start slots: %w", err)
	}

	return started.RowsAffected(), finished.RowsAffected(), nil
}
