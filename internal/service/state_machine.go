package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

// BookingStateMachine применяет переходы из таблицы model.TransitionFor
// и освобождает место при переходе в отрицательный терминальный статус.
type BookingStateMachine struct {
	capacity *CapacityTracker
}

func NewBookingStateMachine(capacity *CapacityTracker) *BookingStateMachine {
	return &BookingStateMachine{capacity: capacity}
}

// TransitionResult результат перехода; Slot заполнен, если место было освобождено
type TransitionResult struct {
	Booking *model.Booking
	Slot    *model.Slot
}

// Apply выполняет переход внутри транзакции repos.
// Статус записывается compare-and-set по исходному статусу: проигравший гонку
// получает ErrInvalidStateTransition, и транзакция откатывается целиком.
func (m *BookingStateMachine) Apply(ctx context.Context, repos repository.Repositories, booking *model.Booking, ev model.BookingEvent, at time.Time, reason *string) (*TransitionResult, error) {
	// Просроченное, но ещё не обработанное sweep ожидание считается EXPIRED
	if ev != model.EventConfirmationLost && booking.ConfirmationLapsed(at) {
		return nil, ErrInvalidStateTransition
	}

	tr, ok := model.TransitionFor(booking.Status, ev)
	if !ok {
		return nil, ErrInvalidStateTransition
	}

	updated, err := repos.Bookings.Transition(ctx, booking.ID, tr.From, tr.To, at, reason)
	if err != nil {
		return nil, fmt.Errorf("transition booking: %w", err)
	}
	if updated == nil {
		return nil, ErrInvalidStateTransition
	}

	result := &TransitionResult{Booking: updated}
	if tr.ReleasesSeat {
		slot, err := m.capacity.ReleaseSeat(ctx, repos.Slots, booking.SlotID)
		if err != nil {
			return nil, err
		}
		result.Slot = slot
	}

	return result, nil
}
