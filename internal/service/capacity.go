package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

// CapacityTracker единственная точка изменения current_participants.
// Резервирование выполняется одним условным обновлением в хранилище,
// поэтому два конкурентных запроса на последнее место не могут оба выиграть.
type CapacityTracker struct{}

func NewCapacityTracker() *CapacityTracker {
	return &CapacityTracker{}
}

// ReserveSeat занимает одно место в слоте
func (t *CapacityTracker) ReserveSeat(ctx context.Context, slots repository.SlotRepository, slotID int64) (*model.Slot, error) {
	slot, err := slots.TryReserveSeat(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("reserve seat: %w", err)
	}
	if slot != nil {
		return slot, nil
	}

	// Условие не выполнилось, выясняем причину для вызывающего
	current, err := slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if current == nil {
		return nil, ErrSlotNotFound
	}
	if current.Status.IsClosed() {
		return nil, ErrSlotNotAvailable
	}
	return nil, ErrSlotFull
}

// ReleaseSeat освобождает одно место. Вызывающий отвечает за то,
// чтобы на одно бронирование приходился ровно один вызов.
func (t *CapacityTracker) ReleaseSeat(ctx context.Context, slots repository.SlotRepository, slotID int64) (*model.Slot, error) {
	slot, err := slots.ReleaseSeat(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("release seat: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}
