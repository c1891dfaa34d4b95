package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
)

type slotRepository struct {
	view
}

func cloneSlot(slot *model.Slot) *model.Slot {
	cp := *slot
	return &cp
}

func sortedSlots(slots []*model.Slot) []*model.Slot {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return slots
}

func (r *slotRepository) Create(_ context.Context, slot *model.Slot) error {
	r.locked(func() {
		r.store.lastSlotID++
		slot.ID = r.store.lastSlotID
		slot.CurrentParticipants = 0
		slot.CreatedAt = r.store.clock.Now()
		put(r.view, r.store.slots, slot.ID, cloneSlot(slot))
	})
	return nil
}

func (r *slotRepository) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	var found *model.Slot
	r.locked(func() {
		if slot, ok := r.store.slots[id]; ok {
			found = cloneSlot(slot)
		}
	})
	return found, nil
}

func (r *slotRepository) GetAvailable(_ context.Context, from, to time.Time) ([]*model.Slot, error) {
	var slots []*model.Slot
	r.locked(func() {
		for _, slot := range r.store.slots {
			if slot.Status == model.SlotStatusAvailable && inRange(slot.StartTime, from, to) {
				slots = append(slots, cloneSlot(slot))
			}
		}
	})
	return sortedSlots(slots), nil
}

func (r *slotRepository) GetByProfessorID(_ context.Context, professorID int64, from, to time.Time) ([]*model.Slot, error) {
	var slots []*model.Slot
	r.locked(func() {
		for _, slot := range r.store.slots {
			if slot.ProfessorID == professorID && inRange(slot.StartTime, from, to) {
				slots = append(slots, cloneSlot(slot))
			}
		}
	})
	return sortedSlots(slots), nil
}

func (r *slotRepository) Exists(_ context.Context, professorID int64, startTime time.Time) (bool, error) {
	var exists bool
	r.locked(func() {
		for _, slot := range r.store.slots {
			if slot.ProfessorID == professorID && slot.StartTime.Equal(startTime) && slot.Status != model.SlotStatusCancelled {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *slotRepository) TryReserveSeat(_ context.Context, id int64) (*model.Slot, error) {
	var reserved *model.Slot
	r.locked(func() {
		slot, ok := r.store.slots[id]
		if !ok || slot.Status != model.SlotStatusAvailable || slot.CurrentParticipants >= slot.MaxParticipants {
			return
		}
		next := cloneSlot(slot)
		next.CurrentParticipants++
		next.Status = next.StatusForCount(next.CurrentParticipants)
		put(r.view, r.store.slots, id, next)
		reserved = cloneSlot(next)
	})
	return reserved, nil
}

func (r *slotRepository) ReleaseSeat(_ context.Context, id int64) (*model.Slot, error) {
	var released *model.Slot
	r.locked(func() {
		slot, ok := r.store.slots[id]
		if !ok {
			return
		}
		next := cloneSlot(slot)
		if next.CurrentParticipants > 0 {
			next.CurrentParticipants--
		}
		if next.Status == model.SlotStatusFullyBooked {
			next.Status = model.SlotStatusAvailable
		}
		put(r.view, r.store.slots, id, next)
		released = cloneSlot(next)
	})
	return released, nil
}

func (r *slotRepository) Cancel(_ context.Context, id int64) (bool, error) {
	var cancelled bool
	r.locked(func() {
		slot, ok := r.store.slots[id]
		if !ok || slot.Status.IsClosed() {
			return
		}
		next := cloneSlot(slot)
		next.Status = model.SlotStatusCancelled
		put(r.view, r.store.slots, id, next)
		cancelled = true
	})
	return cancelled, nil
}

func (r *slotRepository) AssignMeetingRoom(_ context.Context, id int64, roomRef string) (bool, error) {
	var assigned bool
	r.locked(func() {
		slot, ok := r.store.slots[id]
		if !ok || slot.MeetingRoomRef != nil {
			return
		}
		next := cloneSlot(slot)
		next.MeetingRoomRef = &roomRef
		put(r.view, r.store.slots, id, next)
		assigned = true
	})
	return assigned, nil
}

func (r *slotRepository) AdvanceLifecycle(_ context.Context, now time.Time) (int64, int64, error) {
	var started, finished int64
	r.locked(func() {
		for id, slot := range r.store.slots {
			switch {
			case slot.Status == model.SlotStatusCompleted || slot.Status == model.SlotStatusCancelled:
				continue
			case !slot.EndTime.After(now):
				next := cloneSlot(slot)
				next.Status = model.SlotStatusCompleted
				put(r.view, r.store.slots, id, next)
				finished++
			case slot.Status != model.SlotStatusInProgress && !slot.StartTime.After(now):
				next := cloneSlot(slot)
				next.Status = model.SlotStatusInProgress
				put(r.view, r.store.slots, id, next)
				started++
			}
		}
	})
	return started, finished, nil
}
