package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

type bookingRepository struct {
	view
}

func cloneBooking(booking *model.Booking) *model.Booking {
	cp := *booking
	cp.Slot = nil
	return &cp
}

func (r *bookingRepository) Create(_ context.Context, booking *model.Booking) error {
	var err error
	r.locked(func() {
		for _, existing := range r.store.bookings {
			if existing.SlotID == booking.SlotID && existing.StudentID == booking.StudentID && existing.Status.HoldsSeat() {
				err = repository.ErrDuplicate
				return
			}
		}
		r.store.lastBookingID++
		booking.ID = r.store.lastBookingID
		booking.UpdatedAt = booking.BookedAt
		put(r.view, r.store.bookings, booking.ID, cloneBooking(booking))
	})
	return err
}

func (r *bookingRepository) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	var found *model.Booking
	r.locked(func() {
		if booking, ok := r.store.bookings[id]; ok {
			found = cloneBooking(booking)
		}
	})
	return found, nil
}

func (r *bookingRepository) filter(match func(*model.Booking) bool) []*model.Booking {
	var bookings []*model.Booking
	r.locked(func() {
		for _, booking := range r.store.bookings {
			if match(booking) {
				bookings = append(bookings, cloneBooking(booking))
			}
		}
	})
	return bookings
}

func (r *bookingRepository) GetByStudentID(_ context.Context, studentID int64) ([]*model.Booking, error) {
	bookings := r.filter(func(b *model.Booking) bool {
		return b.StudentID == studentID
	})
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].BookedAt.Equal(bookings[j].BookedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].BookedAt.After(bookings[j].BookedAt)
	})
	return bookings, nil
}

func (r *bookingRepository) GetActiveBySlotID(_ context.Context, slotID int64) ([]*model.Booking, error) {
	bookings := r.filter(func(b *model.Booking) bool {
		return b.SlotID == slotID && b.Status.HoldsSeat()
	})
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *bookingRepository) IsParticipant(_ context.Context, slotID, studentID int64) (bool, error) {
	bookings := r.filter(func(b *model.Booking) bool {
		return b.SlotID == slotID && b.StudentID == studentID && b.Status.AdmitsToMeeting()
	})
	return len(bookings) > 0, nil
}

func (r *bookingRepository) GetExpiredPending(_ context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	bookings := r.filter(func(b *model.Booking) bool {
		return b.ConfirmationLapsed(now)
	})
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].ConfirmationExpiresAt.Before(*bookings[j].ConfirmationExpiresAt)
	})
	return limitBookings(bookings, limit), nil
}

func (r *bookingRepository) GetFinishedConfirmed(_ context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	var bookings []*model.Booking
	r.locked(func() {
		for _, booking := range r.store.bookings {
			if booking.Status != model.BookingStatusConfirmed {
				continue
			}
			if slot, ok := r.store.slots[booking.SlotID]; ok && !slot.EndTime.After(now) {
				bookings = append(bookings, cloneBooking(booking))
			}
		}
	})
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return limitBookings(bookings, limit), nil
}

func (r *bookingRepository) GetConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	var bookings []*model.Booking
	r.locked(func() {
		for _, booking := range r.store.bookings {
			if booking.Status != model.BookingStatusConfirmed {
				continue
			}
			slot, ok := r.store.slots[booking.SlotID]
			if ok && slot.Status != model.SlotStatusCancelled && slot.StartTime.After(from) && !slot.StartTime.After(to) {
				bookings = append(bookings, cloneBooking(booking))
			}
		}
	})
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func limitBookings(bookings []*model.Booking, limit int) []*model.Booking {
	if limit > 0 && len(bookings) > limit {
		return bookings[:limit]
	}
	return bookings
}

func (r *bookingRepository) Transition(_ context.Context, id int64, from, to model.BookingStatus, at time.Time, reason *string) (*model.Booking, error) {
	var updated *model.Booking
	r.locked(func() {
		booking, ok := r.store.bookings[id]
		if !ok || booking.Status != from {
			return
		}
		next := cloneBooking(booking)
		next.Status = to
		next.UpdatedAt = at
		switch to {
		case model.BookingStatusConfirmed:
			next.ConfirmedAt = &at
		case model.BookingStatusRejected:
			next.RejectedAt = &at
		case model.BookingStatusCancelledByStudent, model.BookingStatusCancelledByProfessor:
			next.CancelledAt = &at
		case model.BookingStatusCompleted, model.BookingStatusNoShow:
			next.CompletedAt = &at
		}
		if reason != nil {
			next.CancelReason = reason
		}
		put(r.view, r.store.bookings, id, next)
		updated = cloneBooking(next)
	})
	return updated, nil
}
