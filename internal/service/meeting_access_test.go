package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingAccessGate_Window(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	// 14:00-15:00
	slot := env.slot(t, prof.ID, 2, false, 4*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusConfirmed, booking.Status)

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
	}

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, at(13, 44))
	var tooEarly *TooEarlyError
	require.ErrorAs(t, err, &tooEarly)
	assert.Equal(t, 1, tooEarly.MinutesUntilOpen)

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, at(13, 44).Add(30*time.Second))
	require.ErrorAs(t, err, &tooEarly)
	assert.Equal(t, 1, tooEarly.MinutesUntilOpen)

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, at(12, 0))
	require.ErrorAs(t, err, &tooEarly)
	assert.Equal(t, 105, tooEarly.MinutesUntilOpen)

	grant, err := env.gate.Authorize(ctx, slot.ID, student.ID, at(13, 46))
	require.NoError(t, err)
	assert.Equal(t, slot.ID, grant.SlotID)
	assert.Equal(t, "room-1", grant.RoomRef)
	assert.Equal(t, "https://meet.test/room-1#Student", grant.JoinURL)
	assert.Equal(t, model.RoleStudent, grant.Role)
	assert.Equal(t, at(15, 30), grant.WindowCloses)

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, at(15, 30))
	assert.NoError(t, err)

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, at(15, 31))
	assert.ErrorIs(t, err, ErrTooLate)
	assert.Equal(t, KindAccessWindow, KindOf(err))
}

func TestMeetingAccessGate_Participants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	otherProf := env.professor(t)
	student := env.student(t)
	pending := env.student(t)
	stranger := env.student(t)

	slot := env.slot(t, prof.ID, 3, false, 4*time.Hour)
	_, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	inWindow := slot.StartTime.Add(5 * time.Minute)

	grant, err := env.gate.Authorize(ctx, slot.ID, prof.ID, inWindow)
	require.NoError(t, err)
	assert.Equal(t, model.RoleProfessor, grant.Role)

	tests := []struct {
		name   string
		userID int64
	}{
		{name: "other professor", userID: otherProf.ID},
		{name: "student without booking", userID: stranger.ID},
		{name: "unknown user", userID: 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gate.Authorize(ctx, slot.ID, tt.userID, inWindow)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}

	t.Run("pending booking", func(t *testing.T) {
		withConfirmation := env.slot(t, prof.ID, 3, true, 5*time.Hour)
		_, err := env.bookings.RequestBooking(ctx, withConfirmation.ID, student.ID)
		require.NoError(t, err)
		_, err = env.bookings.RequestBooking(ctx, withConfirmation.ID, pending.ID)
		require.NoError(t, err)

		// комнаты ещё нет: никто не подтверждён
		_, err = env.gate.Authorize(ctx, withConfirmation.ID, pending.ID, withConfirmation.StartTime)
		assert.ErrorIs(t, err, ErrNoMeetingRoom)

		first, err := env.store.Repositories().Bookings.GetActiveBySlotID(ctx, withConfirmation.ID)
		require.NoError(t, err)
		require.Len(t, first, 2)
		_, err = env.bookings.ConfirmBooking(ctx, env.notifier.token(t, first[0].ID))
		require.NoError(t, err)

		_, err = env.gate.Authorize(ctx, withConfirmation.ID, pending.ID, withConfirmation.StartTime)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = env.gate.Authorize(ctx, withConfirmation.ID, student.ID, withConfirmation.StartTime)
		assert.NoError(t, err)
	})
}

func TestMeetingAccessGate_SlotState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)

	_, err := env.gate.Authorize(ctx, 999, student.ID, t0)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	empty := env.slot(t, prof.ID, 2, false, time.Hour)
	_, err = env.gate.Authorize(ctx, empty.ID, prof.ID, empty.StartTime)
	assert.ErrorIs(t, err, ErrNoMeetingRoom)

	slot := env.slot(t, prof.ID, 2, false, 2*time.Hour)
	_, err = env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	_, err = env.slots.CancelSlot(ctx, slot.ID, prof.ID, "conference")
	require.NoError(t, err)

	_, err = env.gate.Authorize(ctx, slot.ID, prof.ID, slot.StartTime)
	assert.ErrorIs(t, err, ErrSlotCancelled)

	// Проверка отмены идёт раньше проверки окна
	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, slot.EndTime.Add(time.Hour))
	assert.ErrorIs(t, err, ErrSlotCancelled)
}

func TestMeetingAccessGate_AfterSlotCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	stranger := env.student(t)
	// 14:00-15:00
	slot := env.slot(t, prof.ID, 2, false, 4*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	// Плановый проход обслуживания попадает между концом занятия и закрытием окна
	result, err := env.expiry.CompleteFinished(ctx, slot.EndTime.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, result.CompletedBookings)
	require.Equal(t, model.BookingStatusCompleted, env.bookingStatus(t, booking.ID))

	grant, err := env.gate.Authorize(ctx, slot.ID, student.ID, slot.EndTime.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, grant.Role)

	_, err = env.gate.Authorize(ctx, slot.ID, stranger.ID, slot.EndTime.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.gate.Authorize(ctx, slot.ID, student.ID, slot.EndTime.Add(31*time.Minute))
	assert.ErrorIs(t, err, ErrTooLate)
}
