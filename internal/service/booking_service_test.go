package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 3, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingConfirmation, booking.Status)
	require.NotNil(t, booking.ConfirmationExpiresAt)
	assert.Equal(t, t0.Add(48*time.Hour), *booking.ConfirmationExpiresAt)
	assert.Equal(t, 1, env.reload(t, slot.ID).CurrentParticipants)
	assert.Nil(t, env.reload(t, slot.ID).MeetingRoomRef)

	env.clock.Advance(time.Hour)
	confirmed, err := env.bookings.ConfirmBooking(ctx, env.notifier.token(t, booking.ID))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, t0.Add(time.Hour), *confirmed.ConfirmedAt)
	require.NotNil(t, confirmed.Slot)
	require.NotNil(t, confirmed.Slot.MeetingRoomRef)
	assert.Equal(t, []int64{booking.ID}, env.notifier.confirmed)

	current := env.reload(t, slot.ID)
	assert.Equal(t, 1, current.CurrentParticipants)
	assert.Equal(t, model.SlotStatusAvailable, current.Status)
}

func TestBookingService_TokenSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	tok := env.notifier.token(t, booking.ID)

	_, err = env.bookings.ConfirmBooking(ctx, tok)
	require.NoError(t, err)

	_, err = env.bookings.ConfirmBooking(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)

	_, err = env.bookings.RejectBooking(ctx, tok, "changed my mind")
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
	assert.Equal(t, model.BookingStatusConfirmed, env.bookingStatus(t, booking.ID))
}

func TestBookingService_ConcurrentRedeemSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	tok := env.notifier.token(t, booking.ID)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = env.bookings.ConfirmBooking(ctx, tok)
			} else {
				_, errs[i] = env.bookings.RejectBooking(ctx, tok, "")
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestBookingService_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bookings.ConfirmBooking(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, KindToken, KindOf(err))
}

func TestBookingService_AutoConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, false, 24*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Nil(t, booking.ConfirmationExpiresAt)
	assert.Empty(t, env.notifier.tokens)
	assert.Equal(t, []int64{booking.ID}, env.notifier.confirmed)

	current := env.reload(t, slot.ID)
	assert.Equal(t, model.SlotStatusFullyBooked, current.Status)
	assert.NotNil(t, current.MeetingRoomRef)
}

func TestBookingService_NoOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	slot := env.slot(t, prof.ID, 5, true, 72*time.Hour)

	const students = 20
	ids := make([]int64, students)
	for i := range ids {
		ids[i] = env.student(t).ID
	}

	errs := make([]error, students)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bookings.RequestBooking(ctx, slot.ID, ids[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotFull)
	}
	assert.Equal(t, 5, succeeded)

	current := env.reload(t, slot.ID)
	assert.Equal(t, 5, current.CurrentParticipants)
	assert.Equal(t, model.SlotStatusFullyBooked, current.Status)

	active, err := env.store.Repositories().Bookings.GetActiveBySlotID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Len(t, active, 5)
}

func TestBookingService_RaceForLastSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)
	first, second := env.student(t), env.student(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, studentID := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, studentID int64) {
			defer wg.Done()
			_, errs[i] = env.bookings.RequestBooking(ctx, slot.ID, studentID)
		}(i, studentID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, ErrSlotFull)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_DuplicateBookingRollsBackSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 3, true, 72*time.Hour)

	_, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	_, err = env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	assert.ErrorIs(t, err, ErrDuplicateBooking)
	assert.Equal(t, KindState, KindOf(err))
	assert.Equal(t, 1, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_RebookAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	_, err = env.bookings.CancelBooking(ctx, booking.ID, student.ID, "")
	require.NoError(t, err)

	again, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	assert.NotEqual(t, booking.ID, again.ID)
	assert.Equal(t, 1, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_RequestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 2, true, 2*time.Hour)

	_, err := env.bookings.RequestBooking(ctx, slot.ID, prof.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.bookings.RequestBooking(ctx, 999, student.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = env.bookings.RequestBooking(ctx, slot.ID, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	cancelled := env.slot(t, prof.ID, 2, true, 3*time.Hour)
	_, err = env.slots.CancelSlot(ctx, cancelled.ID, prof.ID, "")
	require.NoError(t, err)
	_, err = env.bookings.RequestBooking(ctx, cancelled.ID, student.ID)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)

	env.clock.Set(slot.StartTime)
	_, err = env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, 0, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_ExpiryScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)
	tok := env.notifier.token(t, booking.ID)

	env.clock.Set(t0.Add(49 * time.Hour))

	// До sweep чтение уже показывает EXPIRED
	view, err := env.bookings.GetBooking(ctx, booking.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusExpired, view.Status)

	_, err = env.bookings.ConfirmBooking(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	result, err := env.expiry.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExpiredCount)
	assert.Equal(t, model.BookingStatusExpired, env.bookingStatus(t, booking.ID))

	current := env.reload(t, slot.ID)
	assert.Equal(t, 0, current.CurrentParticipants)
	assert.Equal(t, model.SlotStatusAvailable, current.Status)

	again, err := env.expiry.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, again.ExpiredCount)
	assert.Equal(t, 0, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_ExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	// Ровно в дедлайн подтверждение ещё действует
	env.clock.Set(*booking.ConfirmationExpiresAt)
	result, err := env.expiry.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExpiredCount)

	confirmed, err := env.bookings.ConfirmBooking(ctx, env.notifier.token(t, booking.ID))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
}

func TestBookingService_SeatReleasedOnNegativeTerminal(t *testing.T) {
	tests := []struct {
		name   string
		act    func(t *testing.T, env *testEnv, booking *model.Booking, prof, student *model.User) error
		status model.BookingStatus
	}{
		{
			name: "rejected",
			act: func(t *testing.T, env *testEnv, booking *model.Booking, _, _ *model.User) error {
				_, err := env.bookings.RejectBooking(context.Background(), env.notifier.token(t, booking.ID), "busy")
				return err
			},
			status: model.BookingStatusRejected,
		},
		{
			name: "cancelled by student",
			act: func(_ *testing.T, env *testEnv, booking *model.Booking, _, student *model.User) error {
				_, err := env.bookings.CancelBooking(context.Background(), booking.ID, student.ID, "")
				return err
			},
			status: model.BookingStatusCancelledByStudent,
		},
		{
			name: "cancelled by professor",
			act: func(_ *testing.T, env *testEnv, booking *model.Booking, prof, _ *model.User) error {
				_, err := env.bookings.CancelBooking(context.Background(), booking.ID, prof.ID, "sick")
				return err
			},
			status: model.BookingStatusCancelledByProfessor,
		},
		{
			name: "expired",
			act: func(_ *testing.T, env *testEnv, _ *model.Booking, _, _ *model.User) error {
				env.clock.Advance(49 * time.Hour)
				_, err := env.expiry.Sweep(context.Background(), env.clock.Now())
				return err
			},
			status: model.BookingStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			prof := env.professor(t)
			student := env.student(t)
			slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

			booking, err := env.bookings.RequestBooking(context.Background(), slot.ID, student.ID)
			require.NoError(t, err)
			require.Equal(t, model.SlotStatusFullyBooked, env.reload(t, slot.ID).Status)

			require.NoError(t, tt.act(t, env, booking, prof, student))

			assert.Equal(t, tt.status, env.bookingStatus(t, booking.ID))
			current := env.reload(t, slot.ID)
			assert.Equal(t, 0, current.CurrentParticipants)
			assert.Equal(t, model.SlotStatusAvailable, current.Status)
		})
	}
}

func TestBookingService_CancelPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	otherProf := env.professor(t)
	student := env.student(t)
	otherStudent := env.student(t)
	slot := env.slot(t, prof.ID, 2, false, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	_, err = env.bookings.CancelBooking(ctx, booking.ID, otherStudent.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.bookings.CancelBooking(ctx, booking.ID, otherProf.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.bookings.CancelBooking(ctx, 999, student.ID, "")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	cancelled, err := env.bookings.CancelBooking(ctx, booking.ID, student.ID, "exam moved")
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "exam moved", *cancelled.CancelReason)
	assert.Equal(t, []int64{booking.ID}, env.notifier.cancelled)

	_, err = env.bookings.CancelBooking(ctx, booking.ID, student.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, 0, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_MarkNoShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	slot := env.slot(t, prof.ID, 1, false, 4*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	_, err = env.bookings.MarkNoShow(ctx, booking.ID, prof.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	env.clock.Set(slot.StartTime.Add(10 * time.Minute))
	_, err = env.bookings.MarkNoShow(ctx, booking.ID, student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	marked, err := env.bookings.MarkNoShow(ctx, booking.ID, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusNoShow, marked.Status)
	assert.Equal(t, 1, env.reload(t, slot.ID).CurrentParticipants)
}

func TestBookingService_GetBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	other := env.student(t)
	slot := env.slot(t, prof.ID, 1, true, 72*time.Hour)

	booking, err := env.bookings.RequestBooking(ctx, slot.ID, student.ID)
	require.NoError(t, err)

	got, err := env.bookings.GetBooking(ctx, booking.ID, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingConfirmation, got.Status)
	require.NotNil(t, got.Slot)
	assert.Equal(t, slot.ID, got.Slot.ID)

	_, err = env.bookings.GetBooking(ctx, booking.ID, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := env.bookings.ListStudentBookings(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, booking.ID, list[0].ID)
}

func TestBookingService_SendReminders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.professor(t)
	student := env.student(t)
	soon := env.slot(t, prof.ID, 1, false, time.Hour)
	later := env.slot(t, prof.ID, 1, false, 5*time.Hour)

	first, err := env.bookings.RequestBooking(ctx, soon.ID, student.ID)
	require.NoError(t, err)
	_, err = env.bookings.RequestBooking(ctx, later.ID, student.ID)
	require.NoError(t, err)

	sent, err := env.bookings.SendReminders(ctx, t0, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{first.ID}, env.notifier.reminders)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrSlotFull, KindCapacity},
		{ErrSlotNotAvailable, KindCapacity},
		{ErrTokenExpired, KindToken},
		{ErrTokenAlreadyUsed, KindToken},
		{ErrInvalidSignature, KindToken},
		{ErrInvalidStateTransition, KindState},
		{ErrDuplicateBooking, KindState},
		{ErrBookingNotFound, KindNotFound},
		{ErrPatternNotFound, KindNotFound},
		{ErrForbidden, KindForbidden},
		{ErrInvalidSlot, KindValidation},
		{&TooEarlyError{MinutesUntilOpen: 3}, KindAccessWindow},
		{ErrTooLate, KindAccessWindow},
		{errors.New("connection reset"), KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.Equal(t, tt.want, KindOf(errors.Join(errors.New("wrapped"), tt.err)))
		})
	}
}
