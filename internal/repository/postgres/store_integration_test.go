//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/app"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Запуск: TEST_DB_DSN=postgres://... go test -tags integration ./internal/repository/postgres/
// База очищается перед каждым тестом.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })
	require.NoError(t, migrator.Run(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE used_tokens, bookings, slots, recurring_patterns, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return NewStore(pool)
}

func createSlot(t *testing.T, store *Store, seats int) (*model.User, *model.Slot) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	prof := &model.User{DisplayName: "Professor", IsProfessor: true}
	require.NoError(t, repos.Users.Create(ctx, prof))

	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	slotType := model.SlotTypeGroup
	if seats == 1 {
		slotType = model.SlotTypeIndividual
	}
	slot := &model.Slot{
		ProfessorID:     prof.ID,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		SlotType:        slotType,
		MaxParticipants: seats,
		Status:          model.SlotStatusAvailable,
	}
	require.NoError(t, repos.Slots.Create(ctx, slot))
	return prof, slot
}

func createBooking(t *testing.T, store *Store, slotID int64, status model.BookingStatus) *model.Booking {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	student := &model.User{DisplayName: "Student"}
	require.NoError(t, repos.Users.Create(ctx, student))

	booking := &model.Booking{
		SlotID:    slotID,
		StudentID: student.ID,
		Status:    status,
		BookedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repos.Bookings.Create(ctx, booking))
	return booking
}

func TestSlotRepository_TryReserveSeatConcurrent(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	_, slot := createSlot(t, store, 3)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
		errs     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Repositories().Slots.TryReserveSeat(ctx, slot.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if got != nil {
				reserved++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 3, reserved)

	stored, err := store.Repositories().Slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentParticipants)
	assert.Equal(t, model.SlotStatusFullyBooked, stored.Status)

	released, err := store.Repositories().Slots.ReleaseSeat(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, 2, released.CurrentParticipants)
	assert.Equal(t, model.SlotStatusAvailable, released.Status)
}

func TestBookingRepository_TransitionCompareAndSet(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	_, slot := createSlot(t, store, 1)
	booking := createBooking(t, store, slot.ID, model.BookingStatusPendingConfirmation)
	at := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	confirmed, err := store.Repositories().Bookings.Transition(ctx, booking.ID,
		model.BookingStatusPendingConfirmation, model.BookingStatusConfirmed, at, nil)
	require.NoError(t, err)
	require.NotNil(t, confirmed)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.True(t, confirmed.ConfirmedAt.Equal(at))

	// Второй переход из устаревшего статуса не применяется
	reason := "late"
	stale, err := store.Repositories().Bookings.Transition(ctx, booking.ID,
		model.BookingStatusPendingConfirmation, model.BookingStatusRejected, at, &reason)
	require.NoError(t, err)
	assert.Nil(t, stale)

	stored, err := store.Repositories().Bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
	assert.Nil(t, stored.CancelReason)
}

func TestBookingRepository_DuplicateActive(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	_, slot := createSlot(t, store, 3)
	first := createBooking(t, store, slot.ID, model.BookingStatusConfirmed)

	second := &model.Booking{
		SlotID:    slot.ID,
		StudentID: first.StudentID,
		Status:    model.BookingStatusPendingConfirmation,
		BookedAt:  first.BookedAt,
	}
	err := store.Repositories().Bookings.Create(ctx, second)
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
}

func TestUsedTokenRepository_InsertOnce(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	_, slot := createSlot(t, store, 1)
	booking := createBooking(t, store, slot.ID, model.BookingStatusPendingConfirmation)

	token := &model.UsedToken{JTI: "jti-1", BookingID: booking.ID, UsedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Repositories().UsedTokens.Insert(ctx, token))

	err := store.Repositories().UsedTokens.Insert(ctx, token)
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	used, err := store.Repositories().UsedTokens.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestStore_WithTxRollback(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	_, slot := createSlot(t, store, 2)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		reserved, err := repos.Slots.TryReserveSeat(ctx, slot.ID)
		require.NoError(t, err)
		require.NotNil(t, reserved)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := store.Repositories().Slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentParticipants)
}
