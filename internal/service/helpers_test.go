package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/memory"
	"github.com/Freeeeeet/office_hours/internal/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Понедельник, 10:00 UTC
var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type captureNotifier struct {
	mu        sync.Mutex
	tokens    map[int64]string
	confirmed []int64
	rejected  []int64
	cancelled []int64
	reminders []int64
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{tokens: make(map[int64]string)}
}

func (n *captureNotifier) NotifyConfirmationRequested(_ context.Context, booking *model.Booking, _ *model.Slot, confirmationToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[booking.ID] = confirmationToken
	return nil
}

func (n *captureNotifier) NotifyConfirmed(_ context.Context, booking *model.Booking, _ *model.Slot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, booking.ID)
	return nil
}

func (n *captureNotifier) NotifyRejected(_ context.Context, booking *model.Booking, _ *model.Slot, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, booking.ID)
	return nil
}

func (n *captureNotifier) NotifyCancelled(_ context.Context, booking *model.Booking, _ *model.Slot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, booking.ID)
	return nil
}

func (n *captureNotifier) NotifyReminder(_ context.Context, booking *model.Booking, _ *model.Slot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, booking.ID)
	return nil
}

func (n *captureNotifier) token(t *testing.T, bookingID int64) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	tok, ok := n.tokens[bookingID]
	require.True(t, ok, "no confirmation token sent for booking %d", bookingID)
	return tok
}

type fakeRooms struct{}

func (fakeRooms) GenerateRoomName(bookingID int64) string {
	return fmt.Sprintf("room-%d", bookingID)
}

func (fakeRooms) JoinURL(roomRef, displayName string) string {
	return "https://meet.test/" + roomRef + "#" + displayName
}

type testEnv struct {
	store    *memory.Store
	clock    *clock.Mock
	notifier *captureNotifier
	users    *UserService
	bookings *BookingService
	slots    *SlotService
	expiry   *ExpiryService
	gate     *MeetingAccessGate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewMock(t0)
	store := memory.NewStore(memory.WithClock(clk))
	notifier := newCaptureNotifier()
	logger := zap.NewNop()

	capacity := NewCapacityTracker()
	machine := NewBookingStateMachine(capacity)
	tokens := token.NewService([]byte("test-secret"), token.DefaultTTL, clk)

	return &testEnv{
		store:    store,
		clock:    clk,
		notifier: notifier,
		users:    NewUserService(store, logger),
		bookings: NewBookingService(store, capacity, machine, tokens, fakeRooms{}, notifier, clk, logger),
		slots:    NewSlotService(store, machine, notifier, clk, logger),
		expiry:   NewExpiryService(store, machine, logger),
		gate:     NewMeetingAccessGate(store, fakeRooms{}, logger),
	}
}

func (e *testEnv) professor(t *testing.T) *model.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), "Professor", true)
	require.NoError(t, err)
	return user
}

func (e *testEnv) student(t *testing.T) *model.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), "Student", false)
	require.NoError(t, err)
	return user
}

// slot создаёт слот, начинающийся через startIn после t0, длительностью час
func (e *testEnv) slot(t *testing.T, professorID int64, seats int, requiresConfirmation bool, startIn time.Duration) *model.Slot {
	t.Helper()
	slotType := model.SlotTypeGroup
	if seats == 1 {
		slotType = model.SlotTypeIndividual
	}
	start := t0.Add(startIn)
	slot, err := e.slots.CreateSlot(context.Background(), professorID, SlotInput{
		Title:                "Office hours",
		StartTime:            start,
		EndTime:              start.Add(time.Hour),
		SlotType:             slotType,
		MaxParticipants:      seats,
		RequiresConfirmation: requiresConfirmation,
	})
	require.NoError(t, err)
	return slot
}

func (e *testEnv) reload(t *testing.T, slotID int64) *model.Slot {
	t.Helper()
	slot, err := e.store.Repositories().Slots.GetByID(context.Background(), slotID)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot
}

func (e *testEnv) bookingStatus(t *testing.T, bookingID int64) model.BookingStatus {
	t.Helper()
	booking, err := e.store.Repositories().Bookings.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking.Status
}
