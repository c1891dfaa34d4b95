package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// ErrDuplicate нарушение уникальности (активная запись уже есть, токен уже погашен)
var ErrDuplicate = errors.New("duplicate record")

// Getter'ы всех реализаций возвращают nil, nil, если запись не найдена.

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	GetAvailable(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	GetByProfessorID(ctx context.Context, professorID int64, from, to time.Time) ([]*model.Slot, error)
	Exists(ctx context.Context, professorID int64, startTime time.Time) (bool, error)

	// TryReserveSeat атомарно занимает место, если слот AVAILABLE и не заполнен.
	// Возвращает nil, nil, если условие не выполнилось.
	TryReserveSeat(ctx context.Context, id int64) (*model.Slot, error)
	// ReleaseSeat атомарно освобождает место (не ниже нуля)
	ReleaseSeat(ctx context.Context, id int64) (*model.Slot, error)

	// Cancel переводит открытый слот в CANCELLED, false если слот уже закрыт
	Cancel(ctx context.Context, id int64) (bool, error)
	// AssignMeetingRoom записывает комнату, только если она ещё не назначена
	AssignMeetingRoom(ctx context.Context, id int64, roomRef string) (bool, error)
	// AdvanceLifecycle переводит начавшиеся слоты в IN_PROGRESS, закончившиеся в COMPLETED
	AdvanceLifecycle(ctx context.Context, now time.Time) (started, finished int64, err error)
}

type BookingRepository interface {
	// Create возвращает ErrDuplicate, если у студента уже есть активная запись на слот
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByStudentID(ctx context.Context, studentID int64) ([]*model.Booking, error)
	GetActiveBySlotID(ctx context.Context, slotID int64) ([]*model.Booking, error)
	// IsParticipant: у студента есть запись на слот, дающая вход во встречу (CONFIRMED или COMPLETED)
	IsParticipant(ctx context.Context, slotID, studentID int64) (bool, error)
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	GetFinishedConfirmed(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	// GetConfirmedStartingBetween подтверждённые бронирования слотов с началом в (from, to]
	GetConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)

	// Transition меняет статус только если текущий равен from (compare-and-set).
	// Возвращает nil, nil, если статус уже другой или записи нет.
	Transition(ctx context.Context, id int64, from, to model.BookingStatus, at time.Time, reason *string) (*model.Booking, error)
}

type UsedTokenRepository interface {
	// Insert возвращает ErrDuplicate при повторной вставке того же JTI
	Insert(ctx context.Context, token *model.UsedToken) error
	Exists(ctx context.Context, jti string) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	SetProfessor(ctx context.Context, id int64, isProfessor bool) error
}

type RecurringPatternRepository interface {
	Create(ctx context.Context, pattern *model.RecurringPattern) error
	GetByID(ctx context.Context, id int64) (*model.RecurringPattern, error)
	GetByProfessorID(ctx context.Context, professorID int64) ([]*model.RecurringPattern, error)
	GetAllActive(ctx context.Context) ([]*model.RecurringPattern, error)
	Deactivate(ctx context.Context, id int64) error
}

// Repositories набор репозиториев, привязанных к одному соединению или транзакции
type Repositories struct {
	Slots      SlotRepository
	Bookings   BookingRepository
	UsedTokens UsedTokenRepository
	Users      UserRepository
	Patterns   RecurringPatternRepository
}

type TxManager interface {
	// WithTx выполняет fn в транзакции; любая ошибка fn откатывает все изменения
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store хранилище: репозитории вне транзакции плюс TxManager
type Store interface {
	TxManager
	Repositories() Repositories
}
