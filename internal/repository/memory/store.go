// Package memory реализует хранилище в памяти процесса.
// Используется в режиме разработки без DB_DSN и в тестах.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

// Store хранит все данные под одним мьютексом.
// Транзакция держит мьютекс целиком и при ошибке откатывает журнал изменений.
type Store struct {
	mu    sync.Mutex
	clock clock.Clock

	slots      map[int64]*model.Slot
	bookings   map[int64]*model.Booking
	usedTokens map[string]*model.UsedToken
	users      map[int64]*model.User
	patterns   map[int64]*model.RecurringPattern

	lastSlotID    int64
	lastBookingID int64
	lastUserID    int64
	lastPatternID int64
}

// Option настраивает Store
type Option func(*Store)

// WithClock задаёт часы для created_at, по умолчанию системные
func WithClock(clk clock.Clock) Option {
	return func(s *Store) {
		s.clock = clk
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:      clock.Real{},
		slots:      make(map[int64]*model.Slot),
		bookings:   make(map[int64]*model.Booking),
		usedTokens: make(map[string]*model.UsedToken),
		users:      make(map[int64]*model.User),
		patterns:   make(map[int64]*model.RecurringPattern),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories возвращает репозитории, каждая операция которых атомарна сама по себе
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(view{store: s})
}

// WithTx выполняет fn под мьютексом хранилища
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &journal{}
	if err := fn(ctx, s.repositories(view{store: s, tx: tx})); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) repositories(v view) repository.Repositories {
	return repository.Repositories{
		Slots:      &slotRepository{view: v},
		Bookings:   &bookingRepository{view: v},
		UsedTokens: &usedTokenRepository{view: v},
		Users:      &userRepository{view: v},
		Patterns:   &patternRepository{view: v},
	}
}

type journal struct {
	undo []func()
}

func (j *journal) record(f func()) {
	j.undo = append(j.undo, f)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

// view репозитории либо вне транзакции (tx == nil, блокировка на каждый вызов),
// либо внутри WithTx (мьютекс уже взят, изменения пишутся в журнал).
type view struct {
	store *Store
	tx    *journal
}

func (v view) locked(fn func()) {
	if v.tx == nil {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	fn()
}

func (v view) record(f func()) {
	if v.tx != nil {
		v.tx.record(f)
	}
}

// put заменяет значение целиком (copy-on-write), чтобы откат мог вернуть старый указатель
func put[K comparable, V any](v view, m map[K]*V, key K, val *V) {
	old, had := m[key]
	m[key] = val
	v.record(func() {
		if had {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
