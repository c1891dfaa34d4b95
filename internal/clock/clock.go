package clock

import (
	"sync"
	"time"
)

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// Real возвращает системное время
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Mock часы с ручным управлением, используются в тестах
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock создаёт часы, остановленные на указанном моменте
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set переставляет часы на указанный момент
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance сдвигает часы вперёд
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
