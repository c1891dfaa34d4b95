package state

import (
	"sync"
	"time"
)

// Manager хранит диалоги пользователей в памяти процесса.
// Диалог старше DialogTTL считается брошенным.
type Manager struct {
	mu     sync.Mutex
	states map[int64]*UserData // telegramID -> UserData
	now    func() time.Time
}

// NewManager создаёт новый менеджер состояний
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		states: make(map[int64]*UserData),
		now:    now,
	}
}

// Start начинает диалог, заменяя предыдущий
func (sm *Manager) Start(telegramID int64, state UserState, subject string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	sm.states[telegramID] = &UserData{
		State:     state,
		Subject:   subject,
		StartedAt: sm.now(),
	}
}

// Take возвращает и завершает активный диалог пользователя
func (sm *Manager) Take(telegramID int64) (UserData, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, exists := sm.states[telegramID]
	if !exists {
		return UserData{}, false
	}
	delete(sm.states, telegramID)

	if sm.now().Sub(data.StartedAt) > DialogTTL {
		return UserData{}, false
	}
	return *data, true
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if data, exists := sm.states[telegramID]; exists && sm.now().Sub(data.StartedAt) <= DialogTTL {
		return data.State
	}
	return StateNone
}

// ClearState очищает состояние пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}
