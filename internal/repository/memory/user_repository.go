package memory

import (
	"context"

	"github.com/Freeeeeet/office_hours/internal/model"
)

type userRepository struct {
	view
}

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	r.locked(func() {
		r.store.lastUserID++
		user.ID = r.store.lastUserID
		user.CreatedAt = r.store.clock.Now()
		cp := *user
		put(r.view, r.store.users, user.ID, &cp)
	})
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	var found *model.User
	r.locked(func() {
		if user, ok := r.store.users[id]; ok {
			cp := *user
			found = &cp
		}
	})
	return found, nil
}

func (r *userRepository) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	var found *model.User
	r.locked(func() {
		for _, user := range r.store.users {
			if user.TelegramID != nil && *user.TelegramID == telegramID {
				cp := *user
				found = &cp
				return
			}
		}
	})
	return found, nil
}

func (r *userRepository) SetProfessor(_ context.Context, id int64, isProfessor bool) error {
	r.locked(func() {
		user, ok := r.store.users[id]
		if !ok {
			return
		}
		cp := *user
		cp.IsProfessor = isProfessor
		put(r.view, r.store.users, id, &cp)
	})
	return nil
}
