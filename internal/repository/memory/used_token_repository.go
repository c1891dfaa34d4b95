package memory

import (
	"context"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
)

type usedTokenRepository struct {
	view
}

func (r *usedTokenRepository) Insert(_ context.Context, token *model.UsedToken) error {
	var err error
	r.locked(func() {
		if _, ok := r.store.usedTokens[token.JTI]; ok {
			err = repository.ErrDuplicate
			return
		}
		cp := *token
		put(r.view, r.store.usedTokens, token.JTI, &cp)
	})
	return err
}

func (r *usedTokenRepository) Exists(_ context.Context, jti string) (bool, error) {
	var exists bool
	r.locked(func() {
		_, exists = r.store.usedTokens[jti]
	})
	return exists, nil
}
