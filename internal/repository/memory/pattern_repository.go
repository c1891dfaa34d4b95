package memory

import (
	"context"
	"sort"

	"github.com/Freeeeeet/office_hours/internal/model"
)

type patternRepository struct {
	view
}

func (r *patternRepository) Create(_ context.Context, pattern *model.RecurringPattern) error {
	r.locked(func() {
		r.store.lastPatternID++
		pattern.ID = r.store.lastPatternID
		pattern.CreatedAt = r.store.clock.Now()
		cp := *pattern
		put(r.view, r.store.patterns, pattern.ID, &cp)
	})
	return nil
}

func (r *patternRepository) GetByID(_ context.Context, id int64) (*model.RecurringPattern, error) {
	var found *model.RecurringPattern
	r.locked(func() {
		if pattern, ok := r.store.patterns[id]; ok {
			cp := *pattern
			found = &cp
		}
	})
	return found, nil
}

func (r *patternRepository) collect(match func(*model.RecurringPattern) bool) []*model.RecurringPattern {
	var patterns []*model.RecurringPattern
	r.locked(func() {
		for _, pattern := range r.store.patterns {
			if match(pattern) {
				cp := *pattern
				patterns = append(patterns, &cp)
			}
		}
	})
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })
	return patterns
}

func (r *patternRepository) GetByProfessorID(_ context.Context, professorID int64) ([]*model.RecurringPattern, error) {
	return r.collect(func(p *model.RecurringPattern) bool { return p.ProfessorID == professorID }), nil
}

func (r *patternRepository) GetAllActive(_ context.Context) ([]*model.RecurringPattern, error) {
	return r.collect(func(p *model.RecurringPattern) bool { return p.IsActive }), nil
}

func (r *patternRepository) Deactivate(_ context.Context, id int64) error {
	r.locked(func() {
		pattern, ok := r.store.patterns[id]
		if !ok {
			return
		}
		cp := *pattern
		cp.IsActive = false
		put(r.view, r.store.patterns, id, &cp)
	})
	return nil
}
