package model

import (
	"time"

	"github.com/google/uuid"
)

// RecurringPattern представляет шаблон регулярного расписания преподавателя
type RecurringPattern struct {
	ID                   int64     `json:"id"`
	GroupID              uuid.UUID `json:"group_id"` // идентификатор группы связанных шаблонов
	ProfessorID          int64     `json:"professor_id"`
	Title                string    `json:"title"`
	Weekday              int       `json:"weekday"`          // 0 = Sunday, 6 = Saturday
	StartHour            int       `json:"start_hour"`       // 0-23
	StartMinute          int       `json:"start_minute"`     // 0-59
	DurationMinutes      int       `json:"duration_minutes"` // длительность в минутах
	SlotType             SlotType  `json:"slot_type"`
	MaxParticipants      int       `json:"max_participants"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	Price                int       `json:"price"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// OccurrencesBetween возвращает начала занятий шаблона в интервале [from, to)
func (p *RecurringPattern) OccurrencesBetween(from, to time.Time) []time.Time {
	var starts []time.Time
	weekday := time.Weekday(p.Weekday)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != weekday {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, p.StartMinute, 0, 0, day.Location())
		if start.Before(from) || !start.Before(to) {
			continue
		}
		starts = append(starts, start)
	}
	return starts
}

// Duration возвращает длительность занятия
func (p *RecurringPattern) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}
