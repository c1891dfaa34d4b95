package model

import "time"

// UsedToken запись журнала погашенных токенов подтверждения.
// Наличие записи с данным JTI означает, что токен уже использован.
type UsedToken struct {
	JTI       string    `json:"jti"`
	BookingID int64     `json:"booking_id"`
	UsedAt    time.Time `json:"used_at"`
}
