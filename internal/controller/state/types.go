package state

import "time"

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Преподаватель вводит причину отклонения бронирования
	StateRejectReason UserState = "reject_reason"
	// Пользователь вводит причину отмены бронирования
	StateCancelReason UserState = "cancel_reason"
	// Преподаватель вводит причину отмены слота
	StateCancelSlotReason UserState = "cancel_slot_reason"
)

// DialogTTL время жизни незавершённого диалога
const DialogTTL = 15 * time.Minute

// UserData хранит данные незавершённого диалога
type UserData struct {
	State UserState
	// Subject объект диалога: токен подтверждения или ID бронирования/слота
	Subject   string
	StartedAt time.Time
}
