package model

import "time"

type BookingStatus string

const (
	BookingStatusPendingConfirmation  BookingStatus = "PENDING_CONFIRMATION"   // Ожидает решения преподавателя
	BookingStatusConfirmed            BookingStatus = "CONFIRMED"              // Подтверждено, занимает место
	BookingStatusRejected             BookingStatus = "REJECTED"               // Отклонено преподавателем
	BookingStatusExpired              BookingStatus = "EXPIRED"                // Истекло окно подтверждения
	BookingStatusCancelledByStudent   BookingStatus = "CANCELLED_BY_STUDENT"   // Отменено студентом
	BookingStatusCancelledByProfessor BookingStatus = "CANCELLED_BY_PROFESSOR" // Отменено преподавателем
	BookingStatusCompleted            BookingStatus = "COMPLETED"              // Занятие прошло
	BookingStatusNoShow               BookingStatus = "NO_SHOW"                // Студент не пришёл
)

// HoldsSeat сообщает, учитывается ли бронирование в current_participants слота
func (s BookingStatus) HoldsSeat() bool {
	return s == BookingStatusPendingConfirmation || s == BookingStatusConfirmed
}

// AdmitsToMeeting сообщает, что бронирование даёт студенту вход во встречу слота.
// COMPLETED тоже пускает: окно входа закрывается позже конца занятия.
func (s BookingStatus) AdmitsToMeeting() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCompleted
}

// IsTerminal сообщает, что из статуса нет переходов
func (s BookingStatus) IsTerminal() bool {
	return !s.HoldsSeat()
}

type Booking struct {
	ID                    int64         `json:"id"`
	SlotID                int64         `json:"slot_id"`
	StudentID             int64         `json:"student_id"`
	Status                BookingStatus `json:"status"`
	BookedAt              time.Time     `json:"booked_at"`
	ConfirmationExpiresAt *time.Time    `json:"confirmation_expires_at"`
	ConfirmedAt           *time.Time    `json:"confirmed_at"`
	RejectedAt            *time.Time    `json:"rejected_at"`
	CancelledAt           *time.Time    `json:"cancelled_at"`
	CompletedAt           *time.Time    `json:"completed_at"`
	CancelReason          *string       `json:"cancel_reason"`
	UpdatedAt             time.Time     `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Slot *Slot `json:"slot,omitempty"`
}

// ConfirmationLapsed сообщает, что окно подтверждения уже закрылось
func (b *Booking) ConfirmationLapsed(now time.Time) bool {
	return b.Status == BookingStatusPendingConfirmation &&
		b.ConfirmationExpiresAt != nil &&
		b.ConfirmationExpiresAt.Before(now)
}

// EffectiveStatus возвращает статус с учётом ещё не обработанного истечения:
// PENDING_CONFIRMATION после дедлайна читается как EXPIRED до прохода sweep.
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.ConfirmationLapsed(now) {
		return BookingStatusExpired
	}
	return b.Status
}
