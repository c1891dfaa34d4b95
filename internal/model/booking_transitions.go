package model

// BookingEvent событие, переводящее бронирование в другой статус
type BookingEvent string

const (
	EventProfessorConfirm BookingEvent = "professor_confirm"
	EventProfessorReject  BookingEvent = "professor_reject"
	EventConfirmationLost BookingEvent = "confirmation_expired"
	EventStudentCancel    BookingEvent = "student_cancel"
	EventProfessorCancel  BookingEvent = "professor_cancel"
	EventSlotFinished     BookingEvent = "slot_finished"
	EventNoShow           BookingEvent = "no_show"
)

// BookingTransition одно разрешённое ребро автомата бронирования
type BookingTransition struct {
	From  BookingStatus
	Event BookingEvent
	To    BookingStatus
	// ReleasesSeat: переход освобождает место в слоте
	ReleasesSeat bool
}

var bookingTransitions = []BookingTransition{
	// Решение преподавателя
	{From: BookingStatusPendingConfirmation, Event: EventProfessorConfirm, To: BookingStatusConfirmed},
	{From: BookingStatusPendingConfirmation, Event: EventProfessorReject, To: BookingStatusRejected, ReleasesSeat: true},

	// Sweep
	{From: BookingStatusPendingConfirmation, Event: EventConfirmationLost, To: BookingStatusExpired, ReleasesSeat: true},

	// Отмены
	{From: BookingStatusPendingConfirmation, Event: EventStudentCancel, To: BookingStatusCancelledByStudent, ReleasesSeat: true},
	{From: BookingStatusPendingConfirmation, Event: EventProfessorCancel, To: BookingStatusCancelledByProfessor, ReleasesSeat: true},
	{From: BookingStatusConfirmed, Event: EventStudentCancel, To: BookingStatusCancelledByStudent, ReleasesSeat: true},
	{From: BookingStatusConfirmed, Event: EventProfessorCancel, To: BookingStatusCancelledByProfessor, ReleasesSeat: true},

	// После занятия место остаётся занятым исторически
	{From: BookingStatusConfirmed, Event: EventSlotFinished, To: BookingStatusCompleted},
	{From: BookingStatusConfirmed, Event: EventNoShow, To: BookingStatusNoShow},
}

// TransitionFor возвращает разрешённый переход для пары статус+событие
func TransitionFor(from BookingStatus, ev BookingEvent) (BookingTransition, bool) {
	for _, tr := range bookingTransitions {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return BookingTransition{}, false
}
