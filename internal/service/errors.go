package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/token"
)

// Ошибки ядра бронирования. Транспорт различает их через errors.Is / KindOf.
var (
	ErrSlotFull         = errors.New("slot is fully booked")
	ErrSlotNotAvailable = errors.New("slot is not available for booking")

	ErrInvalidSignature = token.ErrInvalidSignature
	ErrTokenExpired     = token.ErrExpired
	ErrTokenAlreadyUsed = token.ErrAlreadyUsed

	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrDuplicateBooking       = errors.New("student already holds an active booking for this slot")

	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPatternNotFound = errors.New("recurring pattern not found")

	ErrForbidden    = errors.New("not permitted")
	ErrInvalidSlot  = errors.New("invalid slot parameters")
	ErrInvalidInput = errors.New("invalid input")

	ErrNoMeetingRoom = errors.New("slot has no meeting room")
	ErrSlotCancelled = errors.New("slot is cancelled")
	ErrTooLate       = errors.New("meeting access window has closed")
)

// TooEarlyError окно доступа к встрече ещё не открылось
type TooEarlyError struct {
	MinutesUntilOpen int
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("meeting access opens in %d min", e.MinutesUntilOpen)
}

// Kind категория ошибки для транспорта
type Kind int

const (
	KindUnavailable Kind = iota // инфраструктурная ошибка, можно повторить позже
	KindCapacity
	KindToken
	KindState
	KindNotFound
	KindForbidden
	KindValidation
	KindAccessWindow
)

func (k Kind) String() string {
	switch k {
	case KindCapacity:
		return "capacity"
	case KindToken:
		return "token"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindAccessWindow:
		return "access_window"
	default:
		return "unavailable"
	}
}

// KindOf классифицирует ошибку. Всё неизвестное считается недоступностью инфраструктуры.
func KindOf(err error) Kind {
	var tooEarly *TooEarlyError
	switch {
	case errors.Is(err, ErrSlotFull), errors.Is(err, ErrSlotNotAvailable):
		return KindCapacity
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenAlreadyUsed):
		return KindToken
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrDuplicateBooking):
		return KindState
	case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPatternNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.As(err, &tooEarly), errors.Is(err, ErrTooLate), errors.Is(err, ErrNoMeetingRoom), errors.Is(err, ErrSlotCancelled):
		return KindAccessWindow
	default:
		return KindUnavailable
	}
}
