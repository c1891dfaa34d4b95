package model

import "time"

type SlotType string

const (
	SlotTypeIndividual SlotType = "INDIVIDUAL" // Индивидуальная консультация, одно место
	SlotTypeGroup      SlotType = "GROUP"      // Групповое занятие
)

type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "AVAILABLE"
	SlotStatusFullyBooked SlotStatus = "FULLY_BOOKED"
	SlotStatusInProgress  SlotStatus = "IN_PROGRESS"
	SlotStatusCompleted   SlotStatus = "COMPLETED"
	SlotStatusCancelled   SlotStatus = "CANCELLED"
)

// IsClosed сообщает, что слот больше не принимает записи независимо от заполненности
func (s SlotStatus) IsClosed() bool {
	switch s {
	case SlotStatusInProgress, SlotStatusCompleted, SlotStatusCancelled:
		return true
	}
	return false
}

type Slot struct {
	ID                   int64      `json:"id"`
	ProfessorID          int64      `json:"professor_id"`
	Title                string     `json:"title"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              time.Time  `json:"end_time"`
	SlotType             SlotType   `json:"slot_type"`
	MaxParticipants      int        `json:"max_participants"`
	CurrentParticipants  int        `json:"current_participants"` // меняется только через CapacityTracker
	Status               SlotStatus `json:"status"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	Price                int        `json:"price"`                // в копейках/центах, только хранится
	MeetingRoomRef       *string    `json:"meeting_room_ref"`     // nil пока комната не назначена
	RecurringPatternID   *int64     `json:"recurring_pattern_id"` // nil для разовых слотов
	CreatedAt            time.Time  `json:"created_at"`
}

// RemainingSeats возвращает количество свободных мест
func (s *Slot) RemainingSeats() int {
	if s.Status.IsClosed() {
		return 0
	}
	left := s.MaxParticipants - s.CurrentParticipants
	if left < 0 {
		return 0
	}
	return left
}

// StatusForCount вычисляет статус открытого слота для заданного числа участников.
// Закрытые статусы не меняются.
func (s *Slot) StatusForCount(count int) SlotStatus {
	if s.Status.IsClosed() {
		return s.Status
	}
	if count >= s.MaxParticipants {
		return SlotStatusFullyBooked
	}
	return SlotStatusAvailable
}
