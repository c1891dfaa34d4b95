package formatting

import "github.com/Freeeeeet/office_hours/internal/model"

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// GetSlotStatusDisplay возвращает emoji и текст для статуса слота
func GetSlotStatusDisplay(status model.SlotStatus) StatusDisplay {
	displays := map[model.SlotStatus]StatusDisplay{
		model.SlotStatusAvailable:   {"🟢", "Есть места"},
		model.SlotStatusFullyBooked: {"🔴", "Мест нет"},
		model.SlotStatusInProgress:  {"🎥", "Идёт"},
		model.SlotStatusCompleted:   {"✔️", "Завершён"},
		model.SlotStatusCancelled:   {"⚫️", "Отменён"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса бронирования
func GetBookingStatusDisplay(status model.BookingStatus) StatusDisplay {
	displays := map[model.BookingStatus]StatusDisplay{
		model.BookingStatusPendingConfirmation:  {"⏳", "Ожидает подтверждения"},
		model.BookingStatusConfirmed:            {"✅", "Подтверждена"},
		model.BookingStatusRejected:             {"🚫", "Отклонена"},
		model.BookingStatusExpired:              {"⌛️", "Истекла"},
		model.BookingStatusCancelledByStudent:   {"❌", "Отменена студентом"},
		model.BookingStatusCancelledByProfessor: {"❌", "Отменена преподавателем"},
		model.BookingStatusCompleted:            {"✔️", "Завершена"},
		model.BookingStatusNoShow:               {"👻", "Неявка"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}
