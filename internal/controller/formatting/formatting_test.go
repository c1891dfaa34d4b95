package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "бесплатно", FormatPrice(0))
	assert.Equal(t, "1500 ₽", FormatPrice(150000))
	assert.Equal(t, "12.50 ₽", FormatPrice(1250))
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{1, "место"},
		{2, "места"},
		{5, "мест"},
		{11, "мест"},
		{21, "место"},
		{24, "места"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizeSeats(tt.count), "count=%d", tt.count)
	}
	assert.Equal(t, "15 минут", FormatMinutes(15))
	assert.Equal(t, "1 минуту", FormatMinutes(1))
}

func TestFormatTimeRange(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) // понедельник
	assert.Equal(t, "Пн 02.03.2026 14:00-15:00", FormatTimeRange(start, start.Add(time.Hour)))
	assert.Equal(t, "02.03.2026 14:00 - 03.03.2026 14:00", FormatTimeRange(start, start.Add(24*time.Hour)))
}

func TestStatusDisplay(t *testing.T) {
	for _, status := range []model.BookingStatus{
		model.BookingStatusPendingConfirmation,
		model.BookingStatusConfirmed,
		model.BookingStatusRejected,
		model.BookingStatusExpired,
		model.BookingStatusCancelledByStudent,
		model.BookingStatusCancelledByProfessor,
		model.BookingStatusCompleted,
		model.BookingStatusNoShow,
	} {
		assert.NotEqual(t, "Неизвестно", GetBookingStatusDisplay(status).Text, string(status))
	}
	assert.Equal(t, "Неизвестно", GetSlotStatusDisplay("BOGUS").Text)
}
