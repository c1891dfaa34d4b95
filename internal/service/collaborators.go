package service

import (
	"context"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// Notifier доставляет уведомления участникам. Доставка best-effort:
// ошибка уведомления не откатывает уже зафиксированный переход.
type Notifier interface {
	NotifyConfirmationRequested(ctx context.Context, booking *model.Booking, slot *model.Slot, confirmationToken string) error
	NotifyConfirmed(ctx context.Context, booking *model.Booking, slot *model.Slot) error
	NotifyRejected(ctx context.Context, booking *model.Booking, slot *model.Slot, reason string) error
	NotifyCancelled(ctx context.Context, booking *model.Booking, slot *model.Slot) error
	NotifyReminder(ctx context.Context, booking *model.Booking, slot *model.Slot) error
}

// MeetingRoomProvider выдаёт комнаты видеовстреч
type MeetingRoomProvider interface {
	GenerateRoomName(bookingID int64) string
	JoinURL(roomRef, displayName string) string
}
