package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"go.uber.org/zap"
)

const (
	// JoinOpensBefore за сколько до начала слота открывается вход во встречу
	JoinOpensBefore = 15 * time.Minute
	// JoinClosesAfter сколько после окончания слота вход ещё открыт
	JoinClosesAfter = 30 * time.Minute
)

// AccessGranted разрешение на вход во встречу
type AccessGranted struct {
	SlotID       int64      `json:"slot_id"`
	RoomRef      string     `json:"room_ref"`
	JoinURL      string     `json:"join_url"`
	Role         model.Role `json:"-"`
	WindowCloses time.Time  `json:"window_closes"`
}

// MeetingAccessGate проверяет право войти во встречу слота в момент now.
// Ничего не изменяет, только пишет access-log.
type MeetingAccessGate struct {
	store  repository.Store
	rooms  MeetingRoomProvider
	logger *zap.Logger
}

func NewMeetingAccessGate(store repository.Store, rooms MeetingRoomProvider, logger *zap.Logger) *MeetingAccessGate {
	return &MeetingAccessGate{
		store:  store,
		rooms:  rooms,
		logger: logger,
	}
}

// Authorize пускает владельца слота или студента с подтверждённой записью
// в окне [start-15m, end+30m]
func (g *MeetingAccessGate) Authorize(ctx context.Context, slotID, userID int64, now time.Time) (*AccessGranted, error) {
	repos := g.store.Repositories()

	slot, err := repos.Slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.MeetingRoomRef == nil {
		return nil, ErrNoMeetingRoom
	}
	if slot.Status == model.SlotStatusCancelled {
		return nil, ErrSlotCancelled
	}

	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		g.logDenied(slotID, userID, "unknown user")
		return nil, ErrForbidden
	}

	role := user.Role()
	switch role {
	case model.RoleProfessor:
		if slot.ProfessorID != userID {
			g.logDenied(slotID, userID, "not slot owner")
			return nil, ErrForbidden
		}
	default:
		participant, err := repos.Bookings.IsParticipant(ctx, slotID, userID)
		if err != nil {
			return nil, fmt.Errorf("check slot participant: %w", err)
		}
		if !participant {
			g.logDenied(slotID, userID, "no confirmed booking")
			return nil, ErrForbidden
		}
	}

	opens := slot.StartTime.Add(-JoinOpensBefore)
	closes := slot.EndTime.Add(JoinClosesAfter)
	if now.Before(opens) {
		return nil, &TooEarlyError{MinutesUntilOpen: int(math.Ceil(opens.Sub(now).Minutes()))}
	}
	if now.After(closes) {
		return nil, ErrTooLate
	}

	grant := &AccessGranted{
		SlotID:       slotID,
		RoomRef:      *slot.MeetingRoomRef,
		JoinURL:      g.rooms.JoinURL(*slot.MeetingRoomRef, user.DisplayName),
		Role:         role,
		WindowCloses: closes,
	}

	g.logger.Info("Meeting access granted",
		zap.Int64("slot_id", slotID),
		zap.Int64("user_id", userID),
		zap.String("role", role.String()),
		zap.String("room", grant.RoomRef),
	)

	return grant, nil
}

func (g *MeetingAccessGate) logDenied(slotID, userID int64, reason string) {
	g.logger.Info("Meeting access denied",
		zap.Int64("slot_id", slotID),
		zap.Int64("user_id", userID),
		zap.String("reason", reason),
	)
}
