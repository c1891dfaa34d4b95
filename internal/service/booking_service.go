package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/Freeeeeet/office_hours/internal/token"
	"go.uber.org/zap"
)

type BookingService struct {
	store    repository.Store
	capacity *CapacityTracker
	machine  *BookingStateMachine
	tokens   *token.Service
	rooms    MeetingRoomProvider
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewBookingService(
	store repository.Store,
	capacity *CapacityTracker,
	machine *BookingStateMachine,
	tokens *token.Service,
	rooms MeetingRoomProvider,
	notifier Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:    store,
		capacity: capacity,
		machine:  machine,
		tokens:   tokens,
		rooms:    rooms,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// RequestBooking бронирует место в слоте для студента.
// Место и запись создаются в одной транзакции: если вставка не удалась, место возвращается.
// Токен подтверждения уходит только преподавателю через Notifier.
func (s *BookingService) RequestBooking(ctx context.Context, slotID, studentID int64) (*model.Booking, error) {
	repos := s.store.Repositories()
	now := s.clock.Now()

	student, err := repos.Users.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, ErrUserNotFound
	}
	if student.Role() != model.RoleStudent {
		return nil, ErrForbidden
	}

	// Проверяем что слот в будущем
	slot, err := repos.Slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if !slot.StartTime.After(now) {
		return nil, ErrSlotNotAvailable
	}

	var (
		booking *model.Booking
		issued  *token.Issued
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		reserved, err := s.capacity.ReserveSeat(ctx, repos.Slots, slotID)
		if err != nil {
			return err
		}
		slot = reserved

		booking = &model.Booking{
			SlotID:    slotID,
			StudentID: studentID,
			BookedAt:  now,
		}

		var expiresAt time.Time
		if slot.RequiresConfirmation {
			expiresAt = s.tokens.ExpiryFrom(now)
			booking.Status = model.BookingStatusPendingConfirmation
			booking.ConfirmationExpiresAt = &expiresAt
		} else {
			booking.Status = model.BookingStatusConfirmed
			booking.ConfirmedAt = &now
		}

		err = repos.Bookings.Create(ctx, booking)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateBooking
		}
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		if booking.Status == model.BookingStatusPendingConfirmation {
			issued, err = s.tokens.IssueUntil(booking.ID, slot.ProfessorID, studentID, expiresAt)
			return err
		}

		slot, err = s.ensureMeetingRoom(ctx, repos.Slots, slot, booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("slot_id", slotID),
		zap.Int("current_participants", slot.CurrentParticipants),
		zap.String("status", string(booking.Status)),
	)

	if issued != nil {
		s.notify("confirmation_requested", booking, s.notifier.NotifyConfirmationRequested(ctx, booking, slot, issued.Token))
	} else {
		s.notify("confirmed", booking, s.notifier.NotifyConfirmed(ctx, booking, slot))
	}

	booking.Slot = slot
	return booking, nil
}

// ConfirmBooking подтверждает бронирование по токену преподавателя
func (s *BookingService) ConfirmBooking(ctx context.Context, confirmationToken string) (*model.Booking, error) {
	result, err := s.redeem(ctx, confirmationToken, model.EventProfessorConfirm, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", result.Booking.ID),
		zap.Int64("slot_id", result.Booking.SlotID),
	)

	s.notify("confirmed", result.Booking, s.notifier.NotifyConfirmed(ctx, result.Booking, result.Slot))

	result.Booking.Slot = result.Slot
	return result.Booking, nil
}

// RejectBooking отклоняет бронирование по токену и освобождает место
func (s *BookingService) RejectBooking(ctx context.Context, confirmationToken, reason string) (*model.Booking, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	result, err := s.redeem(ctx, confirmationToken, model.EventProfessorReject, reasonPtr)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rejected",
		zap.Int64("booking_id", result.Booking.ID),
		zap.Int64("slot_id", result.Booking.SlotID),
		zap.Int("current_participants", result.Slot.CurrentParticipants),
	)

	s.notify("rejected", result.Booking, s.notifier.NotifyRejected(ctx, result.Booking, result.Slot, reason))

	result.Booking.Slot = result.Slot
	return result.Booking, nil
}

// redeem проверяет токен, гасит его и выполняет переход в одной транзакции.
// Если переход невозможен, погашение откатывается вместе с ним.
func (s *BookingService) redeem(ctx context.Context, confirmationToken string, ev model.BookingEvent, reason *string) (*TransitionResult, error) {
	claims, err := s.tokens.Validate(ctx, s.store.Repositories().UsedTokens, confirmationToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var result *TransitionResult
	err = s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := s.tokens.MarkUsed(ctx, repos.UsedTokens, claims.JTI(), claims.BookingID); err != nil {
			return err
		}

		booking, err := repos.Bookings.GetByID(ctx, claims.BookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil {
			return ErrBookingNotFound
		}

		slot, err := repos.Slots.GetByID(ctx, booking.SlotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return ErrSlotNotFound
		}
		if booking.StudentID != claims.StudentID || slot.ProfessorID != claims.ProfessorID {
			return ErrForbidden
		}

		result, err = s.machine.Apply(ctx, repos, booking, ev, now, reason)
		if err != nil {
			return err
		}
		if result.Slot == nil {
			result.Slot = slot
		}

		if result.Booking.Status == model.BookingStatusConfirmed {
			result.Slot, err = s.ensureMeetingRoom(ctx, repos.Slots, result.Slot, booking.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CancelBooking отменяет бронирование от имени студента-владельца или преподавателя слота
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64, reason string) (*model.Booking, error) {
	repos := s.store.Repositories()

	actor, err := repos.Users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	now := s.clock.Now()
	var result *TransitionResult
	err = s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, slot, err := loadBookingWithSlot(ctx, repos, bookingID)
		if err != nil {
			return err
		}

		// Проверяем что пользователь имеет право отменить
		var ev model.BookingEvent
		switch {
		case actor.Role() == model.RoleStudent && booking.StudentID == actor.ID:
			ev = model.EventStudentCancel
		case actor.Role() == model.RoleProfessor && slot.ProfessorID == actor.ID:
			ev = model.EventProfessorCancel
		default:
			return ErrForbidden
		}

		result, err = s.machine.Apply(ctx, repos, booking, ev, now, reasonPtr)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
		zap.String("role", actor.Role().String()),
		zap.String("status", string(result.Booking.Status)),
	)

	s.notify("cancelled", result.Booking, s.notifier.NotifyCancelled(ctx, result.Booking, result.Slot))

	result.Booking.Slot = result.Slot
	return result.Booking, nil
}

// MarkNoShow отмечает неявку студента; доступно преподавателю после начала слота
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID, professorID int64) (*model.Booking, error) {
	now := s.clock.Now()

	var result *TransitionResult
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, slot, err := loadBookingWithSlot(ctx, repos, bookingID)
		if err != nil {
			return err
		}
		if slot.ProfessorID != professorID {
			return ErrForbidden
		}
		if now.Before(slot.StartTime) {
			return ErrInvalidStateTransition
		}

		result, err = s.machine.Apply(ctx, repos, booking, model.EventNoShow, now, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking marked as no-show",
		zap.Int64("booking_id", bookingID),
		zap.Int64("professor_id", professorID),
	)

	return result.Booking, nil
}

// GetBooking возвращает бронирование студенту-владельцу или преподавателю слота.
// Статус отдаётся с учётом ещё не обработанного истечения.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, slot, err := loadBookingWithSlot(ctx, s.store.Repositories(), bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != actorID && slot.ProfessorID != actorID {
		return nil, ErrForbidden
	}

	booking.Status = booking.EffectiveStatus(s.clock.Now())
	booking.Slot = slot
	return booking, nil
}

// ListStudentBookings получает все бронирования студента
func (s *BookingService) ListStudentBookings(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	repos := s.store.Repositories()

	bookings, err := repos.Bookings.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student bookings: %w", err)
	}

	now := s.clock.Now()
	for _, booking := range bookings {
		booking.Status = booking.EffectiveStatus(now)
		slot, err := repos.Slots.GetByID(ctx, booking.SlotID)
		if err != nil {
			return nil, fmt.Errorf("get slot: %w", err)
		}
		booking.Slot = slot
	}

	return bookings, nil
}

// SendReminders напоминает о занятиях, начинающихся в (from, to]
func (s *BookingService) SendReminders(ctx context.Context, from, to time.Time) (int, error) {
	repos := s.store.Repositories()

	bookings, err := repos.Bookings.GetConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("get upcoming bookings: %w", err)
	}

	sent := 0
	for _, booking := range bookings {
		slot, err := repos.Slots.GetByID(ctx, booking.SlotID)
		if err != nil || slot == nil {
			s.logger.Warn("Failed to load slot for reminder",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err),
			)
			continue
		}
		if err := s.notifier.NotifyReminder(ctx, booking, slot); err != nil {
			s.notify("reminder", booking, err)
			continue
		}
		sent++
	}

	return sent, nil
}

// ensureMeetingRoom назначает слоту комнату, если её ещё нет
func (s *BookingService) ensureMeetingRoom(ctx context.Context, slots repository.SlotRepository, slot *model.Slot, bookingID int64) (*model.Slot, error) {
	if slot.MeetingRoomRef != nil {
		return slot, nil
	}

	roomRef := s.rooms.GenerateRoomName(bookingID)
	if _, err := slots.AssignMeetingRoom(ctx, slot.ID, roomRef); err != nil {
		return nil, err
	}

	// Перечитываем: комнату мог назначить конкурентный запрос
	updated, err := slots.GetByID(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if updated == nil {
		return nil, ErrSlotNotFound
	}
	return updated, nil
}

func (s *BookingService) notify(kind string, booking *model.Booking, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("Failed to send notification",
		zap.String("kind", kind),
		zap.Int64("booking_id", booking.ID),
		zap.Error(err),
	)
}

func loadBookingWithSlot(ctx context.Context, repos repository.Repositories, bookingID int64) (*model.Booking, *model.Slot, error) {
	booking, err := repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, nil, ErrBookingNotFound
	}

	slot, err := repos.Slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return nil, nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, nil, ErrSlotNotFound
	}

	return booking, slot, nil
}
