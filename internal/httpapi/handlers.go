package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	IsProfessor bool   `json:"is_professor"`
}

func (h *handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.svc.Users.CreateUser(c.Request.Context(), req.DisplayName, req.IsProfessor)
	if err != nil {
		h.fail(c, "create_user", err)
		return
	}

	ok(c, http.StatusCreated, user)
}

// ---- слоты ----

type createSlotRequest struct {
	Title                string         `json:"title"`
	StartTime            time.Time      `json:"start_time" binding:"required"`
	EndTime              time.Time      `json:"end_time" binding:"required"`
	SlotType             model.SlotType `json:"slot_type" binding:"required"`
	MaxParticipants      int            `json:"max_participants"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Price                int            `json:"price"`
}

func (h *handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	slot, err := h.svc.Slots.CreateSlot(c.Request.Context(), currentUserID(c), service.SlotInput{
		Title:                req.Title,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		SlotType:             req.SlotType,
		MaxParticipants:      req.MaxParticipants,
		RequiresConfirmation: req.RequiresConfirmation,
		Price:                req.Price,
	})
	if err != nil {
		h.fail(c, "create_slot", err)
		return
	}

	ok(c, http.StatusCreated, slot)
}

// timeRange разбирает ?from=&to= (RFC3339), по умолчанию две недели от now
func (h *handler) timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	from := h.svc.Clock.Now()
	to := from.AddDate(0, 0, 14)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "from must be RFC3339")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "to must be RFC3339")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

func (h *handler) ListAvailableSlots(c *gin.Context) {
	from, to, valid := h.timeRange(c)
	if !valid {
		return
	}

	slots, err := h.svc.Slots.ListAvailableSlots(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, "list_slots", err)
		return
	}

	ok(c, http.StatusOK, nonNil(slots))
}

func (h *handler) ListMySlots(c *gin.Context) {
	from, to, valid := h.timeRange(c)
	if !valid {
		return
	}

	slots, err := h.svc.Slots.ListProfessorSlots(c.Request.Context(), currentUserID(c), from, to)
	if err != nil {
		h.fail(c, "list_my_slots", err)
		return
	}

	ok(c, http.StatusOK, nonNil(slots))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// bindReason читает необязательное тело {"reason": "..."}
func bindReason(c *gin.Context) (string, bool) {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return req.Reason, true
}

func (h *handler) CancelSlot(c *gin.Context) {
	slotID, valid := pathID(c)
	if !valid {
		return
	}
	reason, valid := bindReason(c)
	if !valid {
		return
	}

	cancelled, err := h.svc.Slots.CancelSlot(c.Request.Context(), slotID, currentUserID(c), reason)
	if err != nil {
		h.fail(c, "cancel_slot", err)
		return
	}

	ok(c, http.StatusOK, gin.H{"slot_id": slotID, "cancelled_bookings": nonNil(cancelled)})
}

func (h *handler) CheckMeetingAccess(c *gin.Context) {
	slotID, valid := pathID(c)
	if !valid {
		return
	}

	grant, err := h.svc.Access.Authorize(c.Request.Context(), slotID, currentUserID(c), h.svc.Clock.Now())
	if err != nil {
		h.fail(c, "meeting_access", err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"slot_id":       grant.SlotID,
		"room_ref":      grant.RoomRef,
		"join_url":      grant.JoinURL,
		"role":          grant.Role.String(),
		"window_closes": grant.WindowCloses,
	})
}

// ---- бронирования ----

func (h *handler) RequestBooking(c *gin.Context) {
	slotID, valid := pathID(c)
	if !valid {
		return
	}

	booking, err := h.svc.Bookings.RequestBooking(c.Request.Context(), slotID, currentUserID(c))
	if err != nil {
		h.fail(c, "request_booking", err)
		return
	}

	ok(c, http.StatusCreated, booking)
}

func (h *handler) ListMyBookings(c *gin.Context) {
	bookings, err := h.svc.Bookings.ListStudentBookings(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, "list_bookings", err)
		return
	}

	ok(c, http.StatusOK, nonNil(bookings))
}

func (h *handler) GetBooking(c *gin.Context) {
	bookingID, valid := pathID(c)
	if !valid {
		return
	}

	booking, err := h.svc.Bookings.GetBooking(c.Request.Context(), bookingID, currentUserID(c))
	if err != nil {
		h.fail(c, "get_booking", err)
		return
	}

	ok(c, http.StatusOK, booking)
}

func (h *handler) CancelBooking(c *gin.Context) {
	bookingID, valid := pathID(c)
	if !valid {
		return
	}
	reason, valid := bindReason(c)
	if !valid {
		return
	}

	booking, err := h.svc.Bookings.CancelBooking(c.Request.Context(), bookingID, currentUserID(c), reason)
	if err != nil {
		h.fail(c, "cancel_booking", err)
		return
	}

	ok(c, http.StatusOK, booking)
}

func (h *handler) MarkNoShow(c *gin.Context) {
	bookingID, valid := pathID(c)
	if !valid {
		return
	}

	booking, err := h.svc.Bookings.MarkNoShow(c.Request.Context(), bookingID, currentUserID(c))
	if err != nil {
		h.fail(c, "no_show", err)
		return
	}

	ok(c, http.StatusOK, booking)
}

// ---- подтверждения ----

type confirmationRequest struct {
	Token  string `json:"token" binding:"required"`
	Reason string `json:"reason"`
}

func (h *handler) ConfirmBooking(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.svc.Bookings.ConfirmBooking(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, "confirm_booking", err)
		return
	}

	ok(c, http.StatusOK, booking)
}

func (h *handler) RejectBooking(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.svc.Bookings.RejectBooking(c.Request.Context(), req.Token, req.Reason)
	if err != nil {
		h.fail(c, "reject_booking", err)
		return
	}

	ok(c, http.StatusOK, booking)
}

// ---- регулярное расписание ----

type createPatternRequest struct {
	Title                string         `json:"title"`
	Weekdays             []int          `json:"weekdays" binding:"required"`
	StartHour            int            `json:"start_hour"`
	StartMinute          int            `json:"start_minute"`
	DurationMinutes      int            `json:"duration_minutes" binding:"required"`
	SlotType             model.SlotType `json:"slot_type" binding:"required"`
	MaxParticipants      int            `json:"max_participants"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Price                int            `json:"price"`
}

func (h *handler) CreatePattern(c *gin.Context) {
	var req createPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, day := range req.Weekdays {
		if day < 0 || day > 6 {
			badRequest(c, "weekday must be 0..6")
			return
		}
		weekdays = append(weekdays, time.Weekday(day))
	}

	groupID, err := h.svc.Slots.CreateRecurringPattern(c.Request.Context(), currentUserID(c), service.PatternInput{
		Title:                req.Title,
		Weekdays:             weekdays,
		StartHour:            req.StartHour,
		StartMinute:          req.StartMinute,
		DurationMinutes:      req.DurationMinutes,
		SlotType:             req.SlotType,
		MaxParticipants:      req.MaxParticipants,
		RequiresConfirmation: req.RequiresConfirmation,
		Price:                req.Price,
	}, h.svc.WeeksAhead)
	if err != nil {
		h.fail(c, "create_pattern", err)
		return
	}

	ok(c, http.StatusCreated, gin.H{"group_id": groupID})
}

func (h *handler) ListPatterns(c *gin.Context) {
	patterns, err := h.svc.Slots.ListPatterns(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, "list_patterns", err)
		return
	}

	ok(c, http.StatusOK, nonNil(patterns))
}

func (h *handler) DeactivatePattern(c *gin.Context) {
	patternID, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.Slots.DeactivatePattern(c.Request.Context(), currentUserID(c), patternID); err != nil {
		h.fail(c, "deactivate_pattern", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Message: "pattern deactivated"})
}

// ---- обслуживание ----

func (h *handler) RunExpirySweep(c *gin.Context) {
	user, err := h.svc.Users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, "expiry_sweep", err)
		return
	}
	if user == nil || user.Role() != model.RoleProfessor {
		h.fail(c, "expiry_sweep", service.ErrForbidden)
		return
	}

	result, err := h.svc.Expiry.Sweep(c.Request.Context(), h.svc.Clock.Now())
	if err != nil {
		h.fail(c, "expiry_sweep", err)
		return
	}

	ok(c, http.StatusOK, result)
}

// nonNil отдаёт пустой массив вместо null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
