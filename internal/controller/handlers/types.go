package handlers

import (
	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/Freeeeeet/office_hours/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService    *service.UserService
	bookingService *service.BookingService
	slotService    *service.SlotService
	accessGate     *service.MeetingAccessGate
	stateManager   *state.Manager
	clock          clock.Clock
	logger         *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	bookingService *service.BookingService,
	slotService *service.SlotService,
	accessGate *service.MeetingAccessGate,
	stateManager *state.Manager,
	clk clock.Clock,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:    userService,
		bookingService: bookingService,
		slotService:    slotService,
		accessGate:     accessGate,
		stateManager:   stateManager,
		clock:          clk,
		logger:         logger,
	}
}
