package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response общий конверт ответов API
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Kind категория ошибки из service.KindOf
	Kind string `json:"kind,omitempty"`
	// MinutesUntilOpen заполняется, если вход во встречу ещё закрыт
	MinutesUntilOpen int `json:"minutes_until_open,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message, Kind: service.KindValidation.String()})
}

// StatusFor сопоставляет ошибке сервиса HTTP статус
func StatusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindCapacity, service.KindState:
		return http.StatusConflict
	case service.KindToken:
		if errors.Is(err, service.ErrInvalidSignature) {
			return http.StatusForbidden
		}
		return http.StatusGone
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAccessWindow:
		switch {
		case errors.Is(err, service.ErrNoMeetingRoom):
			return http.StatusConflict
		case errors.Is(err, service.ErrSlotCancelled):
			return http.StatusGone
		default:
			return http.StatusForbidden
		}
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *handler) fail(c *gin.Context, op string, err error) {
	kind := service.KindOf(err)
	status := StatusFor(err)

	resp := Response{Success: false, Error: err.Error(), Kind: kind.String()}
	var tooEarly *service.TooEarlyError
	if errors.As(err, &tooEarly) {
		resp.MinutesUntilOpen = tooEarly.MinutesUntilOpen
	}

	if kind == service.KindUnavailable {
		h.logger.Error("Request failed",
			zap.String("op", op),
			zap.Error(err),
		)
		resp.Error = "service temporarily unavailable"
	}

	c.JSON(status, resp)
}
