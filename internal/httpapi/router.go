// Package httpapi публикует ядро бронирования как JSON API на gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services зависимости API
type Services struct {
	Users    *service.UserService
	Bookings *service.BookingService
	Slots    *service.SlotService
	Expiry   *service.ExpiryService
	Access   *service.MeetingAccessGate
	Clock    clock.Clock
	// WeeksAhead горизонт генерации слотов для новых шаблонов
	WeeksAhead int
}

// NewRouter собирает gin.Engine со всеми маршрутами
func NewRouter(svc Services, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())

	h := &handler{svc: svc, logger: logger}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{Success: true, Message: "Server is running"})
	})

	v1 := router.Group("/api/v1")
	{
		// Регистрация без идентификации, для разработки и интеграций
		v1.POST("/users", h.CreateUser)

		// Токен подтверждения сам является авторизацией
		confirmations := v1.Group("/confirmations")
		{
			confirmations.POST("/confirm", h.ConfirmBooking)
			confirmations.POST("/reject", h.RejectBooking)
		}

		protected := v1.Group("")
		protected.Use(identity())
		{
			protected.GET("/slots", h.ListAvailableSlots)
			protected.POST("/slots", h.CreateSlot)
			protected.GET("/slots/mine", h.ListMySlots)
			protected.DELETE("/slots/:id", h.CancelSlot)
			protected.POST("/slots/:id/bookings", h.RequestBooking)
			protected.GET("/slots/:id/access", h.CheckMeetingAccess)

			protected.GET("/bookings", h.ListMyBookings)
			protected.GET("/bookings/:id", h.GetBooking)
			protected.POST("/bookings/:id/cancel", h.CancelBooking)
			protected.POST("/bookings/:id/no-show", h.MarkNoShow)

			protected.GET("/patterns", h.ListPatterns)
			protected.POST("/patterns", h.CreatePattern)
			protected.DELETE("/patterns/:id", h.DeactivatePattern)

			// Ручной запуск sweep преподавателем, обычно работает планировщик
			protected.POST("/admin/expiry-sweep", h.RunExpirySweep)
		}
	}

	return router
}

type handler struct {
	svc    Services
	logger *zap.Logger
}

// requestLogger пишет access-log запросов через zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
