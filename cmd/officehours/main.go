package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/office_hours/internal/app"
	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/config"
	"github.com/Freeeeeet/office_hours/internal/controller"
	"github.com/Freeeeeet/office_hours/internal/controller/handlers"
	"github.com/Freeeeeet/office_hours/internal/controller/state"
	"github.com/Freeeeeet/office_hours/internal/httpapi"
	"github.com/Freeeeeet/office_hours/internal/meeting"
	"github.com/Freeeeeet/office_hours/internal/notify"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/Freeeeeet/office_hours/internal/repository/memory"
	"github.com/Freeeeeet/office_hours/internal/repository/postgres"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/Freeeeeet/office_hours/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}

	logger.Info("Application stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting office hours service",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("telegram_enabled", cfg.TelegramToken != ""),
	)

	clk := clock.Real{}

	store, closeStore, err := openStore(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Telegram опционален: без токена уведомления пишутся в лог
	var (
		tgBot    *bot.Bot
		notifier service.Notifier
	)
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifier = notify.NewTelegram(tgBot, store.Repositories().Users, logger.Named("notify"))
	} else {
		logger.Warn("TELEGRAM_TOKEN is not set, notifications go to the log")
		notifier = notify.NewLog(logger)
	}

	rooms := meeting.NewJitsi(cfg.MeetingBaseURL)
	tokens := token.NewService([]byte(cfg.TokenSecret), cfg.ConfirmationTTL, clk)
	capacity := service.NewCapacityTracker()
	machine := service.NewBookingStateMachine(capacity)

	userService := service.NewUserService(store, logger)
	bookingService := service.NewBookingService(store, capacity, machine, tokens, rooms, notifier, clk, logger)
	slotService := service.NewSlotService(store, machine, notifier, clk, logger)
	expiryService := service.NewExpiryService(store, machine, logger)
	accessGate := service.NewMeetingAccessGate(store, rooms, logger)

	scheduler := app.NewScheduler(expiryService, bookingService, slotService, clk,
		cfg.ExpirySweepInterval, cfg.RecurringWeeksAhead, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if tgBot != nil {
		cmdHandlers := handlers.NewHandlers(userService, bookingService, slotService, accessGate,
			state.NewManager(clk.Now), clk, logger)
		botController := controller.NewBotController(tgBot, cmdHandlers, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		go func() {
			if err := botController.Start(ctx); err != nil {
				logger.Error("Bot stopped with error", zap.Error(err))
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Services{
			Users:      userService,
			Bookings:   bookingService,
			Slots:      slotService,
			Expiry:     expiryService,
			Access:     accessGate,
			Clock:      clk,
			WeeksAhead: cfg.RecurringWeeksAhead,
		}, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// openStore подключает PostgreSQL и применяет миграции либо, без DB_DSN, поднимает хранилище в памяти
func openStore(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.DBDSN == "" {
		logger.Warn("DB_DSN is not set, using in-memory storage")
		return memory.NewStore(memory.WithClock(clk)), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to PostgreSQL")

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return postgres.NewStore(pool), pool.Close, nil
}
