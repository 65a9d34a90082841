package main

import (
	"context"
	"errors"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"remindcal/internal/bot"
	"remindcal/internal/config"
	"remindcal/internal/lifecycle"
	"remindcal/internal/logger"
	"remindcal/internal/notify"
	"remindcal/internal/repository"
	"remindcal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.ShutdownTimeout, zapLogger)
	ctx, cancel := manager.WithSignals(context.Background())
	defer cancel()

	db, err := repository.NewDB(repository.Options{DSN: cfg.DatabaseURL, Driver: cfg.SQLiteDriver}, zapLogger)
	if err != nil {
		zapLogger.Fatal("database unavailable", zap.Error(err))
	}
	manager.Register("database", func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	triggerStore, err := notify.OpenTriggerStore(cfg.TriggerStorePath)
	if err != nil {
		zapLogger.Fatal("trigger store unavailable", zap.Error(err))
	}
	manager.Register("trigger_store", func(context.Context) error {
		return triggerStore.Close()
	})

	deliverers := notify.MultiDeliverer{notify.NewLogDeliverer(logger.Component(zapLogger, "reminder"))}
	var api *tgbotapi.BotAPI
	if cfg.TelegramEnabled() {
		api, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			zapLogger.Fatal("telegram unavailable", zap.Error(err))
		}
		deliverers = append(deliverers, notify.NewTelegramDeliverer(api, cfg.TelegramChatID))
	}

	registrar := notify.NewCronRegistrar(triggerStore, deliverers, time.Local, logger.Component(zapLogger, "registrar"))
	restored, err := registrar.Restore(ctx)
	if err != nil {
		zapLogger.Error("restore triggers failed", zap.Error(err))
	}
	zapLogger.Info("triggers restored", zap.Int("count", restored))
	registrar.Start()
	manager.Register("registrar", registrar.Stop)

	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)

	reminderSvc := service.NewReminderService(registrar, logger.Component(zapLogger, "reminders"))
	agendaSvc := service.NewAgendaService(taskRepo, eventRepo, time.Local, logger.Component(zapLogger, "agenda"))
	cleanupSvc := service.NewCleanupService(taskRepo, eventRepo, logger.Component(zapLogger, "cleanup"))
	planner := service.NewPlannerService(taskRepo, eventRepo, reminderSvc, agendaSvc, cleanupSvc, time.Local, logger.Component(zapLogger, "planner"))

	planner.Sweep(ctx)

	if cfg.SweepCron != "" {
		scheduler := service.NewSchedulerService(time.Local, logger.Component(zapLogger, "scheduler"))
		if _, err := scheduler.Schedule(cfg.SweepCron, "sweep", func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			planner.Sweep(jobCtx)
		}); err != nil {
			zapLogger.Fatal("schedule sweep", zap.Error(err))
		}
		scheduler.Start()
		manager.Register("scheduler", scheduler.Stop)
	}

	zapLogger.Info("remindcal started", zap.Bool("telegram", api != nil))
	if api != nil {
		telegramBot := bot.New(api, planner, cfg.TelegramChatID, logger.Component(zapLogger, "bot"))
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("bot stopped with error", zap.Error(err))
		}
	} else {
		<-ctx.Done()
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}
