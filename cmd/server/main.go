package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/attendance"
	"github.com/minsu-dev/factory-ops/internal/audit"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/config"
	"github.com/minsu-dev/factory-ops/internal/database"
	"github.com/minsu-dev/factory-ops/internal/handler"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/queue"
	"github.com/minsu-dev/factory-ops/internal/reconcile"
	"github.com/minsu-dev/factory-ops/internal/repository"
	"github.com/minsu-dev/factory-ops/internal/router"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("mysql connect failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("schema setup failed")
	}
	cancel()

	// Redis is optional at boot: without it the cache always misses, and
	// the lock-serialized write paths answer 503 until it returns.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; caching disabled, locked writes will 503")
	} else {
		defer rdb.Close()
	}
	store := cache.NewStore(rdb, log)
	locker := cache.NewLocker(rdb)
	sessions := cache.NewSessionStore(rdb, log, cfg.SessionTTL)

	users := repository.NewUserRepo(db)
	items := repository.NewItemRepo(db)
	events := repository.NewEventRepo(db)
	attRepo := repository.NewAttendanceRepo(db)
	logs := repository.NewLogRepo(db)
	options := repository.NewOptionRepo(db)

	auditLog := audit.New(logs, log, cfg.LogRetentionDays)
	engine := reconcile.New(items, log)
	attEngine := attendance.New(attRepo, locker, cfg.Timezone(), cfg.LockTTL)

	retentionCtx, stopRetention := context.WithCancel(context.Background())
	defer stopRetention()
	go auditLog.RunRetention(retentionCtx)

	go func() {
		if err := queue.StartStockAlertConsumer(); err != nil {
			log.WithError(err).Error("stock alert consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e)

	api := e.Group("/api", middleware.Authenticate(sessions, users, cfg.JWTSecret))
	router.RegisterAuth(api, handler.NewAuthHandler(cfg, users, sessions, auditLog, log))
	router.RegisterInventory(api, handler.NewInventoryHandler(items, store, auditLog))
	router.RegisterCalendar(api, handler.NewCalendarHandler(events, engine, locker, store, auditLog, log, cfg.Timezone(), cfg.LockTTL))
	router.RegisterAttendance(api, handler.NewAttendanceHandler(attEngine, attRepo, store, auditLog))
	router.RegisterOptions(api, handler.NewOptionsHandler(options, store, auditLog))
	router.RegisterLogs(api, handler.NewLogsHandler(logs))
	router.RegisterBackup(api, handler.NewBackupHandler(users, items, events, attRepo, logs, options, store, auditLog, cfg.Timezone()))
	router.RegisterHolidays(api, handler.NewHolidaysHandler(store, log, cfg.HolidayKey))
	router.RegisterBot(api, handler.NewBotHandler(items, log))

	warmCache(store, items, options, log)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// warmCache drops and refills the hot collection entries so the first
// requests after a deploy hit Redis, mirroring the previous deployment's
// boot behavior. Failures only cost the warm start.
func warmCache(store *cache.Store, items *repository.ItemRepo, options *repository.OptionRepo, log *logrus.Logger) {
	if !store.Available() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store.Invalidate(ctx, cache.KeyInventory, cache.KeyOptions)

	if list, err := items.List(ctx); err == nil {
		store.SetJSON(ctx, cache.KeyInventory, list, 0)
		log.WithField("items", len(list)).Info("inventory cache warmed")
	} else {
		log.WithError(err).Warn("inventory cache warm-up failed")
	}
	if list, err := options.List(ctx); err == nil {
		store.SetJSON(ctx, cache.KeyOptions, list, 0)
		log.WithField("options", len(list)).Info("options cache warmed")
	} else {
		log.WithError(err).Warn("options cache warm-up failed")
	}
}
