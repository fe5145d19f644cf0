package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vip-passport/config"
	"vip-passport/handlers"
	"vip-passport/middleware"
	"vip-passport/models"
	"vip-passport/services"
	"vip-passport/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := models.Open(cfg.DatabaseDriver, cfg.DatabaseURL, gormlogger.Default.LogMode(gormlogger.Warn))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := models.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	adminIDs, _ := cfg.AdminIDs()
	metrics := services.NewMetrics()
	userService := services.NewUserService(db, log)
	authService := services.NewAuthService(userService, services.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.AccessTokenTTL,
		BotToken:    cfg.TelegramBotToken,
		InitDataTTL: cfg.TelegramAuthMaxAge,
		AdminIDs:    adminIDs,
	}, log)
	missionService := services.NewMissionService(db, log)
	intakeService := services.NewIntakeService(db, log, metrics)
	approvalService := services.NewApprovalService(db, services.NewRewardLedger(), services.NewNotificationRecorder(), log, metrics)

	store := evidenceStore(ctx, cfg, log)

	scheduler := services.NewBacklogScheduler(db, metrics, log)
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    utils.MaxEvidenceSize + 1<<20,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Admin-Token, " + middleware.GatewayHeader,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: !strings.Contains(cfg.Origins(), "*"),
		MaxAge:           86400,
	}))
	app.Use(metrics.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if _, ok := store.(*utils.LocalStore); ok {
		app.Static("/uploads", "./uploads")
	}

	if bot := newBot(cfg, userService, log); bot != nil {
		handlers.SetupBotRoutes(app, bot, log)
	}

	api := app.Group("/api/v1", middleware.GatewayAuthMiddleware(cfg.GatewayToken, log))
	requireUser := middleware.UserContextMiddleware(authService, userService)
	requireAdmin := middleware.RequireAdmin(middleware.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Token:    cfg.ResolvedAdminToken(),
	}, authService, userService, log)

	handlers.SetupAuthRoutes(api, authService)
	handlers.SetupProfileRoutes(api, requireUser, userService)
	handlers.SetupSubmissionRoutes(api, requireUser, intakeService, store)
	handlers.SetupMissionRoutes(api, requireUser, missionService, approvalService)
	handlers.SetupAdminRoutes(api, requireAdmin, handlers.AdminServices{
		Users:     userService,
		Intake:    intakeService,
		Approvals: approvalService,
		Missions:  missionService,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server error")
			stop()
		}
	}()
	log.WithFields(logrus.Fields{"port": cfg.Port, "driver": cfg.DatabaseDriver, "origins": cfg.Origins()}).
		Info("server running")

	<-ctx.Done()
	log.Info("shutting down server")
	scheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// evidenceStore prefers R2 and falls back to local disk served under /uploads.
func evidenceStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) utils.EvidenceStore {
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize R2 client")
		}
		return r2
	}
	log.Warn("R2 is not configured; storing evidence under ./uploads")
	local, err := utils.NewLocalStore("./uploads", "/uploads")
	if err != nil {
		log.WithError(err).Fatal("failed to ensure upload dir")
	}
	return local
}

func newBot(cfg *config.Config, users *services.UserService, log *logrus.Logger) *services.BotService {
	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN is not set; bot webhook disabled")
		return nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.WithError(err).Error("telegram bot unavailable; webhook disabled")
		return nil
	}
	return services.NewBotService(api, users, cfg.MiniAppURL, log)
}

func errorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()}).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
