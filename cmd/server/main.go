package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/feedreach-backend/internal/ai"
	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/db"
	"github.com/ignatzorin/feedreach-backend/internal/geo"
	"github.com/ignatzorin/feedreach-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/feedreach-backend/internal/http/handlers"
	"github.com/ignatzorin/feedreach-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/feedreach-backend/internal/http/router"
	"github.com/ignatzorin/feedreach-backend/internal/identity"
	"github.com/ignatzorin/feedreach-backend/internal/infrastructure/persistence"
	newHandler "github.com/ignatzorin/feedreach-backend/internal/interface/http/handler"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/mailer"
	"github.com/ignatzorin/feedreach-backend/internal/realtime"
	legacyRepo "github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/service"
	"github.com/ignatzorin/feedreach-backend/internal/storage"
	aiuc "github.com/ignatzorin/feedreach-backend/internal/usecase/ai"
	"github.com/ignatzorin/feedreach-backend/internal/usecase/donation"
	"github.com/ignatzorin/feedreach-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	appLog := logger.Component("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		appLog.Fatalf("ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if _, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		appLog.Fatalf("ошибка миграций: %v", err)
	}

	// Шина событий, при наличии NATS общая для всех инстансов.
	broker := realtime.NewBroker()
	healthChecks := map[string]httpHandlers.HealthCheck{}
	if cfg.NATSURL != "" {
		bridge, err := realtime.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, broker)
		if err != nil {
			appLog.WithError(err).Warn("NATS недоступен, события только внутри инстанса")
		} else {
			defer bridge.Close()
			healthChecks["nats"] = bridge.Health
		}
	}
	donationFeed := realtime.NewDonationFeed(broker)

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	mediaStorage, err := storage.NewMediaStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		appLog.Fatalf("не удалось подготовить файловое хранилище: %v", err)
	}

	var verifier service.IdentityVerifier
	if cfg.FirebaseCredentialsPath != "" {
		firebaseVerifier, err := identity.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID)
		if err != nil {
			appLog.WithError(err).Warn("Firebase не настроен, вход через провайдера отключён")
		} else {
			verifier = firebaseVerifier
		}
	}

	// Клиент подключаем всегда: каждая цепочка провайдеров сама откатывается при пустой настройке.
	aiClient := ai.NewClient(cfg.AI)
	if !aiClient.AnalysisEnabled() {
		appLog.Warn("провайдеры анализа фото не настроены, анализ уходит на ручную проверку")
	}
	if !aiClient.RecipesEnabled() {
		appLog.Warn("провайдер рецептов не настроен, подбор рецептов вернёт пустой список")
	}

	// Репозитории.
	userRepo := legacyRepo.NewUserRepository(dbConn)
	mediaRepo := legacyRepo.NewMediaRepository(dbConn)
	notificationRepo := legacyRepo.NewNotificationRepository(dbConn)
	reviewRepo := legacyRepo.NewReviewRepository(dbConn)
	donationRepo := persistence.NewDonationRepositoryAdapter(dbConn)
	userDirectory := persistence.NewUserDirectoryAdapter(userRepo)

	// Сервисы.
	cache := service.NewCacheService(0, service.LeaderboardTTL)
	notificationService := service.NewNotificationService(notificationRepo, broker)
	authService := service.NewAuthService(userRepo, tokenManager, mailer.New(cfg.SMTP), verifier, service.AuthSettings{
		IsAdminEmail:     cfg.IsAdminEmail,
		PasswordResetTTL: cfg.PasswordResetTTL,
		PasswordResetURL: cfg.PasswordResetURL,
	})
	profileService := service.NewProfileService(userRepo)
	reviewService := service.NewReviewService(reviewRepo, donationRepo, userRepo, notificationService)
	verificationService := service.NewVerificationService(userRepo, notificationService)
	adminService := service.NewAdminService(userRepo, donationRepo, notificationService)
	leaderboardService := service.NewLeaderboardService(userRepo, cache)
	mediaService := service.NewMediaService(mediaRepo, mediaStorage, cfg.PublicBaseURL)

	for _, email := range cfg.AdminEmails {
		if err := adminService.Promote(ctx, email, true); err != nil {
			appLog.WithField("email", email).Debug("администратор ещё не зарегистрирован")
		}
	}

	// Завершённые пожертвования меняют рейтинг доноров.
	stopLeaderboardSync := donationFeed.SubscribeDonations(func(uuid.UUID) { leaderboardService.Invalidate() })
	defer stopLeaderboardSync()

	resolver := geo.NewResolver(geo.New(cfg.Geocoder))

	// Сценарии пожертвований.
	watchDonations := donation.NewWatchDonationsUseCase(donationRepo, donationFeed)
	donationHandler := newHandler.NewDonationHandler(
		donation.NewCreateDonationUseCase(donationRepo, userDirectory, donationFeed),
		donation.NewGetDonationUseCase(donationRepo),
		donation.NewListDonationsUseCase(donationRepo),
		donation.NewUpdateDonationUseCase(donationRepo, donationFeed),
		donation.NewDeleteDonationUseCase(donationRepo, donationFeed),
		donation.NewAcceptDonationUseCase(donationRepo, userDirectory, notificationService, donationFeed),
		donation.NewUpdateDonationStatusUseCase(donationRepo, notificationService, donationFeed),
		donation.NewImpactSummaryUseCase(donationRepo),
		resolver,
	)

	// Вебсокеты.
	hub := ws.NewHub(ws.ChannelNotifications)
	hub.Handle(ws.ChannelNotifications, ws.NotificationSource(notificationService))
	hub.Handle(ws.ChannelDonationsMine, ws.DonationSource(watchDonations, donation.ScopeMine))
	hub.Handle(ws.ChannelDonationsAvailable, ws.DonationSource(watchDonations, donation.ScopeAvailable))
	hub.Handle(ws.ChannelDonationsPickups, ws.DonationSource(watchDonations, donation.ScopePickups))

	// HTTP хэндлеры.
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	for name, check := range healthChecks {
		healthHandler.AddCheck(name, check)
	}

	engine := httpRouter.SetupRouter(
		cfg,
		tokenManager,
		httpHandlers.NewAuthHandler(authService),
		httpHandlers.NewProfileHandler(profileService),
		httpHandlers.NewNotificationHandler(notificationService),
		httpHandlers.NewReviewHandler(reviewService),
		httpHandlers.NewVerificationHandler(verificationService),
		httpHandlers.NewAdminHandler(adminService),
		httpHandlers.NewLeaderboardHandler(leaderboardService),
		httpHandlers.NewMediaHandler(mediaService, mediaStorage.MaxUploadBytes()),
		httpHandlers.NewAIHandler(aiuc.NewAnalyzeFoodUseCase(aiClient), aiuc.NewSuggestRecipesUseCase(aiClient)),
		httpHandlers.NewGeoHandler(resolver),
		httpHandlers.NewWSHandler(hub, tokenManager, middleware.OriginChecker(cfg.AllowedOrigins)),
		healthHandler,
		donationHandler,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	appLog.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Fatalf("сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Component("main").WithError(err).Error("ошибка закрытия базы")
	}
}
