package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicefirst-backend/internal/config"
	"voicefirst-backend/internal/handlers"
	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/moderation"
	"voicefirst-backend/internal/repository"
	"voicefirst-backend/internal/services"
	"voicefirst-backend/internal/storage"
	"voicefirst-backend/internal/workers"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Object storage
	objectStorage, err := storage.NewS3Storage(context.Background(), storage.S3Options{
		Region:    cfg.AWS.Region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
		PublicURL: cfg.AWS.PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage")
	}

	// Rate limiter store; absent redis config disables limiting
	var rateStore services.WindowStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		defer redisClient.Close()
		rateStore = repository.NewRateStore(redisClient)
		log.Info().Msg("Redis connection established")
	} else {
		log.Info().Msg("Redis not configured, rate limiting disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	voiceRepo := repository.NewVoiceRepository(db)
	convRepo := repository.NewConversationRepository(db)

	// Moderation pipeline
	classifier := moderation.NewClassifierClient(
		cfg.Moderation.Endpoint,
		cfg.Moderation.APIKey,
		cfg.Moderation.RequestTimeout,
	)
	if !classifier.Configured() {
		log.Info().Msg("Safety classifier not configured, running on fallback policy")
	}
	moderationService := moderation.NewService(classifier, moderation.NewFallback(nil))

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	photoService := services.NewPhotoService(photoRepo, objectStorage, moderationService)
	voiceService := services.NewVoiceService(voiceRepo, objectStorage)
	messageService := services.NewMessageService(convRepo, voiceService)
	profileService := services.NewProfileService(photoRepo, voiceRepo)
	wsHub := services.NewWSHub()

	uploadLimiter := services.NewRateLimiter(rateStore, "photo_upload", 10, time.Minute)
	messageLimiter := services.NewRateLimiter(rateStore, "message_send", 30, time.Minute)

	// Push notifications
	var apnsClient *apns2.Client
	if cfg.APNS.CertFile != "" {
		cert, err := certificate.FromP12File(cfg.APNS.CertFile, cfg.APNS.CertPass)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load APNs certificate")
		}
		apnsClient = apns2.NewClient(cert)
		if cfg.APNS.Production {
			apnsClient = apnsClient.Production()
		} else {
			apnsClient = apnsClient.Development()
		}
	}
	notifier := services.NewPushNotifier(apnsClient, cfg.APNS.Topic, userRepo)

	// Voice processing worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	transcriber := workers.NewTranscriptionClient(
		cfg.Transcription.Endpoint,
		cfg.Transcription.APIKey,
		cfg.Transcription.RequestTimeout,
	)
	voiceWorker := workers.NewVoiceWorker(
		voiceRepo,
		transcriber,
		moderationService,
		wsHub,
		notifier,
		cfg.Transcription.PollInterval,
	)
	voiceWorker.Start(workerCtx)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	photoHandler := handlers.NewPhotoHandler(photoService, uploadLimiter, wsHub)
	voiceHandler := handlers.NewVoiceHandler(voiceService)
	messageHandler := handlers.NewMessageHandler(messageService, messageLimiter)
	profileHandler := handlers.NewProfileHandler(profileService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Get("/photos", photoHandler.GetPhotos)
			r.Post("/photos", photoHandler.UploadPhoto)
			r.Delete("/photos/{photo_id}", photoHandler.DeletePhoto)
			r.Put("/photos/{photo_id}/primary", photoHandler.SetPrimaryPhoto)
			r.Put("/photos/order", photoHandler.ReorderPhotos)

			r.Post("/voice", voiceHandler.SubmitVoiceIntro)
			r.Get("/voice", voiceHandler.GetVoiceStatus)

			r.Post("/conversations/{conversation_id}/messages", messageHandler.SendMessage)

			r.Get("/profile/completion", profileHandler.GetCompletion)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopWorker()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
