// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/distroline/botcrm-backend/internal/auth"
	"github.com/distroline/botcrm-backend/internal/config"
	"github.com/distroline/botcrm-backend/internal/controller"
	"github.com/distroline/botcrm-backend/internal/db"
	"github.com/distroline/botcrm-backend/internal/handler"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/queue"
	"github.com/distroline/botcrm-backend/internal/repository"
	"github.com/distroline/botcrm-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration:", err)
	}

	// Init DB
	db.Init()

	userRepo := &repository.UserRepository{DB: db.DB}
	mailingRepo := &repository.MailingRepository{DB: db.DB}
	adminRepo := &repository.AdminRepository{DB: db.DB}
	activityRepo := &repository.ActivityLogRepository{DB: db.DB}
	settingRepo := &repository.SettingRepository{DB: db.DB}

	// Delivery queue. The server only publishes; cmd/worker consumes.
	var deliveryQueue queue.Queue
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Println("⚠️ RabbitMQ unavailable, deliveries will not be published:", err)
	} else {
		defer conn.Close()
		publisher, err := queue.NewAMQPPublisher(conn)
		if err != nil {
			log.Fatal("failed to set up delivery queue:", err)
		}
		deliveryQueue = publisher
	}

	mailingService := &service.MailingService{
		MailingRepo: mailingRepo,
		UserRepo:    userRepo,
		Queue:       deliveryQueue,
		Cfg:         cfg,
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiresMin)*time.Minute)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL:", err)
	}
	limiter := &auth.LoginLimiter{
		Client: redis.NewClient(redisOpts),
		Limit:  cfg.LoginRateLimitAttempts,
		Window: time.Duration(cfg.LoginRateLimitWindowMin) * time.Minute,
	}

	mailingController := &controller.MailingController{
		MailingService: mailingService,
		ActivityRepo:   activityRepo,
	}
	authHandler := &handler.AuthHandler{
		AdminRepo:    adminRepo,
		ActivityRepo: activityRepo,
		Tokens:       tokens,
		Limiter:      limiter,
	}
	userHandler := &handler.UserHandler{UserRepo: userRepo, ActivityRepo: activityRepo}
	settingsHandler := &handler.SettingsHandler{SettingRepo: settingRepo, ActivityRepo: activityRepo}
	dashboardHandler := &handler.DashboardHandler{
		UserRepo:     userRepo,
		MailingRepo:  mailingRepo,
		ActivityRepo: activityRepo,
	}
	uploadHandler := &handler.UploadHandler{Dir: cfg.UploadDir, MaxMB: cfg.MaxUploadMB}

	r := chi.NewRouter()
	r.Use(handler.Metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	r.Post("/api/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/auth/me", authHandler.Me)

		// Mailing routes
		r.Get("/api/mailings", mailingController.ListMailings)
		r.Post("/api/mailings", mailingController.CreateMailing)
		r.Get("/api/mailings/{id}", mailingController.GetMailing)
		r.Put("/api/mailings/{id}", mailingController.UpdateMailing)
		r.Delete("/api/mailings/{id}", mailingController.DeleteMailing)
		r.Post("/api/mailings/{id}/preview", mailingController.PreviewMailing)
		r.Post("/api/mailings/{id}/test-send", mailingController.TestSendMailing)
		r.Get("/api/mailings/{id}/stats", mailingController.MailingStats)

		r.Get("/api/settings", settingsHandler.GetSettings)
		r.Put("/api/settings", settingsHandler.PutSettings)

		r.Get("/api/dashboard/stats", dashboardHandler.Stats)
		r.Get("/api/dashboard/users-chart", dashboardHandler.UsersChart)
		r.Get("/api/dashboard/activity", dashboardHandler.Activity)

		r.Post("/api/uploads", uploadHandler.Upload)

		// Sending and user management need an elevated role
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRoles(model.RoleSuperadmin, model.RoleAdmin))

			r.Post("/api/mailings/{id}/send", mailingController.SendMailing)
			r.Post("/api/mailings/{id}/retry", mailingController.RetryMailing)
			r.Post("/api/mailings/{id}/cancel", mailingController.CancelMailing)

			r.Get("/api/users", userHandler.ListUsers)
			r.Post("/api/users", userHandler.CreateUser)
			r.Get("/api/users/export", userHandler.ExportUsers)
			r.Get("/api/users/{id}", userHandler.GetUser)
			r.Put("/api/users/{id}", userHandler.UpdateUser)
			r.Delete("/api/users/{id}", userHandler.DeleteUser)
		})
	})

	// Background poller promotes due scheduled mailings.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := service.NewPoller(mailingService, cfg.PollInterval)
	go poller.Start(ctx)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		log.Println("🚀 Server running on :" + cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("⚠️ server shutdown:", err)
	}
}
