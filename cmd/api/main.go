package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/greensretreat/ggr-bookings/internal/http/handlers"
	httpmw "github.com/greensretreat/ggr-bookings/internal/http/middleware"
	"github.com/greensretreat/ggr-bookings/internal/platform/mailer"
	"github.com/greensretreat/ggr-bookings/internal/platform/notify"
	"github.com/greensretreat/ggr-bookings/internal/repo/postgres"
	"github.com/greensretreat/ggr-bookings/internal/service"
	"github.com/greensretreat/ggr-bookings/pkg/config"
	"github.com/greensretreat/ggr-bookings/pkg/database"
	"github.com/greensretreat/ggr-bookings/pkg/events"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
	mw "github.com/greensretreat/ggr-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var bus events.EventBus
	bus, err = events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail, cfg.Server.PublicURL)
	}

	reservationsRepo := postgres.NewReservationsRepo(pool)
	cottagesRepo := postgres.NewCottagesRepo(pool)
	adminsRepo := postgres.NewAdminsRepo(pool)

	// Guest emails are sent off the request path by the notify consumer.
	consumer := notify.NewConsumer(bus, mail, reservationsRepo, cottagesRepo)
	if err := consumer.Start(); err != nil {
		logger.Error("Failed to start notify consumer", "error", err)
		os.Exit(1)
	}

	bookingService := service.NewBookingService(reservationsRepo, cottagesRepo, bus)
	authService := service.NewAuthService(adminsRepo, cfg)

	h := handlers.New(bookingService, authService, cfg)

	bookingLimiter := httpmw.NewRateLimiter(redisClient, httpmw.RateLimitConfig{
		Requests: cfg.RateLimit.BookingRequests,
		Window:   cfg.RateLimit.BookingWindow,
		KeyFunc:  httpmw.ClientIPKeyFunc,
	})

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		// Guest-facing booking flow
		r.Get("/cottages", h.ListCottages)
		r.Get("/cottages/{id}/availability", h.GetAvailability)
		r.With(bookingLimiter.Middleware()).Post("/bookings", h.CreateBooking)
		r.Get("/bookings/{id}", h.GetBookingDetails)

		// Admin back office
		r.Post("/admin/login", h.Login)
		r.Route("/admin/bookings", func(r chi.Router) {
			r.Use(h.RequireJWT("admin"))
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateAdminBooking)
			r.Get("/{id}", h.GetBooking)
			r.Put("/{id}", h.UpdateBooking)
			r.Patch("/{id}/status", h.UpdateBookingStatus)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
