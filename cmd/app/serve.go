package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"hospital-service/internal/blob"
	"hospital-service/internal/clock"
	"hospital-service/internal/config"
	"hospital-service/internal/connectivity"
	adminAnalytics "hospital-service/internal/http-server/handlers/admin/analytics"
	adminDashboard "hospital-service/internal/http-server/handlers/admin/dashboard"
	adminProfileGet "hospital-service/internal/http-server/handlers/admin/profile/get"
	adminProfileUpdate "hospital-service/internal/http-server/handlers/admin/profile/update"
	settingsGet "hospital-service/internal/http-server/handlers/admin/settings/get"
	settingsUpdate "hospital-service/internal/http-server/handlers/admin/settings/update"
	apptDashboard "hospital-service/internal/http-server/handlers/appointments/dashboard"
	apptGet "hospital-service/internal/http-server/handlers/appointments/get"
	apptJoin "hospital-service/internal/http-server/handlers/appointments/join"
	apptLive "hospital-service/internal/http-server/handlers/appointments/live"
	apptNotes "hospital-service/internal/http-server/handlers/appointments/notes"
	apptStatus "hospital-service/internal/http-server/handlers/appointments/status"
	adminLogin "hospital-service/internal/http-server/handlers/auth/admin/login"
	doctorLogin "hospital-service/internal/http-server/handlers/auth/doctor/login"
	"hospital-service/internal/http-server/handlers/auth/logout"
	"hospital-service/internal/http-server/handlers/auth/me"
	doctorCreate "hospital-service/internal/http-server/handlers/doctors/create"
	doctorDelete "hospital-service/internal/http-server/handlers/doctors/delete"
	doctorGet "hospital-service/internal/http-server/handlers/doctors/get"
	doctorUpdate "hospital-service/internal/http-server/handlers/doctors/update"
	"hospital-service/internal/http-server/handlers/health"
	profileGet "hospital-service/internal/http-server/handlers/profile/get"
	profileImage "hospital-service/internal/http-server/handlers/profile/image"
	profileUpdate "hospital-service/internal/http-server/handlers/profile/update"
	slotCreate "hospital-service/internal/http-server/handlers/time_slots/create"
	slotDelete "hospital-service/internal/http-server/handlers/time_slots/delete"
	slotGet "hospital-service/internal/http-server/handlers/time_slots/get"
	slotUpdate "hospital-service/internal/http-server/handlers/time_slots/update"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/lock"
	"hospital-service/internal/models"
	"hospital-service/internal/outbox"
	svc "hospital-service/internal/service"
	"hospital-service/internal/session"
	"hospital-service/internal/storage/postgres"
	"hospital-service/internal/storage/redis"
	"hospital-service/pkg/middleware/mwLogger"
	"hospital-service/pkg/sl"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap()
			return serve(cfg, log)
		},
	}
}

func serve(cfg *config.Config, log *slog.Logger) error {
	log.Info("Starting API", slog.String("env", cfg.Env))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.New(loc)
	models.SetDateLocation(loc)

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error("Failed to close storage", sl.Err(err))
		} else {
			log.Info("Storage closed")
		}
	}()

	feed, err := postgres.NewFeed(log, cfg.StoragePath, storage)
	if err != nil {
		log.Error("Failed to init appointments feed", sl.Err(err))
		return err
	}
	defer feed.Close()

	redisClient, err := redis.New(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis", sl.Err(err))
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis", sl.Err(err))
		} else {
			log.Info("Redis closed")
		}
	}()

	blobs, err := blob.NewLocalStore(cfg.Blob.Dir, cfg.Blob.PublicBaseURL)
	if err != nil {
		log.Error("Failed to init blob store", sl.Err(err))
		return err
	}

	sessions := session.NewRedisStore(redisClient)
	secret := []byte(cfg.Auth.JWTSecret)

	conn := connectivity.New(log, storage, connectivity.WithMaxAttempts(cfg.Connectivity.MaxAttempts))

	service := svc.NewService(log, svc.Deps{
		Store:          storage,
		Locker:         lock.NewRedisLock(redisClient),
		Conn:           conn,
		Outbox:         outbox.New(clk),
		Cache:          outbox.NewCache(),
		AdminSessions:  session.NewManager(session.Admin, secret, cfg.Auth.SessionTTL, sessions, clk),
		DoctorSessions: session.NewManager(session.Doctor, secret, cfg.Auth.SessionTTL, sessions, clk),
		Blobs:          blobs,
		Feed:           feed,
		Clock:          clk,
	}, svc.Options{
		MeetingBaseURL: cfg.MeetingBaseURL,
		MaxImageBytes:  cfg.Blob.MaxImageBytes,
	})

	conn.OnReconnect(service.ReplayOutbox)
	conn.OnHealthy(service.ReplayOutbox)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := conn.Start(ctx); err != nil {
			log.Warn("Starting without backend connection", sl.Err(err))
		}
	}()

	probe := connectivity.NewProbe(log, conn, cfg.Connectivity.ProbeInterval)
	probe.Start()
	defer probe.Stop(time.Second)

	router := newRouter(log, service, blobs, cfg.Blob.MaxImageBytes)

	// No write timeout: the live appointments socket stays open.
	serv := &http.Server{
		Addr:        cfg.Address,
		Handler:     router,
		ReadTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	var serveErr error

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case serveErr = <-serverErrCh:
		if serveErr != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(serveErr))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if pending := service.Health().PendingWrites; pending > 0 {
		log.Warn("Unsynced slot changes dropped on shutdown", slog.Int("pending", pending))
	}

	log.Info("Shutdown finished, server stopped")

	return serveErr
}

func newRouter(log *slog.Logger, service *svc.Service, blobs *blob.LocalStore, maxImageBytes int64) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// Blobs keep their own content type.
	router.Handle("/blobs/*", http.StripPrefix("/blobs/", blob.FileServer(blobs.Dir())))

	router.Group(func(r chi.Router) {
		r.Use(CORS)

		r.Get("/health", health.New(service))

		// Admin portal
		r.Post("/auth/admin/login", adminLogin.New(log, service))
		r.Post("/auth/admin/logout", logout.New(log, service.AdminLogout))

		r.Group(func(r chi.Router) {
			r.Use(mwAuth.New(log, service.AdminSession))

			r.Get("/auth/admin/me", me.New())

			r.Get("/admin/dashboard", adminDashboard.New(log, service))
			r.Get("/admin/analytics", adminAnalytics.New(log, service))
			r.Get("/admin/profile", adminProfileGet.New(log, service))
			r.Put("/admin/profile", adminProfileUpdate.New(log, service))
			r.Get("/admin/settings", settingsGet.New(log, service))
			r.Put("/admin/settings", settingsUpdate.New(log, service))

			r.Get("/admin/doctors", doctorGet.New(log, service))
			r.Post("/admin/doctors", doctorCreate.New(log, service))
			r.Put("/admin/doctors/{id}", doctorUpdate.New(log, service))
			r.Delete("/admin/doctors/{id}", doctorDelete.New(log, service))
		})

		// Doctor portal
		r.Post("/auth/doctor/login", doctorLogin.New(log, service))
		r.Post("/auth/doctor/logout", logout.New(log, service.DoctorLogout))

		r.Group(func(r chi.Router) {
			r.Use(mwAuth.New(log, service.DoctorSession))

			r.Get("/auth/doctor/me", me.New())

			r.Get("/doctor/dashboard", apptDashboard.New(log, service))
			r.Get("/doctor/appointments", apptGet.New(log, service.DoctorAppointments))
			r.Get("/doctor/appointments/online", apptGet.New(log, service.OnlineConsultations))
			r.Get("/doctor/appointments/live", apptLive.New(log, service))
			r.Put("/doctor/appointments/{id}/status", apptStatus.New(log, service))
			r.Put("/doctor/appointments/{id}/notes", apptNotes.New(log, service))
			r.Post("/doctor/appointments/{id}/join", apptJoin.New(log, service))

			r.Get("/doctor/profile", profileGet.New(log, service))
			r.Put("/doctor/profile", profileUpdate.New(log, service))
			r.Post("/doctor/profile/image", profileImage.New(log, service, maxImageBytes))

			r.Get("/doctor/time-slots", slotGet.New(log, service))
			r.Post("/doctor/time-slots", slotCreate.New(log, service))
			r.Put("/doctor/time-slots/{id}", slotUpdate.New(log, service))
			r.Delete("/doctor/time-slots/{id}", slotDelete.New(log, service))
		})
	})

	return router
}
