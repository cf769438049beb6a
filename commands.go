package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"medibook-server/internal/appointments"
	"medibook-server/internal/cache"
	"medibook-server/internal/config"
	"medibook-server/internal/handlers"
	"medibook-server/internal/metrics"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/routes"
	"medibook-server/internal/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			// InitDB migrates on open.
			if _, err := openDB(cfg); err != nil {
				return err
			}
			logger.Info().Str("driver", cfg.Database.Driver).Msg("schema migrated")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || len(password) < 8 {
				return errors.New("--email and a --password of at least 8 characters are required")
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(db)

			ctx := cmd.Context()
			if _, err := users.FindUserByEmail(ctx, email); err == nil {
				return fmt.Errorf("user %s already exists", email)
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			admin := models.User{Email: email, FirstName: "Admin", Role: models.RoleAdmin}
			if err := admin.SetPassword(password); err != nil {
				return err
			}
			if err := users.CreateUser(ctx, &admin); err != nil {
				return err
			}
			logger.Info().Str("id", admin.ID).Str("email", email).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin login email")
	cmd.Flags().String("password", "", "Admin password")
	return cmd
}

// accountStore joins the user and provider repositories for the auth handlers.
type accountStore struct {
	*repository.UserRepository
	*repository.ProviderRepository
}

func runServer() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	utils.SetExposeErrorDetail(cfg.IsDevelopment())

	var (
		apptStore   appointments.AppointmentStore
		providers   cache.ProviderStore
		accounts    handlers.AccountStore
		users       handlers.UserAccounts
		specialties handlers.SpecialtyCatalog
	)
	if cfg.Database.Driver == "memory" {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		apptStore, providers, accounts, users, specialties = store, store, store, store, store
	} else {
		db, err := openDB(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		providerRepo := repository.NewProviderRepository(db)
		userRepo := repository.NewUserRepository(db)
		apptStore = repository.NewAppointmentRepository(db)
		providers = providerRepo
		accounts = accountStore{userRepo, providerRepo}
		users = userRepo
		specialties = repository.NewSpecialtyRepository(db)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable; provider lookups fall back to the database")
		}
		providers = cache.NewCachedProviders(providers, client, cfg.Redis.TTL, logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := appointments.NewService(apptStore, providers, appointments.Options{
		DefaultLimit: cfg.Pagination.DefaultLimit,
		MaxLimit:     cfg.Pagination.MaxLimit,
		Logger:       logger,
		Metrics:      metrics.NewLifecycleMetrics(registry),
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		Config:       cfg,
		Appointments: service,
		Accounts:     accounts,
		Providers:    providers,
		Users:        users,
		Specialties:  specialties,
		Gatherer:     registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "memory" {
		return nil, errors.New("DB_DRIVER=memory has no database to open")
	}
	return models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
}
