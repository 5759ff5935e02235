package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/inventory"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/request"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the hospital management API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || email == "" {
				return fmt.Errorf("--username and --email are required")
			}
			if password == "" {
				// Generate one so the account is never created open.
				raw := make([]byte, 12)
				if _, err := crypto_rand.Read(raw); err != nil {
					return err
				}
				password = hex.EncodeToString(raw)
				fmt.Printf("Generated password: %s\n", password)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := &identity.User{
				Username:     username,
				Email:        email,
				PasswordHash: string(hash),
				Role:         identity.RoleAdmin,
			}
			if err := identity.NewRepoPG(pool).Create(ctx, user); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("Admin account %s (%s) created.\n", user.Username, user.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Admin username")
	createCmd.Flags().String("email", "", "Admin email")
	createCmd.Flags().String("password", "", "Password (generated when omitted)")
	cmd.AddCommand(createCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed baseline inventory items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := inventory.NewRepoPG(pool)
			items := []*inventory.Item{
				{ItemName: "Paracetamol 500mg", Category: inventory.CategoryDrug, CurrentStock: 500, Unit: "tablet", MinimumStockLevel: 100, ExpirationDate: timePtr(time.Now().AddDate(2, 0, 0))},
				{ItemName: "Surgical Gloves", Category: inventory.CategoryConsumable, CurrentStock: 1000, Unit: "pair", MinimumStockLevel: 200},
				{ItemName: "Gauze Rolls", Category: inventory.CategoryConsumable, CurrentStock: 300, Unit: "roll", MinimumStockLevel: 50},
				{ItemName: "Influenza Vaccine", Category: inventory.CategoryVaccine, CurrentStock: 120, Unit: "dose", MinimumStockLevel: 30, ExpirationDate: timePtr(time.Now().AddDate(0, 9, 0))},
				{ItemName: "Wheelchair", Category: inventory.CategoryEquipment, CurrentStock: 15, Unit: "unit", MinimumStockLevel: 3},
			}
			created := 0
			for _, item := range items {
				if err := repo.Create(ctx, item); err != nil {
					if db.IsUniqueViolation(err, "") {
						continue
					}
					return fmt.Errorf("seed %s: %w", item.ItemName, err)
				}
				created++
			}
			fmt.Printf("Seeded %d inventory item(s).\n", created)
			return nil
		},
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Development only; Validate rejects an empty secret elsewhere.
		raw := make([]byte, 32)
		if _, err := crypto_rand.Read(raw); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev JWT secret")
		}
		jwtSecret = hex.EncodeToString(raw)
		logger.Warn().Msg("JWT_SECRET not set, using a random per-run secret; sessions will not survive restarts")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Notification stack. Without an SMTP host configured (development)
	// emails land in the log instead of a mailbox.
	var emailSender notification.EmailSender
	if cfg.SMTPHost != "" {
		emailSender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	} else {
		emailSender = notification.NewLogSender(logger)
	}
	templates := notification.NewTemplateEngine()

	// Repositories
	userRepo := identity.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	appointmentRepo := appointment.NewRepoPG(pool)
	inventoryRepo := inventory.NewRepoPG(pool)
	apptRequestRepo := request.NewAppointmentRequestRepoPG(pool)
	invRequestRepo := request.NewInventoryRequestRepoPG(pool)

	// Services
	tokens := auth.NewTokenIssuer([]byte(jwtSecret), cfg.TokenTTL())
	identitySvc := identity.NewService(userRepo, tokens, emailSender, templates, identity.ServiceConfig{
		FrontendURL:       cfg.FrontendURL,
		DevReturnResetURL: cfg.ReturnResetURL(),
		AdminEmail:        cfg.AdminEmail,
		HospitalName:      "Hospital Management System",
	}, logger)
	patientSvc := patient.NewService(patientRepo)
	appointmentSvc := appointment.NewService(appointmentRepo, patientRepo, userRepo,
		emailSender, templates, db.NewTxRunner(pool), logger)
	inventorySvc := inventory.NewService(inventoryRepo)
	requestSvc := request.NewService(apptRequestRepo, invRequestRepo, userRepo,
		inventoryRepo, identitySvc, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// In claims mode the token's embedded role is trusted, skipping a store
	// round-trip per request. Lookup mode picks up role changes immediately.
	var resolver auth.IdentityResolver
	if cfg.ResolvedAuthMode() == "lookup" {
		resolver = identitySvc
	}
	e.Use(auth.Middleware(tokens, resolver, auth.AuthSkipper))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API routes
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1.Group("/auth"))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)
	request.NewHandler(requestSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
