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
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
	"github.com/Aadiaditya9421/hospital-management-system/internal/routes"
	"github.com/Aadiaditya9421/hospital-management-system/internal/services"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "hms",
		Short:        "Hospital appointment scheduling server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(createDepartmentCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

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
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("Schema migrated")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			login, _ := cmd.Flags().GetString("login")
			password, _ := cmd.Flags().GetString("password")

			svc, log, err := offlineServices()
			if err != nil {
				return err
			}
			admin, err := svc.Identity.CreateAdministrator(cmd.Context(), login, password)
			if err != nil {
				return err
			}
			log.WithField("admin_id", admin.ID).Info("Administrator created")
			return nil
		},
	}
	cmd.Flags().String("login", "", "administrator login name")
	cmd.Flags().String("password", "", "administrator password")
	_ = cmd.MarkFlagRequired("login")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createDepartmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-department",
		Short: "Create a department on behalf of an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			adminLogin, _ := cmd.Flags().GetString("admin")

			svc, log, err := offlineServices()
			if err != nil {
				return err
			}
			admin, err := svc.Identity.AdministratorByLogin(cmd.Context(), adminLogin)
			if err != nil {
				return err
			}
			caller := admin.Ref()
			dept, err := svc.Directory.CreateDepartment(cmd.Context(), &caller, name)
			if err != nil {
				return err
			}
			log.WithField("department_id", dept.ID).Info("Department created")
			return nil
		},
	}
	cmd.Flags().String("name", "", "department name")
	cmd.Flags().String("admin", "", "login name of the acting administrator")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel), nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.Open(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		LogSQL: cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return db, nil
}

// offlineServices wires the services for one-shot CLI commands. Tokens are
// never revoked from the CLI, so the in-process store is enough.
func offlineServices() (*services.Services, *logger.Logger, error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := models.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	return services.New(db, cfg, log, nil, revocation.NewMemoryStore()), log, nil
}

func newRevocationStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (revocation.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("Using in-process token revocation store")
		return revocation.NewMemoryStore(), func() {}, nil
	}
	store, err := revocation.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("addr", cfg.Redis.Addr).Info("Using Redis token revocation store")
	return store, func() { _ = store.Close() }, nil
}

func runServer() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		LogSQL: cfg.LogLevel == "debug",
	})
	if err != nil {
		log.WithError(err).Error("Error connecting to database")
		return err
	}
	log.WithField("driver", cfg.Database.Driver).Info("Connected to database")

	ctx := context.Background()
	revoked, closeRevoked, err := newRevocationStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Error connecting to revocation store")
		return err
	}
	defer closeRevoked()

	collector := metrics.NewCollector()
	svc := services.New(db, cfg, log, collector, revoked)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Deps{
		DB:       db,
		Config:   cfg,
		Logger:   log,
		Metrics:  collector,
		Revoked:  revoked,
		Services: svc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
		return err
	}
	log.Info("Server stopped")
	return nil
}
