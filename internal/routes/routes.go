package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/handlers"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/middleware"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
	"github.com/Aadiaditya9421/hospital-management-system/internal/services"
)

// Deps is everything the routes need.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Collector
	Revoked  revocation.Store
	Services *services.Services
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Services.Identity, deps.Services.Sessions)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Services.Ledger)
	directoryHandler := handlers.NewDirectoryHandler(deps.Services.Directory)

	router.Use(middleware.RequestLogger(deps.Logger), middleware.Metrics(deps.Metrics))

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config, deps.Revoked, deps.Logger))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		// Booking directory - accessible by all authenticated principals
		private.GET("/clinicians", directoryHandler.GetDirectory)

		// Ownership is enforced by the ledger for every appointment route.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/stats", appointmentHandler.GetStats)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.POST("/:id/complete", middleware.RoleAuthMiddleware(models.RoleClinician), appointmentHandler.CompleteAppointment)
			appointmentRoutes.POST("/:id/cancel", middleware.RoleAuthMiddleware(models.RoleClinician, models.RolePatient), appointmentHandler.CancelAppointment)
		}

		// Admin-only routes
		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("/summary", directoryHandler.GetSummary)

			adminRoutes.GET("/departments", directoryHandler.GetDepartments)
			adminRoutes.POST("/departments", directoryHandler.CreateDepartment)
			adminRoutes.PUT("/departments/:id", directoryHandler.UpdateDepartment)
			adminRoutes.DELETE("/departments/:id", directoryHandler.DeleteDepartment)

			adminRoutes.GET("/clinicians", directoryHandler.GetClinicians)
			adminRoutes.POST("/clinicians", directoryHandler.CreateClinician)
			adminRoutes.PUT("/clinicians/:id", directoryHandler.UpdateClinician)
			adminRoutes.DELETE("/clinicians/:id", directoryHandler.DeleteClinician)

			adminRoutes.GET("/patients", directoryHandler.GetPatients)
			adminRoutes.DELETE("/patients/:id", directoryHandler.DeletePatient)
		}
	}

	// Health check reports database reachability
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := models.Ping(ctx, deps.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
}
