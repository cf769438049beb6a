package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medibook-server/internal/appointments"
	"medibook-server/internal/config"
	"medibook-server/internal/handlers"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Config       *config.Config
	Appointments *appointments.Service
	Accounts     handlers.AccountStore
	Providers    handlers.ProviderProfiles
	Users        handlers.UserAccounts
	Specialties  handlers.SpecialtyCatalog
	Gatherer     prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Config)
	paging := handlers.Paging{
		DefaultLimit: deps.Config.Pagination.DefaultLimit,
		MaxLimit:     deps.Config.Pagination.MaxLimit,
	}
	providerHandler := handlers.NewProviderHandler(deps.Providers, paging)
	userHandler := handlers.NewUserHandler(deps.Users, paging)
	specialtyHandler := handlers.NewSpecialtyHandler(deps.Specialties)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Appointments)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/patient/register", authHandler.RegisterPatient)
			authRoutes.POST("/patient/login", authHandler.LoginPatient)
			authRoutes.POST("/provider/register", authHandler.RegisterProvider)
			authRoutes.POST("/provider/login", authHandler.LoginProvider)
		}
		public.GET("/providers", providerHandler.SearchProviders)
		public.GET("/providers/top-rated", providerHandler.GetTopRatedProviders)
		public.GET("/providers/specialty/:specialty", providerHandler.GetProvidersBySpecialty)
		public.GET("/providers/:id", providerHandler.GetProviderByID)

		public.GET("/specialties", specialtyHandler.GetSpecialties)
		public.GET("/specialties/:id", specialtyHandler.GetSpecialtyByID)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config.JWTSecret))
	{
		providerRoutes := private.Group("/providers")
		{
			providerRoutes.GET("/me", middleware.RoleAuthMiddleware(models.RoleProvider), providerHandler.GetCurrentProvider)
			providerRoutes.PUT("/me", middleware.RoleAuthMiddleware(models.RoleProvider), providerHandler.UpdateCurrentProvider)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/me", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), userHandler.GetCurrentUser)
			userRoutes.PUT("/me", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), userHandler.UpdateCurrentUser)
			userRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), userHandler.GetUsers)
			userRoutes.GET("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), userHandler.GetUserByID)
			userRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), userHandler.DeleteUser)
		}

		specialtyRoutes := private.Group("/specialties", middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			specialtyRoutes.POST("", specialtyHandler.CreateSpecialty)
			specialtyRoutes.PUT("/:id", specialtyHandler.UpdateSpecialty)
			specialtyRoutes.DELETE("/:id", specialtyHandler.DeleteSpecialty)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.GetAllAppointments)
			appointmentRoutes.GET("/patient", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.GetPatientAppointments)
			appointmentRoutes.GET("/provider", middleware.RoleAuthMiddleware(models.RoleProvider), appointmentHandler.GetProviderAppointments)

			// Ownership is checked by the service
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PUT("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.PUT("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.POST("/:id/feedback", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.AddAppointmentFeedback)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
