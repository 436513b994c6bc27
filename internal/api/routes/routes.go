package routes

import (
	"civic-portal/internal/api/handlers"
	"civic-portal/internal/api/middleware"
	"civic-portal/internal/api/session"
	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/metrics"
	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators shared by every request.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Gateway *store.Gateway
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// Notifier delivers password reset links; nil logs them.
	Notifier services.ResetNotifier
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	cfg := deps.Config
	notifier := deps.Notifier
	if notifier == nil {
		notifier = services.LogNotifier{Log: deps.Logger}
	}

	// Initialize services
	authService := services.NewAuthService(deps.DB, cfg)
	resetService := services.NewResetService(deps.DB, authService, cfg, notifier)
	auditService := services.NewAuditService(deps.DB)
	reportService := services.NewReportService(deps.DB)
	complaintService := services.NewComplaintService(deps.DB)
	contactService := services.NewContactService(deps.DB)
	contentService := services.NewContentService(deps.DB)
	userService := services.NewUserService(deps.DB, authService)
	statsService := services.NewStatsService(deps.Gateway, deps.Logger)
	exportService := services.NewExportService(deps.Gateway)
	uploads := services.NewUploadStore(cfg.Uploads)

	// Initialize handlers
	sm := session.NewManager(cfg.Session)
	page := handlers.NewPage(sm, auditService, deps.Logger)
	authHandler := handlers.NewAuthHandler(page, authService, resetService, cfg)
	profileHandler := handlers.NewProfileHandler(page, authService, reportService, statsService)
	reportHandler := handlers.NewReportHandler(page, reportService, uploads)
	complaintHandler := handlers.NewComplaintHandler(page, complaintService)
	contentHandler := handlers.NewContentHandler(page, contentService, contactService, statsService)
	userHandler := handlers.NewUserHandler(page, userService)
	adminHandler := handlers.NewAdminHandler(page, handlers.AdminServices{
		Reports:    reportService,
		Complaints: complaintService,
		Contacts:   contactService,
		Content:    contentService,
		Users:      userService,
		Stats:      statsService,
		Export:     exportService,
	})
	monitoringHandler := handlers.NewMonitoringHandler(page, deps.DB, deps.Gateway, cfg, statsService)

	// Middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.BodyLimit(sm, cfg.Uploads.MaxBytes))
	r.Use(middleware.LoadSession(sm, authService, deps.Logger))

	r.Static("/static", "static")
	r.Static("/uploads", cfg.Uploads.Dir)

	r.GET("/health", monitoringHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", func(c *gin.Context) {
			if sqlDB, err := deps.DB.DB(); err == nil {
				deps.Metrics.RecordDBPoolStats(sqlDB.Stats())
			}
			deps.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
		})
	}

	// Public pages
	r.GET("/", contentHandler.Home)
	r.GET("/index", contentHandler.Home)
	r.GET("/servicios", contentHandler.Services)
	r.GET("/servicio/:id", contentHandler.Service)
	r.GET("/proyectos", contentHandler.Projects)
	r.GET("/proyecto/:id", contentHandler.Project)
	r.GET("/avisos", contentHandler.Notices)
	r.GET("/aviso/:id", contentHandler.Notice)
	r.GET("/contacto", contentHandler.ContactPage)
	r.POST("/contacto", contentHandler.Contact)
	r.GET("/nosotros", contentHandler.About)
	r.GET("/transparencia", contentHandler.Transparency)

	// Auth routes (public)
	r.GET("/login", authHandler.LoginPage)
	r.POST("/login", authHandler.Login)
	r.GET("/register", authHandler.RegisterPage)
	r.POST("/register", authHandler.Register)
	r.GET("/logout", authHandler.Logout)
	r.GET("/olvido-contrasena", authHandler.ForgotPasswordPage)
	r.POST("/olvido-contrasena", authHandler.ForgotPassword)
	r.GET("/restablecer-contrasena/:token", authHandler.ResetPasswordPage)
	r.POST("/restablecer-contrasena/:token", authHandler.ResetPassword)

	api := r.Group("/api")
	{
		api.GET("/check-email", authHandler.CheckEmail)
		api.GET("/estadisticas", monitoringHandler.GetStats)
	}

	// Signed-in citizens and admins
	protected := r.Group("")
	protected.Use(middleware.RequireSession(sm, 0))
	{
		protected.GET("/perfil", profileHandler.Profile)
		protected.POST("/actualizar-perfil", profileHandler.UpdateProfile)
		protected.POST("/cambiar-contrasena", profileHandler.ChangePassword)

		protected.GET("/reportar", reportHandler.NewReport)
		protected.POST("/reportar", reportHandler.CreateReport)
		protected.GET("/mis_reportes", reportHandler.MyReports)
		protected.GET("/reporte/:id", reportHandler.Report)
		protected.POST("/reporte/:id/comentar", reportHandler.Comment)

		protected.GET("/denunciar", complaintHandler.NewComplaint)
		protected.POST("/denunciar", complaintHandler.CreateComplaint)
		protected.GET("/mis_denuncias", complaintHandler.MyComplaints)
		protected.GET("/denuncia/:id", complaintHandler.Complaint)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RequireSession(sm, models.RoleAdmin))
	{
		admin.GET("", adminHandler.Dashboard)

		admin.GET("/usuarios", userHandler.GetUsers)
		admin.GET("/usuarios/:id/editar", userHandler.EditUserPage)
		admin.POST("/usuarios/:id/editar", userHandler.UpdateUser)

		admin.GET("/reportes", adminHandler.Reports)
		admin.GET("/reportes/:id/editar", adminHandler.EditReportPage)
		admin.POST("/reportes/:id/editar", adminHandler.UpdateReport)

		admin.GET("/denuncias", adminHandler.Complaints)
		admin.GET("/denuncias/:id/editar", adminHandler.EditComplaintPage)
		admin.POST("/denuncias/:id/editar", adminHandler.UpdateComplaint)

		admin.GET("/contactos", adminHandler.Contacts)
		admin.POST("/contactos/:id/responder", adminHandler.ReplyContact)

		admin.GET("/exportar/:tipo", adminHandler.Export)
		admin.POST("/proyectos", adminHandler.CreateProject)
		admin.POST("/avisos", adminHandler.CreateNotice)
	}

	debug := r.Group("/debug")
	debug.Use(middleware.RequireSession(sm, models.RoleAdmin))
	{
		debug.GET("/db", monitoringHandler.DebugDB)
		debug.GET("/db-structure", monitoringHandler.DebugDBStructure)
	}

	r.NoRoute(page.NotFound)
}
