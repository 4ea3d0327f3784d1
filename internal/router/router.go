package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/config"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/handler"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/mailer"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/middleware"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/notify"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/pipeline"
)

// SetupRouter configures the Gin engine and the API route table.
func SetupRouter(cfg *config.Config, db *gorm.DB, log *slog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	mail := mailer.New(cfg.Mail.BaseURL, cfg.Mail.APIKey)
	dispatcher := notify.NewDispatcher(log)
	engine := pipeline.NewService(db, log, dispatcher, mail)

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours, mail)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	protected.GET("/me", authHandler.Me)
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db))

	accountHandler := handler.NewAccountHandler(db, cfg.App.DefaultCurrency)
	protected.POST("/accounts", accountHandler.Create)
	protected.GET("/accounts", accountHandler.List)
	protected.GET("/accounts/:id", accountHandler.Get)
	protected.PUT("/accounts/:id", accountHandler.Update)
	protected.DELETE("/accounts/:id", accountHandler.Delete)

	categoryHandler := handler.NewCategoryHandler(db)
	protected.POST("/categories", categoryHandler.Create)
	protected.GET("/categories", categoryHandler.List)
	protected.PUT("/categories/:id", categoryHandler.Update)
	protected.DELETE("/categories/:id", categoryHandler.Delete)

	budgetHandler := handler.NewBudgetHandler(db)
	protected.POST("/budgets", budgetHandler.Create)
	protected.GET("/budgets", budgetHandler.List)
	protected.GET("/budgets/:id", budgetHandler.Get)
	protected.PUT("/budgets/:id", budgetHandler.Update)
	protected.DELETE("/budgets/:id", budgetHandler.Delete)

	goalHandler := handler.NewGoalHandler(db, cfg.App.DefaultCurrency)
	protected.POST("/goals", goalHandler.Create)
	protected.GET("/goals", goalHandler.List)
	protected.GET("/goals/:id", goalHandler.Get)
	protected.PUT("/goals/:id", goalHandler.Update)
	protected.DELETE("/goals/:id", goalHandler.Delete)

	ruleHandler := handler.NewRuleHandler(db, log)
	protected.POST("/rules", ruleHandler.Create)
	protected.GET("/rules", ruleHandler.List)
	protected.PUT("/rules/:id", ruleHandler.Update)
	protected.DELETE("/rules/:id", ruleHandler.Delete)

	txHandler := handler.NewTransactionHandler(db, engine, log, cfg.App.PageSize)
	protected.POST("/transactions", txHandler.Create)
	protected.POST("/transactions/transfer", txHandler.Transfer)
	protected.GET("/transactions", txHandler.List)
	protected.GET("/transactions/:id", txHandler.Get)
	protected.GET("/transactions/:id/plan", txHandler.GetPlan)
	protected.DELETE("/transactions/:id", txHandler.Delete)

	notificationHandler := handler.NewNotificationHandler(db, cfg.App.PageSize)
	protected.GET("/notifications", notificationHandler.List)
	protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

	analyticsHandler := handler.NewAnalyticsHandler(db, cfg.App.DefaultCurrency)
	protected.GET("/stats/monthly", analyticsHandler.Monthly)

	exportHandler := handler.NewExportHandler(db)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	logHandler := handler.NewLogHandler(db, cfg.App.PageSize)
	protected.GET("/logs", logHandler.ListLogs)

	return r
}
