package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/logging"
	"github.com/mrlokans/library/internal/readonly"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// AuthMiddleware is required; everything under /api except the catalog
// reads and the account routes needs an authenticated caller.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(logging.RequestID())
	router.Use(readonly.NewMiddleware(cfg.ReadOnly).Handler())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if cfg.SessionManager != nil && len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, auth.SessionCookieName, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	mw := cfg.AuthMiddleware
	router.Use(mw.Handler())

	health := NewHealthController(cfg.Database, cfg.Redis, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(api)
	}

	// Borrowing
	rent := NewRentController(cfg.Lender)
	rentGroup := api.Group("/rent", mw.RequireAuth())
	rentGroup.POST("", rent.Borrow)
	rentGroup.POST("/return", rent.Return)
	rentGroup.GET("/borrowed", rent.Borrowed)
	rentGroup.GET("/history", rent.History)

	// Catalog
	if cfg.Catalog != nil {
		booksController := NewBooksController(cfg.Catalog, cfg.Events)
		api.GET("/books", booksController.ListBooks)
		api.GET("/books/:id", booksController.GetBook)
		admin := api.Group("", mw.RequireAuth(), mw.RequireRole(entities.UserRoleAdmin))
		admin.POST("/books", booksController.AddBook)
		admin.DELETE("/books/:id", booksController.DeleteBook)
	}

	// Accounts
	if cfg.Users != nil {
		usersController := NewUsersController(cfg.Users, cfg.Loans, cfg.Events)
		usersGroup := api.Group("/users", mw.RequireAuth())
		usersGroup.GET("/me", usersController.Me)
		usersGroup.PUT("/:id", usersController.UpdateProfile)
		usersGroup.DELETE("/:id", usersController.DeleteUser)
	}

	// Audit trail
	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/logs", mw.RequireAuth(), mw.RequireRole(entities.UserRoleAdmin), auditController.ListEvents)
	}

	return router
}
