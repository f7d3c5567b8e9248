package http

import (
	"github.com/mrlokans/library/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database Pinger
	Redis    ContextPinger // optional, probed by /health when set

	Lender Lender
	Loans  LoanChecker

	// Catalog, accounts and audit trail
	Catalog CatalogStore
	Users   UserStore
	Audit   AuditLog
	Events  EventLogger

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// ReadOnly rejects write requests with 503
	ReadOnly bool

	// Application info
	Version string
}
