package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Borrowing
// =============================================================================

var _ http.Lender = (*borrowing.Service)(nil)
var _ http.LoanChecker = (*borrowing.Service)(nil)
var _ borrowing.EventRecorder = (*audit.Service)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.CatalogStore = (*books.Repository)(nil)
var _ http.UserStore = (*users.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ http.AuditLog = (*audit.Service)(nil)
var _ http.AuditLog = (*auditrepo.Repository)(nil)
var _ http.EventLogger = (*audit.Service)(nil)
var _ auth.AccountEvents = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Authentication
// =============================================================================

var _ auth.LoginLimiter = (*auth.RateLimiter)(nil)
var _ auth.LoginLimiter = (*auth.RedisRateLimiter)(nil)
var _ http.ContextPinger = (*auth.RedisRateLimiter)(nil)
var _ auth.Notifier = auth.LogNotifier{}

// =============================================================================
// Background Jobs
// =============================================================================

var _ scheduler.CleanupEnqueuer = (*tasks.Client)(nil)
