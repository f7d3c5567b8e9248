// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Lending
//
//   - http.Lender: borrow, return and loan listings (implemented by borrowing.Service)
//   - http.LoanChecker: active-loan guard for account deletion
//   - borrowing.EventRecorder: receives every borrow and return outcome
//
// ## Data Access
//
//   - http.CatalogStore: catalog listing and management (database/books)
//   - http.UserStore: profile reads, edits and deletion (database/users)
//   - http.AuditLog: audit event listing (audit.Service, database/audit)
//
// ## Authentication
//
//   - auth.LoginLimiter: login throttling, in-memory or Redis backed
//   - auth.Notifier: activation and password reset delivery
//   - auth.AccountEvents: login and account audit records
//
// ## Background Jobs
//
//   - tasks.AuditEventCleaner: retention cleanup target
//   - scheduler.CleanupEnqueuer: puts cleanup runs on the task queue
//
// Compile-time checks for all of the above live in checks.go.
package interfaces
