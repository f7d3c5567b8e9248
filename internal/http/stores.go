package http

import (
	"context"

	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// This file collects the interfaces the controllers depend on. Each
// controller takes only the one it uses, which keeps the tests on small fakes.

// Lender is the borrowing workflow used by the rent routes.
type Lender interface {
	Borrow(ctx context.Context, userID string, bookID uint) (*borrowing.Receipt, error)
	Return(ctx context.Context, userID string, bookID uint) error
	ListActive(ctx context.Context, userID string) ([]entities.Loan, error)
	ListHistory(ctx context.Context, userID string) ([]entities.Loan, error)
}

// LoanChecker answers whether a user still holds books.
type LoanChecker interface {
	HasActiveLoans(ctx context.Context, userID string) (bool, error)
}

// CatalogStore is the catalog management surface.
type CatalogStore interface {
	ListBooks(params books.ListParams) ([]entities.Book, int64, error)
	GetBookDetails(id uint) (*entities.Book, error)
	AddBook(input books.NewBook) (*entities.Book, error)
	DeleteBook(id uint) error
}

// UserStore covers profile reads, edits and account deletion.
type UserStore interface {
	GetUserByID(id string) (*entities.User, error)
	UpdateProfile(id string, patch users.ProfilePatch) (*entities.User, error)
	DeleteUser(id string) error
}

// AuditLog lists recorded events.
type AuditLog interface {
	ListEvents(filter audit.Filter) ([]entities.AuditEvent, int64, error)
}

// EventLogger records catalog and account changes in the audit trail.
type EventLogger interface {
	LogCatalog(userID, action string, bookID uint, title string)
	LogAccount(userID, action, description string, metadata map[string]any)
	LogDelete(actorID, entityType, entityID, entityName string)
}

type nopEvents struct{}

func (nopEvents) LogCatalog(string, string, uint, string)           {}
func (nopEvents) LogAccount(string, string, string, map[string]any) {}
func (nopEvents) LogDelete(string, string, string, string)          {}

func eventsOrNop(e EventLogger) EventLogger {
	if e == nil {
		return nopEvents{}
	}
	return e
}
