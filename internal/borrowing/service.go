// Package borrowing moves books between readers and the shelf.
//
// Every Borrow and Return runs as one transaction that touches the loan
// ledger, the book's availability and the user's counters together, so the
// three tables never disagree:
//
//   - a book is unavailable exactly when one borrowed loan references it
//   - current_borrowed equals the user's borrowed loan count and stays
//     within the limit
//
// # Usage
//
//	svc := borrowing.NewService(borrowing.Deps{
//		DB:         db,
//		Books:      books.NewRepository(db),
//		Loans:      loans.NewRepository(db),
//		Users:      users.NewRepository(db),
//		Policy:     borrowing.LimitPolicy{Limit: 5},
//		LoanPeriod: 14 * 24 * time.Hour,
//	})
//	receipt, err := svc.Borrow(ctx, userID, bookID)
package borrowing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

const DefaultLoanPeriod = 14 * 24 * time.Hour

// EventRecorder receives the outcome of every borrow and return attempt.
type EventRecorder interface {
	LogBorrow(userID string, bookID uint, title string, err error)
	LogReturn(userID string, bookID uint, title string, err error)
}

// Receipt confirms a successful borrow.
type Receipt struct {
	LoanID     string
	BookID     uint
	BorrowedAt time.Time
	DueDate    time.Time
}

// Deps wires a Service. Now and Events are optional.
type Deps struct {
	DB         *gorm.DB
	Books      *books.Repository
	Loans      *loans.Repository
	Users      *users.Repository
	Policy     LimitPolicy
	LoanPeriod time.Duration
	Now        func() time.Time
	Events     EventRecorder
}

type Service struct {
	db     *gorm.DB
	books  *books.Repository
	loans  *loans.Repository
	users  *users.Repository
	policy LimitPolicy
	period time.Duration
	now    func() time.Time
	events EventRecorder
}

func NewService(d Deps) *Service {
	period := d.LoanPeriod
	if period <= 0 {
		period = DefaultLoanPeriod
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:     d.DB,
		books:  d.Books,
		loans:  d.Loans,
		users:  d.Users,
		policy: d.Policy,
		period: period,
		now:    now,
		events: d.Events,
	}
}

// Limit returns the configured borrow cap.
func (s *Service) Limit() int {
	return s.policy.Limit
}

// Borrow lends the book to the user. The checks run in a fixed order: user
// exists, user below the limit, book exists, book available.
func (s *Service) Borrow(ctx context.Context, userID string, bookID uint) (*Receipt, error) {
	if userID == "" {
		return nil, invalidInput("user id is required")
	}
	if bookID == 0 {
		return nil, invalidInput("bookId must be a positive number")
	}

	var receipt Receipt
	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)

		user, err := userRepo.GetUserByID(userID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return userNotFound()
			}
			return storeError("load user", err)
		}
		if !s.policy.CanBorrow(user.CurrentBorrowed) {
			return limitExceeded(s.policy.Limit)
		}

		book, err := s.books.WithTx(tx).GetBook(bookID)
		if err != nil {
			if errors.Is(err, books.ErrBookNotFound) {
				return bookNotFound()
			}
			return storeError("load book", err)
		}
		title = book.Title
		if !book.IsAvailable() {
			return bookUnavailable()
		}

		now := s.now().UTC()
		loan := &entities.Loan{
			ID:           uuid.NewString(),
			BookID:       book.ID,
			UserID:       &user.ID,
			LoanSnapshot: entities.NewLoanSnapshot(*book, *user),
			Status:       entities.LoanStatusBorrowed,
			BorrowedAt:   now,
			DueDate:      now.Add(s.period),
		}
		if err := s.loans.WithTx(tx).CreateLoan(loan); err != nil {
			if errors.Is(err, loans.ErrLoanConflict) {
				return loanConflict(err)
			}
			return storeError("create loan", err)
		}

		if err := s.books.WithTx(tx).SetAvailability(book.ID, entities.AvailabilityUnavailable); err != nil {
			return storeError("mark book unavailable", err)
		}

		ok, err := userRepo.IncrementBorrowed(user.ID, s.policy.Limit)
		if err != nil {
			return storeError("increment borrowed count", err)
		}
		if !ok {
			return limitExceeded(s.policy.Limit)
		}

		receipt = Receipt{
			LoanID:     loan.ID,
			BookID:     book.ID,
			BorrowedAt: loan.BorrowedAt,
			DueDate:    loan.DueDate,
		}
		return nil
	})

	err = s.finish(err, "borrow", userID, bookID)
	if s.events != nil {
		s.events.LogBorrow(userID, bookID, title, err)
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Return settles the user's active loan of the book.
func (s *Service) Return(ctx context.Context, userID string, bookID uint) error {
	if userID == "" {
		return invalidInput("user id is required")
	}
	if bookID == 0 {
		return invalidInput("bookId must be a positive number")
	}

	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)
		ledger := s.loans.WithTx(tx)

		if _, err := userRepo.GetUserByID(userID); err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return userNotFound()
			}
			return storeError("load user", err)
		}

		loan, err := ledger.FindActiveLoan(userID, bookID)
		if err != nil {
			return storeError("find active loan", err)
		}
		if loan == nil {
			return noActiveLoan()
		}
		title = loan.BookTitle

		if err := ledger.SettleLoan(userID, bookID, s.now().UTC()); err != nil {
			if errors.Is(err, loans.ErrLoanNotFound) {
				return noActiveLoan()
			}
			return storeError("settle loan", err)
		}

		if err := s.books.WithTx(tx).SetAvailability(bookID, entities.AvailabilityAvailable); err != nil {
			return storeError("mark book available", err)
		}

		if err := userRepo.RecordReturn(userID); err != nil {
			return storeError("record return", err)
		}
		return nil
	})

	err = s.finish(err, "return", userID, bookID)
	if s.events != nil {
		s.events.LogReturn(userID, bookID, title, err)
	}
	return err
}

// ListActive returns the user's borrowed loans, oldest first.
func (s *Service) ListActive(ctx context.Context, userID string) ([]entities.Loan, error) {
	list, err := s.loans.WithTx(s.db.WithContext(ctx)).ListActive(userID)
	if err != nil {
		return nil, s.finish(storeError("list active loans", err), "list_active", userID, 0)
	}
	return list, nil
}

// ListHistory returns every loan of the user, newest first.
func (s *Service) ListHistory(ctx context.Context, userID string) ([]entities.Loan, error) {
	list, err := s.loans.WithTx(s.db.WithContext(ctx)).ListHistory(userID)
	if err != nil {
		return nil, s.finish(storeError("list loan history", err), "list_history", userID, 0)
	}
	return list, nil
}

// HasActiveLoans reports whether the user still holds a borrowed book.
func (s *Service) HasActiveLoans(ctx context.Context, userID string) (bool, error) {
	has, err := s.loans.WithTx(s.db.WithContext(ctx)).HasActiveLoans(userID)
	if err != nil {
		return false, s.finish(storeError("check active loans", err), "has_active_loans", userID, 0)
	}
	return has, nil
}

// finish normalizes err to *Error and logs store failures.
func (s *Service) finish(err error, op, userID string, bookID uint) error {
	if err == nil {
		return nil
	}
	be, ok := AsError(err)
	if !ok {
		be = storeError(op, err)
	}
	if be.Kind == KindStore {
		slog.Error("borrowing store failure", "op", op, "user_id", userID, "book_id", bookID, "error", be.Err)
	}
	return be
}
