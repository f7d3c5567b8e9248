// Package loans provides the loan ledger stored in the borrowed_books table.
//
// Rows are never deleted. A loan moves from borrowed to returned exactly once,
// and a partial unique index keeps at most one borrowed row per book.
//
// # Usage
//
//	ledger := loans.NewRepository(db)
//	loan, err := ledger.FindActiveLoan(userID, bookID)
package loans

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrLoanNotFound = errors.New("active loan not found")
	ErrLoanConflict = errors.New("book already has an active loan")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindActiveLoan returns the borrowed loan for the user and book, or nil when
// there is none.
func (r *Repository) FindActiveLoan(userID string, bookID uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
		First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

// CreateLoan inserts a borrowed loan. ErrLoanConflict means another borrowed
// loan for the same book already exists.
func (r *Repository) CreateLoan(loan *entities.Loan) error {
	if loan.Status == "" {
		loan.Status = entities.LoanStatusBorrowed
	}

	var existing int64
	err := r.db.Model(&entities.Loan{}).
		Where("book_id = ? AND status = ?", loan.BookID, entities.LoanStatusBorrowed).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to check active loans: %w", err)
	}
	if existing > 0 {
		return ErrLoanConflict
	}

	if err := r.db.Create(loan).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrLoanConflict
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// SettleLoan marks the user's borrowed loan of the book returned. When no
// such loan exists, including one already returned, it yields ErrLoanNotFound.
func (r *Repository) SettleLoan(userID string, bookID uint, returnedAt time.Time) error {
	result := r.db.Model(&entities.Loan{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
		Updates(map[string]any{
			"status":      entities.LoanStatusReturned,
			"returned_at": returnedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to settle loan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// ListActive returns the user's borrowed loans, oldest first.
func (r *Repository) ListActive(userID string) ([]entities.Loan, error) {
	var list []entities.Loan
	err := r.db.Where("user_id = ? AND status = ?", userID, entities.LoanStatusBorrowed).
		Order("borrowed_at ASC").Order("id ASC").
		Find(&list).Error
	return list, err
}

// ListHistory returns every loan of the user, newest first.
func (r *Repository) ListHistory(userID string) ([]entities.Loan, error) {
	var list []entities.Loan
	err := r.db.Where("user_id = ?", userID).
		Order("borrowed_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

// CountActive returns how many borrowed loans the user holds.
func (r *Repository) CountActive(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusBorrowed).
		Count(&count).Error
	return count, err
}

// HasActiveLoans reports whether the user holds at least one borrowed loan.
func (r *Repository) HasActiveLoans(userID string) (bool, error) {
	var loan entities.Loan
	err := r.db.Select("id").
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusBorrowed).
		Limit(1).Find(&loan).Error
	if err != nil {
		return false, err
	}
	return loan.ID != "", nil
}
