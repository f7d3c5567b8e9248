// Package books provides database operations for the book catalog.
//
// GetBook and SetAvailability are the only calls the borrowing workflow makes;
// the remaining methods back the catalog HTTP endpoints.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBook(42)
package books

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book is currently borrowed")
	ErrInvalidOrder    = errors.New("invalid order column")
	ErrTitleRequired   = errors.New("title is required")
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetBook retrieves a book with its authors ordered by id, so the first
// author is stable across calls.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("authors.id ASC")
	}).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// SetAvailability writes the availability status. Writing the current value
// again is not an error.
func (r *Repository) SetAvailability(id uint, status entities.AvailabilityStatus) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Update("availability_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetBookDetails retrieves a book with every association for display.
func (r *Repository) GetBookDetails(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("authors.id ASC")
	}).Preload("Genres").Preload("Language").Preload("Publisher").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// FindByISBN returns the first book with the given ISBN.
func (r *Repository) FindByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}
