package books

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/library/internal/entities"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var orderColumns = map[string]string{
	"title":            "title",
	"rating":           "rating",
	"publication_year": "publication_year",
}

// ListParams controls catalog pagination and ordering.
type ListParams struct {
	Page       int
	Limit      int
	OrderBy    string // title, rating or publication_year
	Descending bool
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.OrderBy == "" {
		p.OrderBy = "title"
	}
	return p
}

// ListBooks returns one page of the catalog and the total book count.
func (r *Repository) ListBooks(params ListParams) ([]entities.Book, int64, error) {
	params = params.normalized()
	column, ok := orderColumns[params.OrderBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidOrder, params.OrderBy)
	}

	var total int64
	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []entities.Book
	err := r.db.Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("authors.id ASC")
	}).Preload("Genres").
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: params.Descending}).
		Order("id ASC").
		Limit(params.Limit).
		Offset((params.Page - 1) * params.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// AuthorInput identifies an author by name; unknown authors are created.
type AuthorInput struct {
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Nationality string
}

// NewBook is the admin input for adding a catalog entry.
type NewBook struct {
	Title           string
	Description     string
	ISBN            string
	PublicationYear int
	Pages           int
	Rating          float64
	RatingCount     int
	CoverURL        string
	Language        string
	Publisher       string
	Authors         []AuthorInput
	Genres          []string
}

// AddBook creates a book together with its language, publisher, authors and
// genres in one transaction. Existing reference rows are reused by name.
func (r *Repository) AddBook(input NewBook) (*entities.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	book := &entities.Book{
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		ISBN:               input.ISBN,
		PublicationYear:    input.PublicationYear,
		Pages:              input.Pages,
		Rating:             input.Rating,
		RatingCount:        input.RatingCount,
		CoverURL:           input.CoverURL,
		AvailabilityStatus: entities.AvailabilityAvailable,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if name := strings.TrimSpace(input.Language); name != "" {
			language := entities.Language{Name: name}
			if err := tx.Where(entities.Language{Name: name}).FirstOrCreate(&language).Error; err != nil {
				return fmt.Errorf("failed to upsert language: %w", err)
			}
			book.LanguageID = &language.ID
		}

		if name := strings.TrimSpace(input.Publisher); name != "" {
			publisher := entities.Publisher{Name: name}
			if err := tx.Where(entities.Publisher{Name: name}).FirstOrCreate(&publisher).Error; err != nil {
				return fmt.Errorf("failed to upsert publisher: %w", err)
			}
			book.PublisherID = &publisher.ID
		}

		for _, a := range input.Authors {
			first, last := strings.TrimSpace(a.FirstName), strings.TrimSpace(a.LastName)
			if first == "" && last == "" {
				continue
			}
			author := entities.Author{FirstName: first, LastName: last}
			err := tx.Where(entities.Author{FirstName: first, LastName: last}).
				Attrs(entities.Author{BirthDate: a.BirthDate, Nationality: a.Nationality}).
				FirstOrCreate(&author).Error
			if err != nil {
				return fmt.Errorf("failed to upsert author: %w", err)
			}
			book.Authors = append(book.Authors, author)
		}

		for _, g := range input.Genres {
			name := strings.TrimSpace(g)
			if name == "" {
				continue
			}
			genre := entities.Genre{Name: name}
			if err := tx.Where(entities.Genre{Name: name}).FirstOrCreate(&genre).Error; err != nil {
				return fmt.Errorf("failed to upsert genre: %w", err)
			}
			book.Genres = append(book.Genres, genre)
		}

		// Associations already exist; only the join rows need inserting.
		if err := tx.Omit("Authors.*", "Genres.*").Create(book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes an available book. A borrowed book is never deleted:
// the delete is conditional on the status so a concurrent borrow wins.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if !book.IsAvailable() {
			return ErrBookUnavailable
		}

		if err := tx.Model(&book).Association("Authors").Clear(); err != nil {
			return fmt.Errorf("failed to clear authors: %w", err)
		}
		if err := tx.Model(&book).Association("Genres").Clear(); err != nil {
			return fmt.Errorf("failed to clear genres: %w", err)
		}

		result := tx.Where("id = ? AND availability_status = ?", id, entities.AvailabilityAvailable).
			Delete(&entities.Book{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrBookUnavailable
		}
		return nil
	})
}
