package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

type BooksController struct {
	store  CatalogStore
	events EventLogger
}

func NewBooksController(store CatalogStore, events EventLogger) *BooksController {
	return &BooksController{
		store:  store,
		events: eventsOrNop(events),
	}
}

// BookSummary is a catalog list entry.
type BookSummary struct {
	ID                 uint                        `json:"id"`
	Title              string                      `json:"title"`
	Authors            []string                    `json:"authors"`
	Genres             []string                    `json:"genres"`
	PublicationYear    int                         `json:"publication_year,omitempty"`
	Rating             float64                     `json:"rating,omitempty"`
	AvailabilityStatus entities.AvailabilityStatus `json:"availability_status"`
}

func summarize(book entities.Book) BookSummary {
	s := BookSummary{
		ID:                 book.ID,
		Title:              book.Title,
		Authors:            make([]string, 0, len(book.Authors)),
		Genres:             make([]string, 0, len(book.Genres)),
		PublicationYear:    book.PublicationYear,
		Rating:             book.Rating,
		AvailabilityStatus: book.AvailabilityStatus,
	}
	for _, a := range book.Authors {
		s.Authors = append(s.Authors, a.FullName())
	}
	for _, g := range book.Genres {
		s.Genres = append(s.Genres, g.Name)
	}
	return s
}

// ListBooks returns one page of the catalog.
// GET /api/books?page=&limit=&orderBy=&order=
func (bc *BooksController) ListBooks(c *gin.Context) {
	page, limit := parsePage(c, books.DefaultPageSize, books.MaxPageSize)

	var descending bool
	switch strings.ToUpper(c.DefaultQuery("order", "ASC")) {
	case "ASC":
	case "DESC":
		descending = true
	default:
		respondBadRequest(c, "order must be ASC or DESC")
		return
	}

	list, total, err := bc.store.ListBooks(books.ListParams{
		Page:       page,
		Limit:      limit,
		OrderBy:    c.Query("orderBy"),
		Descending: descending,
	})
	if err != nil {
		if errors.Is(err, books.ErrInvalidOrder) {
			respondBadRequest(c, "orderBy must be one of title, rating, publication_year")
			return
		}
		respondInternalError(c, err, "list books")
		return
	}

	summaries := make([]BookSummary, 0, len(list))
	for _, b := range list {
		summaries = append(summaries, summarize(b))
	}
	c.JSON(http.StatusOK, gin.H{
		"books": summaries,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// GetBook returns a book with its authors, genres, language and publisher.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookDetails(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book", borrowing.CodeBookNotFound)
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

type authorRequest struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	BirthDate   *time.Time `json:"birth_date"`
	Nationality string     `json:"nationality"`
}

type addBookRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ISBN            string          `json:"isbn"`
	PublicationYear int             `json:"publication_year"`
	Pages           int             `json:"pages"`
	Rating          float64         `json:"rating"`
	RatingCount     int             `json:"rating_count"`
	CoverURL        string          `json:"cover_url"`
	Language        string          `json:"language"`
	Publisher       string          `json:"publisher"`
	Authors         []authorRequest `json:"authors"`
	Genres          []string        `json:"genres"`
}

// AddBook creates a catalog entry. Admin only.
// POST /api/books
func (bc *BooksController) AddBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	input := books.NewBook{
		Title:           req.Title,
		Description:     req.Description,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Pages:           req.Pages,
		Rating:          req.Rating,
		RatingCount:     req.RatingCount,
		CoverURL:        req.CoverURL,
		Language:        req.Language,
		Publisher:       req.Publisher,
		Genres:          req.Genres,
	}
	for _, a := range req.Authors {
		input.Authors = append(input.Authors, books.AuthorInput{
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			BirthDate:   a.BirthDate,
			Nationality: a.Nationality,
		})
	}

	book, err := bc.store.AddBook(input)
	if err != nil {
		if errors.Is(err, books.ErrTitleRequired) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "add book")
		return
	}

	bc.events.LogCatalog(GetUserID(c), "book_add", book.ID, book.Title)
	respondCreated(c, book)
}

// DeleteBook removes a book that is not on loan. Admin only.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookDetails(id)
	if err == nil {
		err = bc.store.DeleteBook(id)
	}
	if err != nil {
		switch {
		case errors.Is(err, books.ErrBookNotFound):
			respondNotFound(c, "book", borrowing.CodeBookNotFound)
		case errors.Is(err, books.ErrBookUnavailable):
			respondError(c, http.StatusBadRequest, borrowing.CodeBookUnavailable, "book is currently borrowed")
		default:
			respondInternalError(c, err, "delete book")
		}
		return
	}

	bc.events.LogDelete(GetUserID(c), "book", strconv.FormatUint(uint64(book.ID), 10), book.Title)
	respondSuccess(c, "Book deleted.")
}
