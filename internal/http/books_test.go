package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

const adminID = "6f1c2a8e-0000-4000-8000-0000000000ad"

func setupBooksRouter(store *fakeCatalog, events *fakeEvents) *gin.Engine {
	bc := NewBooksController(store, events)
	router := gin.New()
	router.Use(asUser(adminID, entities.UserRoleAdmin))
	router.GET("/api/books", bc.ListBooks)
	router.GET("/api/books/:id", bc.GetBook)
	router.POST("/api/books", bc.AddBook)
	router.DELETE("/api/books/:id", bc.DeleteBook)
	return router
}

func sampleBooks() []*entities.Book {
	return []*entities.Book{
		{
			ID:                 1,
			Title:              "Pride and Prejudice",
			Authors:            []entities.Author{{FirstName: "Jane", LastName: "Austen"}},
			Genres:             []entities.Genre{{Name: "Romance"}},
			AvailabilityStatus: entities.AvailabilityAvailable,
		},
		{
			ID:                 2,
			Title:              "Moby-Dick",
			Authors:            []entities.Author{{FirstName: "Herman", LastName: "Melville"}},
			AvailabilityStatus: entities.AvailabilityUnavailable,
		},
	}
}

func TestBooksController_ListBooks(t *testing.T) {
	t.Run("returns summaries with pagination", func(t *testing.T) {
		store := newFakeCatalog(sampleBooks()...)
		router := setupBooksRouter(store, &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books?page=2&limit=5&orderBy=rating&order=desc", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeJSON(t, w)
		assert.Equal(t, float64(2), body["page"])
		assert.Equal(t, float64(5), body["limit"])
		assert.Equal(t, float64(2), body["total"])

		list := body["books"].([]any)
		require.Len(t, list, 2)
		first := list[0].(map[string]any)
		assert.Equal(t, []any{"Jane Austen"}, first["authors"])
		assert.Equal(t, []any{"Romance"}, first["genres"])

		assert.Equal(t, books.ListParams{Page: 2, Limit: 5, OrderBy: "rating", Descending: true}, store.lastList)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		store := newFakeCatalog()
		router := setupBooksRouter(store, &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books?limit=1000&page=-4", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, books.MaxPageSize, store.lastList.Limit)
		assert.Equal(t, 1, store.lastList.Page)
	})

	t.Run("rejects unknown order direction", func(t *testing.T) {
		router := setupBooksRouter(newFakeCatalog(), &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books?order=sideways", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown order column", func(t *testing.T) {
		store := newFakeCatalog()
		store.listErr = books.ErrInvalidOrder
		router := setupBooksRouter(store, &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books?orderBy=password", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, borrowing.CodeInvalidInput, decodeError(t, w).Code)
	})
}

func TestBooksController_GetBook(t *testing.T) {
	router := setupBooksRouter(newFakeCatalog(sampleBooks()...), &fakeEvents{})

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Pride and Prejudice", decodeJSON(t, w)["title"])
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books/99", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, borrowing.CodeBookNotFound, decodeError(t, w).Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/books/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_AddBook(t *testing.T) {
	t.Run("creates and logs", func(t *testing.T) {
		store := newFakeCatalog()
		events := &fakeEvents{}
		router := setupBooksRouter(store, events)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, "POST", "/api/books", map[string]any{
			"title":     "Emma",
			"language":  "English",
			"publisher": "John Murray",
			"authors":   []map[string]any{{"first_name": "Jane", "last_name": "Austen"}},
			"genres":    []string{"Romance", "Satire"},
		}))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Emma", decodeJSON(t, w)["title"])

		require.Len(t, store.added, 1)
		assert.Equal(t, "John Murray", store.added[0].Publisher)
		assert.Equal(t, []books.AuthorInput{{FirstName: "Jane", LastName: "Austen"}}, store.added[0].Authors)
		assert.Equal(t, []loggedEvent{{"catalog", adminID, "book_add", "Emma"}}, events.logged)
	})

	t.Run("missing title", func(t *testing.T) {
		router := setupBooksRouter(newFakeCatalog(), &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, "POST", "/api/books", map[string]any{"isbn": "123"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_DeleteBook(t *testing.T) {
	t.Run("deletes available book", func(t *testing.T) {
		store := newFakeCatalog(sampleBooks()...)
		events := &fakeEvents{}
		router := setupBooksRouter(store, events)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/books/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, store.books, uint(1))
		assert.Equal(t, []loggedEvent{{"delete", adminID, "book", "1"}}, events.logged)
	})

	t.Run("borrowed book is rejected", func(t *testing.T) {
		store := newFakeCatalog(sampleBooks()...)
		store.deleteErr = books.ErrBookUnavailable
		events := &fakeEvents{}
		router := setupBooksRouter(store, events)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/books/2", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, borrowing.CodeBookUnavailable, decodeError(t, w).Code)
		assert.Empty(t, events.logged)
	})

	t.Run("missing book", func(t *testing.T) {
		router := setupBooksRouter(newFakeCatalog(), &fakeEvents{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/books/5", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
