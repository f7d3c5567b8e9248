package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/entities"
)

const memberID = "6f1c2a8e-0000-4000-8000-000000000001"

func setupRentRouter(lender *fakeLender, userID string) *gin.Engine {
	rc := NewRentController(lender)
	router := gin.New()
	router.Use(asUser(userID, entities.UserRoleMember))
	router.POST("/api/rent", rc.Borrow)
	router.POST("/api/rent/return", rc.Return)
	router.GET("/api/rent/borrowed", rc.Borrowed)
	router.GET("/api/rent/history", rc.History)
	return router
}

func TestRentController_Borrow(t *testing.T) {
	borrowedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lender := &fakeLender{receipt: &borrowing.Receipt{
		LoanID:     "loan-1",
		BookID:     7,
		BorrowedAt: borrowedAt,
		DueDate:    borrowedAt.Add(borrowing.DefaultLoanPeriod),
	}}
	router := setupRentRouter(lender, memberID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, "POST", "/api/rent", map[string]any{"bookId": 7}))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(7), body["bookId"])
	assert.Equal(t, "loan-1", body["loanId"])
	assert.Equal(t, "2024-05-15T12:00:00Z", body["dueDate"])
	require.Len(t, lender.calls, 1)
	assert.Equal(t, lenderCall{"borrow", memberID, 7}, lender.calls[0])
}

func TestRentController_BookIDValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"string", `{"bookId": "7"}`},
		{"zero", `{"bookId": 0}`},
		{"negative", `{"bookId": -3}`},
		{"fractional", `{"bookId": 1.5}`},
		{"null", `{"bookId": null}`},
		{"malformed", `{"bookId":`},
	}

	for _, tt := range tests {
		for _, path := range []string{"/api/rent", "/api/rent/return"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				lender := &fakeLender{}
				router := setupRentRouter(lender, memberID)

				w := httptest.NewRecorder()
				router.ServeHTTP(w, jsonRequest(t, "POST", path, tt.body))

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, borrowing.CodeInvalidInput, decodeError(t, w).Code)
				assert.Empty(t, lender.calls, "lender must not be reached")
			})
		}
	}
}

func TestRentController_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"limit", &borrowing.Error{Kind: borrowing.KindLimitExceeded, Code: borrowing.CodeLimitExceeded, Message: "limit"}, http.StatusForbidden, borrowing.CodeLimitExceeded, false},
		{"unknown book", borrowing.ErrBookNotFound, http.StatusNotFound, borrowing.CodeBookNotFound, false},
		{"unknown user", borrowing.ErrUserNotFound, http.StatusNotFound, borrowing.CodeUserNotFound, false},
		{"unavailable", &borrowing.Error{Kind: borrowing.KindUnavailable, Code: borrowing.CodeBookUnavailable}, http.StatusBadRequest, borrowing.CodeBookUnavailable, true},
		{"conflict", &borrowing.Error{Kind: borrowing.KindConflict, Code: borrowing.CodeLoanConflict}, http.StatusConflict, borrowing.CodeLoanConflict, true},
		{"store", &borrowing.Error{Kind: borrowing.KindStore, Code: borrowing.CodeStoreError, Message: "disk on fire", Err: fmt.Errorf("boom")}, http.StatusInternalServerError, borrowing.CodeStoreError, true},
		{"plain error", fmt.Errorf("unexpected"), http.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRentRouter(&fakeLender{err: tt.err}, memberID)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(t, "POST", "/api/rent", map[string]any{"bookId": 3}))

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.retryable, resp.Retryable)
			assert.NotContains(t, resp.Error, "disk on fire")
		})
	}
}

func TestRentController_Return(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		lender := &fakeLender{}
		router := setupRentRouter(lender, memberID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, "POST", "/api/rent/return", map[string]any{"bookId": 2}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Book returned successfully.", decodeJSON(t, w)["message"])
		assert.Equal(t, lenderCall{"return", memberID, 2}, lender.calls[0])
	})

	t.Run("no active loan", func(t *testing.T) {
		lender := &fakeLender{err: &borrowing.Error{Kind: borrowing.KindNoActiveLoan, Code: borrowing.CodeNoActiveLoan}}
		router := setupRentRouter(lender, memberID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, "POST", "/api/rent/return", map[string]any{"bookId": 2}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, borrowing.CodeNoActiveLoan, decodeError(t, w).Code)
	})
}

func TestRentController_Borrowed(t *testing.T) {
	t.Run("empty list returns message", func(t *testing.T) {
		router := setupRentRouter(&fakeLender{}, memberID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rent/borrowed", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, noLoansMessage, decodeJSON(t, w)["message"])
	})

	t.Run("lists active loans", func(t *testing.T) {
		lender := &fakeLender{active: []entities.Loan{
			{ID: "a", BookID: 1, Status: entities.LoanStatusBorrowed, LoanSnapshot: entities.LoanSnapshot{BookTitle: "Emma"}},
		}}
		router := setupRentRouter(lender, memberID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rent/borrowed", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"book_title":"Emma"`)
	})
}

func TestRentController_History(t *testing.T) {
	returned := time.Now()
	lender := &fakeLender{history: []entities.Loan{
		{ID: "b", BookID: 2, Status: entities.LoanStatusBorrowed},
		{ID: "a", BookID: 1, Status: entities.LoanStatusReturned, ReturnedAt: &returned},
	}}
	router := setupRentRouter(lender, memberID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rent/history", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "history", lender.calls[0].op)
	assert.Contains(t, w.Body.String(), `"id":"b"`)
}
