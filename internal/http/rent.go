package http

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const noLoansMessage = "You have not borrowed any books yet."

// RentController serves the borrowing routes. Every route requires an
// authenticated user.
type RentController struct {
	lender Lender
}

func NewRentController(lender Lender) *RentController {
	return &RentController{lender: lender}
}

type rentRequest struct {
	BookID *float64 `json:"bookId"`
}

// BorrowResponse is returned by a successful borrow.
type BorrowResponse struct {
	LoanID     string    `json:"loanId"`
	BookID     uint      `json:"bookId"`
	BorrowedAt time.Time `json:"borrowedAt"`
	DueDate    time.Time `json:"dueDate"`
}

// bindBookID reads {"bookId": <positive integer>} from the body.
func bindBookID(c *gin.Context) (uint, bool) {
	var req rentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookID == nil {
		respondBadRequest(c, "bookId is required and must be a number")
		return 0, false
	}

	id := *req.BookID
	if id <= 0 || id != math.Trunc(id) || id > math.MaxUint32 {
		respondBadRequest(c, "bookId must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// Borrow lends a book to the caller.
// POST /api/rent
func (rc *RentController) Borrow(c *gin.Context) {
	bookID, ok := bindBookID(c)
	if !ok {
		return
	}

	receipt, err := rc.lender.Borrow(c.Request.Context(), GetUserID(c), bookID)
	if err != nil {
		respondBorrowingError(c, err)
		return
	}

	c.JSON(http.StatusOK, BorrowResponse{
		LoanID:     receipt.LoanID,
		BookID:     receipt.BookID,
		BorrowedAt: receipt.BorrowedAt,
		DueDate:    receipt.DueDate,
	})
}

// Return settles the caller's active loan of a book.
// POST /api/rent/return
func (rc *RentController) Return(c *gin.Context) {
	bookID, ok := bindBookID(c)
	if !ok {
		return
	}

	if err := rc.lender.Return(c.Request.Context(), GetUserID(c), bookID); err != nil {
		respondBorrowingError(c, err)
		return
	}
	respondSuccess(c, "Book returned successfully.")
}

// Borrowed lists the caller's active loans.
// GET /api/rent/borrowed
func (rc *RentController) Borrowed(c *gin.Context) {
	loans, err := rc.lender.ListActive(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondBorrowingError(c, err)
		return
	}
	if len(loans) == 0 {
		respondSuccess(c, noLoansMessage)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// History lists every loan of the caller, newest first.
// GET /api/rent/history
func (rc *RentController) History(c *gin.Context) {
	loans, err := rc.lender.ListHistory(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}
