package entities

import "time"

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusReturned LoanStatus = "returned"
)

// LoanSnapshot holds the display fields copied from the book and the user
// when a loan is created. They are never refreshed afterwards.
type LoanSnapshot struct {
	BookTitle       string `gorm:"size:512;not null" json:"book_title"`
	AuthorFirstName string `gorm:"size:100" json:"author_first_name"`
	AuthorLastName  string `gorm:"size:100" json:"author_last_name"`
	UserFirstName   string `gorm:"size:100" json:"user_first_name"`
	UserLastName    string `gorm:"size:100" json:"user_last_name"`
}

// NewLoanSnapshot captures the snapshot fields from the current rows.
func NewLoanSnapshot(book Book, user User) LoanSnapshot {
	author := book.PrimaryAuthor()
	first, last := author.FirstName, author.LastName
	if first == "" {
		first = UnknownAuthorName
	}
	if last == "" {
		last = UnknownAuthorName
	}
	return LoanSnapshot{
		BookTitle:       book.Title,
		AuthorFirstName: first,
		AuthorLastName:  last,
		UserFirstName:   user.Name,
		UserLastName:    user.Surname,
	}
}

// AuthorName is the snapshot author as "first last".
func (s LoanSnapshot) AuthorName() string {
	return s.AuthorFirstName + " " + s.AuthorLastName
}

// Loan is one row of the append-only borrowing ledger.
type Loan struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	BookID uint   `gorm:"index;not null" json:"book_id"`
	// UserID is cleared when the account is deleted; the snapshot keeps the name.
	UserID       *string `gorm:"index;size:36" json:"user_id,omitempty"`
	LoanSnapshot `gorm:"embedded"`
	Status       LoanStatus `gorm:"size:20;not null;index" json:"status"`
	BorrowedAt   time.Time  `gorm:"index;not null" json:"borrowed_at"`
	DueDate      time.Time  `gorm:"not null" json:"due_date"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
}

func (l Loan) IsActive() bool {
	return l.Status == LoanStatusBorrowed
}

func (Loan) TableName() string {
	return "borrowed_books"
}
