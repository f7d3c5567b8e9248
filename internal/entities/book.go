package entities

import "time"

type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// UnknownAuthorName fills the loan snapshot when a book has no authors.
const UnknownAuthorName = "Unknown"

type Language struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

type Publisher struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"uniqueIndex:idx_author_name;size:100;not null" json:"first_name"`
	LastName    string     `gorm:"uniqueIndex:idx_author_name;size:100;not null" json:"last_name"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Nationality string     `gorm:"size:100" json:"nationality,omitempty"`
}

// FullName joins first and last name the way loan listings display an author.
func (a Author) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

type Book struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	Title              string             `gorm:"index;size:512;not null" json:"title"`
	Description        string             `gorm:"type:text" json:"description,omitempty"`
	ISBN               string             `gorm:"index;size:20" json:"isbn,omitempty"`
	PublicationYear    int                `gorm:"index" json:"publication_year,omitempty"`
	Pages              int                `json:"pages,omitempty"`
	Rating             float64            `gorm:"index" json:"rating,omitempty"`
	RatingCount        int                `json:"rating_count,omitempty"`
	CoverURL           string             `gorm:"size:1024" json:"cover_url,omitempty"`
	LanguageID         *uint              `json:"-"`
	Language           *Language          `gorm:"foreignKey:LanguageID" json:"language,omitempty"`
	PublisherID        *uint              `json:"-"`
	Publisher          *Publisher         `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	AvailabilityStatus AvailabilityStatus `gorm:"size:20;not null;default:available;index" json:"availability_status"`
	Authors            []Author           `gorm:"many2many:book_authors;" json:"authors,omitempty"`
	Genres             []Genre            `gorm:"many2many:book_genres;" json:"genres,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// PrimaryAuthor returns the first listed author, or an "Unknown Unknown"
// placeholder when the book has none.
func (b Book) PrimaryAuthor() Author {
	if len(b.Authors) == 0 {
		return Author{FirstName: UnknownAuthorName, LastName: UnknownAuthorName}
	}
	return b.Authors[0]
}

func (b Book) IsAvailable() bool {
	return b.AvailabilityStatus == AvailabilityAvailable
}

func (Language) TableName() string {
	return "languages"
}

func (Publisher) TableName() string {
	return "publishers"
}

func (Author) TableName() string {
	return "authors"
}

func (Genre) TableName() string {
	return "genres"
}

func (Book) TableName() string {
	return "books"
}
