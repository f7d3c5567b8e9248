package entities

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

type User struct {
	ID           string   `gorm:"primaryKey;size:36" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string   `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Name         string   `gorm:"size:100" json:"name"`
	Surname      string   `gorm:"size:100" json:"surname"`
	AvatarURL    *string  `gorm:"size:1024" json:"avatar_url,omitempty"`
	PasswordHash string   `gorm:"size:100;not null" json:"-"`
	Role         UserRole `gorm:"size:20;not null;default:member" json:"role"`
	IsActive     bool     `gorm:"not null;default:false" json:"is_active"`

	// Lending counters, only changed together with a loan transition
	CurrentBorrowed          int `gorm:"not null;default:0" json:"current_borrowed"`
	NumbersOfBooksCheckedOut int `gorm:"not null;default:0" json:"numbers_of_books_checked_out"`

	ActivationToken   *string    `gorm:"uniqueIndex;size:64" json:"-"`
	ActivationExpires *time.Time `json:"-"`
	ResetToken        *string    `gorm:"uniqueIndex;size:64" json:"-"`
	ResetExpires      *time.Time `json:"-"`

	FailedLoginCount int        `gorm:"not null;default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (User) TableName() string {
	return "users"
}
