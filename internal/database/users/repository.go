// Package users provides database operations for user management.
//
// Besides account data the users table carries the two lending counters.
// IncrementBorrowed and RecordReturn are meant to run inside the same
// transaction as the matching loan write.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByID(id)
package users

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already registered")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrUserHasLoans = errors.New("user still has borrowed books")
)

// ProfilePatch lists the self-editable profile fields. Nil fields are left as is.
type ProfilePatch struct {
	Email     *string
	Name      *string
	Surname   *string
	AvatarURL *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.Surname == nil && p.AvatarURL == nil
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateUser inserts the user, assigning an ID when none is set. Emails are
// stored lower-cased.
func (r *Repository) CreateUser(user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = entities.UserRoleMember
	}

	if err := r.db.Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id string) (*entities.User, error) {
	return r.first("id = ?", id)
}

// GetUserByEmail looks the user up case-insensitively.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	return r.first("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByLogin accepts either a username or an email.
func (r *Repository) GetUserByLogin(login string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	return r.first("username = ? OR LOWER(email) = ?", login, strings.ToLower(login))
}

// ExistsByUsernameOrEmail reports whether either value is already taken.
func (r *Repository) ExistsByUsernameOrEmail(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("LOWER(username) = ? OR LOWER(email) = ?", strings.ToLower(username), strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

// CountAdmins returns the number of admin accounts.
func (r *Repository) CountAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("role = ?", entities.UserRoleAdmin).Count(&count).Error
	return count, err
}

func (r *Repository) first(query string, args ...any) (*entities.User, error) {
	var user entities.User
	err := r.db.Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the patch and returns the updated user.
func (r *Repository) UpdateProfile(id string, patch ProfilePatch) (*entities.User, error) {
	updates := map[string]any{}
	if patch.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Surname != nil {
		updates["surname"] = *patch.Surname
	}
	if patch.AvatarURL != nil {
		updates["avatar_url"] = *patch.AvatarURL
	}

	if len(updates) > 0 {
		result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			if database.IsUniqueViolation(result.Error) {
				return nil, ErrUserExists
			}
			return nil, fmt.Errorf("failed to update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.GetUserByID(id)
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(id, passwordHash string) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// IncrementBorrowed adds one to current_borrowed if the user is below limit.
// It returns false when the limit is already reached.
func (r *Repository) IncrementBorrowed(id string, limit int) (bool, error) {
	result := r.db.Model(&entities.User{}).
		Where("id = ? AND current_borrowed < ?", id, limit).
		Update("current_borrowed", gorm.Expr("current_borrowed + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to increment borrowed count: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RecordReturn moves one book from current_borrowed to the lifetime counter.
// current_borrowed never drops below zero.
func (r *Repository) RecordReturn(id string) error {
	result := r.db.Model(&entities.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_borrowed":             gorm.Expr("CASE WHEN current_borrowed > 0 THEN current_borrowed - 1 ELSE 0 END"),
			"numbers_of_books_checked_out": gorm.Expr("numbers_of_books_checked_out + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record return: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes an account that holds no borrowed books. Loans keep
// their snapshot and lose the user reference.
func (r *Repository) DeleteUser(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.Select("id", "current_borrowed").Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.CurrentBorrowed > 0 {
			return ErrUserHasLoans
		}

		if err := tx.Model(&entities.Loan{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach loans: %w", err)
		}

		result := tx.Where("id = ? AND current_borrowed = 0", id).Delete(&entities.User{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserHasLoans
		}
		return nil
	})
}

// Activate enables the account holding the activation token.
func (r *Repository) Activate(token string, now time.Time) (*entities.User, error) {
	user, err := r.first("activation_token = ?", token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if user.ActivationExpires != nil && now.After(*user.ActivationExpires) {
		return nil, ErrTokenExpired
	}

	err = r.db.Model(&entities.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"is_active":          true,
		"activation_token":   nil,
		"activation_expires": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	user.IsActive = true
	user.ActivationToken = nil
	user.ActivationExpires = nil
	return user, nil
}

// IssueResetToken stores a fresh password reset token on the user.
func (r *Repository) IssueResetToken(id string, expires time.Time) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token":   token,
		"reset_expires": expires,
	})
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}
	return token, nil
}

// ConsumeResetToken sets the new password hash and clears the token.
func (r *Repository) ConsumeResetToken(token, passwordHash string, now time.Time) (*entities.User, error) {
	user, err := r.first("reset_token = ?", token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if user.ResetExpires == nil || now.After(*user.ResetExpires) {
		return nil, ErrTokenExpired
	}

	err = r.db.Model(&entities.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"password_hash":      passwordHash,
		"reset_token":        nil,
		"reset_expires":      nil,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reset password: %w", err)
	}
	return user, nil
}

// RecordLoginFailure counts a failed attempt and locks the account once the
// count reaches maxAttempts.
func (r *Repository) RecordLoginFailure(id string, maxAttempts int, lockout time.Duration, now time.Time) error {
	var user entities.User
	if err := r.db.Select("id", "failed_login_count").Where("id = ?", id).First(&user).Error; err != nil {
		return err
	}
	updates := map[string]any{"failed_login_count": user.FailedLoginCount + 1}
	if user.FailedLoginCount+1 >= maxAttempts {
		updates["locked_until"] = now.Add(lockout)
		updates["failed_login_count"] = 0
	}
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
}

// RecordLoginSuccess clears the failure counter and stamps the login time.
func (r *Repository) RecordLoginSuccess(id string, now time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      now,
	}).Error
}

// GenerateToken returns 32 random bytes hex encoded.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
