package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const (
	activationPath = "/api/register/activate/"
	resetPath      = "/reset-password?token="

	defaultLockoutDuration = 30 * time.Minute
	defaultMaxAttempts     = 5
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("username or email already registered")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name and surname are required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrAccountInactive  = errors.New("account is not activated")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Registration is the input of Register.
type Registration struct {
	Username  string
	Email     string
	Password  string
	Name      string
	Surname   string
	AvatarURL *string
}

// Service handles registration, login and password recovery.
type Service struct {
	users    *users.Repository
	tokens   *TokenIssuer
	notifier Notifier
	config   config.Auth
	now      func() time.Time
}

// NewService creates a new authentication service. A nil notifier falls
// back to LogNotifier.
func NewService(repo *users.Repository, tokens *TokenIssuer, notifier Notifier, cfg config.Auth) *Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Service{
		users:    repo,
		tokens:   tokens,
		notifier: notifier,
		config:   cfg,
		now:      time.Now,
	}
}

// ValidateEmail checks the email format and the RFC 5321 length limit.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

func (s *Service) validate(r *Registration) error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Surname = strings.TrimSpace(r.Surname)

	if r.Username == "" {
		return ErrUsernameRequired
	}
	if r.Email == "" {
		return ErrEmailRequired
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	if r.Name == "" || r.Surname == "" {
		return ErrNameRequired
	}
	if !usernamePattern.MatchString(r.Username) {
		return ErrUsernameInvalid
	}
	return ValidateEmail(r.Email)
}

// Register creates an inactive member account and sends its activation link.
func (s *Service) Register(ctx context.Context, r Registration) (*entities.User, error) {
	if err := s.validate(&r); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsernameOrEmail(r.Username, r.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	passwordHash, err := HashPassword(r.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	token, err := users.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate activation token: %w", err)
	}
	expires := s.now().Add(s.config.ActivationTTL)

	user := &entities.User{
		Username:          r.Username,
		Email:             r.Email,
		Name:              r.Name,
		Surname:           r.Surname,
		AvatarURL:         r.AvatarURL,
		PasswordHash:      passwordHash,
		Role:              entities.UserRoleMember,
		ActivationToken:   &token,
		ActivationExpires: &expires,
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.notifier.SendActivation(ctx, user, accountLink(s.config.PublicBaseURL, activationPath, token)); err != nil {
		return nil, fmt.Errorf("failed to send activation link: %w", err)
	}
	return user, nil
}

// CreateAdmin creates an active admin account without activation.
func (s *Service) CreateAdmin(r Registration) (*entities.User, error) {
	if err := s.validate(&r); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(r.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     r.Username,
		Email:        r.Email,
		Name:         r.Name,
		Surname:      r.Surname,
		PasswordHash: passwordHash,
		Role:         entities.UserRoleAdmin,
		IsActive:     true,
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// Activate enables the account that owns the token.
func (s *Service) Activate(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.Activate(token, s.now())
	if err != nil {
		return nil, mapTokenError(err)
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, err
	}

	if err := s.users.RecordLoginSuccess(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(email, password string) (*entities.User, string, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return nil, "", err
	}
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// recordFailedLogin increments the failed login counter and locks the
// account once the threshold is reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	lockout := s.config.LockoutDuration
	if lockout <= 0 {
		lockout = defaultLockoutDuration
	}
	_ = s.users.RecordLoginFailure(user.ID, maxAttempts, lockout, s.now())
}

// RequestPasswordReset sends a reset link when the email is registered.
// Unknown emails return nil so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := ValidateEmail(strings.TrimSpace(email)); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.users.IssueResetToken(user.ID, s.now().Add(s.config.ResetTTL))
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	return s.notifier.SendPasswordReset(ctx, user, accountLink(s.config.PublicBaseURL, resetPath, token))
}

// ResetPassword sets a new password using a reset token.
func (s *Service) ResetPassword(token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}
	hash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	if _, err := s.users.ConsumeResetToken(token, hash, s.now()); err != nil {
		return mapTokenError(err)
	}
	return nil
}

// ValidateToken checks a bearer token and returns its active user.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id string) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, users.ErrTokenInvalid):
		return ErrInvalidToken
	case errors.Is(err, users.ErrTokenExpired):
		return ErrTokenExpired
	}
	return err
}
