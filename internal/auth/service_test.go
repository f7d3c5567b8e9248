package auth

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

type sentLink struct {
	kind  string
	email string
	link  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	links []sentLink
}

func (n *recordingNotifier) SendActivation(_ context.Context, user *entities.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, sentLink{"activation", user.Email, link})
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, user *entities.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, sentLink{"reset", user.Email, link})
	return nil
}

// lastToken returns the token at the end of the most recent link of kind.
func (n *recordingNotifier) lastToken(t *testing.T, kind string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.links) - 1; i >= 0; i-- {
		if n.links[i].kind == kind {
			link := n.links[i].link
			return link[strings.LastIndexAny(link, "/=")+1:]
		}
	}
	t.Fatalf("no %s link sent", kind)
	return ""
}

type authFixture struct {
	svc      *Service
	repo     *users.Repository
	tokens   *TokenIssuer
	notifier *recordingNotifier
	cfg      config.Auth
}

func testAuthConfig() config.Auth {
	return config.Auth{
		JWTSecret:        "test-secret",
		TokenExpiry:      time.Hour,
		BcryptCost:       bcrypt.MinCost,
		SessionLifetime:  time.Hour,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  10 * time.Minute,
		ActivationTTL:    24 * time.Hour,
		ResetTTL:         time.Hour,
		PublicBaseURL:    "http://library.test",
	}
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "auth.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testAuthConfig()
	f := &authFixture{
		repo:     users.NewRepository(db.DB),
		tokens:   NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry),
		notifier: &recordingNotifier{},
		cfg:      cfg,
	}
	f.svc = NewService(f.repo, f.tokens, f.notifier, cfg)
	return f
}

func validRegistration() Registration {
	return Registration{
		Username: "ada",
		Email:    "ada@example.com",
		Password: testPassword,
		Name:     "Ada",
		Surname:  "Lovelace",
	}
}

// registerActive registers a member and activates the account.
func (f *authFixture) registerActive(t *testing.T, r Registration) *entities.User {
	t.Helper()
	_, err := f.svc.Register(context.Background(), r)
	require.NoError(t, err)
	user, err := f.svc.Activate(f.notifier.lastToken(t, "activation"))
	require.NoError(t, err)
	return user
}

func TestService_RegisterValidation(t *testing.T) {
	f := setupAuth(t)

	tests := []struct {
		name    string
		mutate  func(r *Registration)
		wantErr error
	}{
		{"missing username", func(r *Registration) { r.Username = "" }, ErrUsernameRequired},
		{"missing email", func(r *Registration) { r.Email = "  " }, ErrEmailRequired},
		{"missing password", func(r *Registration) { r.Password = "" }, ErrPasswordRequired},
		{"missing surname", func(r *Registration) { r.Surname = "" }, ErrNameRequired},
		{"bad username", func(r *Registration) { r.Username = "a b" }, ErrUsernameInvalid},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, ErrEmailInvalid},
		{"short password", func(r *Registration) { r.Password = "short" }, ErrPasswordTooShort},
		{"long password", func(r *Registration) { r.Password = strings.Repeat("x", MaxPasswordLength+1) }, ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegistration()
			tt.mutate(&r)
			user, err := f.svc.Register(context.Background(), r)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, user)
		})
	}
	assert.Empty(t, f.notifier.links)
}

func TestService_RegisterCreatesInactiveMember(t *testing.T) {
	f := setupAuth(t)

	user, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.IsActive)
	assert.Equal(t, entities.UserRoleMember, user.Role)
	assert.NotEqual(t, testPassword, user.PasswordHash)

	require.Len(t, f.notifier.links, 1)
	link := f.notifier.links[0].link
	assert.True(t, strings.HasPrefix(link, "http://library.test/api/register/activate/"))
	assert.Len(t, f.notifier.lastToken(t, "activation"), 64)
}

func TestService_RegisterDuplicate(t *testing.T) {
	f := setupAuth(t)
	_, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	r := validRegistration()
	r.Username = "ada2"
	r.Email = "ADA@example.com"
	_, err = f.svc.Register(context.Background(), r)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Activate(t *testing.T) {
	f := setupAuth(t)
	_, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	token := f.notifier.lastToken(t, "activation")

	user, err := f.svc.Activate(token)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	_, err = f.svc.Activate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are single use")

	_, err = f.svc.Activate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ActivateExpired(t *testing.T) {
	f := setupAuth(t)
	_, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = f.svc.Activate(f.notifier.lastToken(t, "activation"))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_Login(t *testing.T) {
	f := setupAuth(t)
	registered := f.registerActive(t, validRegistration())

	user, token, err := f.svc.Login("Ada@Example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, user.LastLoginAt)

	validated, err := f.svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, validated.ID)
}

func TestService_LoginRejections(t *testing.T) {
	f := setupAuth(t)
	_, err := f.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, _, err = f.svc.Login("", testPassword)
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, _, err = f.svc.Login("ada@example.com", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, _, err = f.svc.Login("nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = f.svc.Login("ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrAccountInactive)

	_, err = f.svc.Activate(f.notifier.lastToken(t, "activation"))
	require.NoError(t, err)

	_, _, err = f.svc.Login("ada@example.com", "wrong-password-123")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestService_LoginLockout(t *testing.T) {
	f := setupAuth(t)
	f.registerActive(t, validRegistration())

	for i := 0; i < f.cfg.MaxLoginAttempts; i++ {
		_, _, err := f.svc.Login("ada@example.com", "wrong-password-123")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	// Locked even with the right password
	_, _, err := f.svc.Login("ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)

	f.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, _, err = f.svc.Login("ada@example.com", testPassword)
	assert.NoError(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	f := setupAuth(t)
	f.registerActive(t, validRegistration())

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ada@example.com"))
	token := f.notifier.lastToken(t, "reset")

	assert.ErrorIs(t, f.svc.ResetPassword(token, "short"), ErrPasswordTooShort)
	require.NoError(t, f.svc.ResetPassword(token, "a-brand-new-password"))
	assert.ErrorIs(t, f.svc.ResetPassword(token, "another-new-password"), ErrInvalidToken)

	_, _, err := f.svc.Login("ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidPassword)
	_, _, err = f.svc.Login("ada@example.com", "a-brand-new-password")
	assert.NoError(t, err)
}

func TestService_PasswordResetUnknownEmail(t *testing.T) {
	f := setupAuth(t)

	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.ErrorIs(t, f.svc.RequestPasswordReset(context.Background(), "nope"), ErrEmailInvalid)
	assert.Empty(t, f.notifier.links)
	assert.ErrorIs(t, f.svc.ResetPassword("", "a-brand-new-password"), ErrInvalidToken)
}

func TestService_CreateAdmin(t *testing.T) {
	f := setupAuth(t)

	admin, err := f.svc.CreateAdmin(Registration{
		Username: "root",
		Email:    "root@example.com",
		Password: testPassword,
		Name:     "Root",
		Surname:  "Admin",
	})
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.Equal(t, entities.UserRoleAdmin, admin.Role)
	assert.Empty(t, f.notifier.links)

	_, _, err = f.svc.Login("root@example.com", testPassword)
	assert.NoError(t, err)
}

func TestService_ValidateTokenRejectsDeletedUser(t *testing.T) {
	f := setupAuth(t)
	user := f.registerActive(t, validRegistration())

	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)
	require.NoError(t, f.repo.DeleteUser(user.ID))

	_, err = f.svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a.b+c@example.co"))
	assert.ErrorIs(t, ValidateEmail(""), ErrEmailRequired)
	assert.ErrorIs(t, ValidateEmail("a@b"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"), ErrEmailInvalid)
}
