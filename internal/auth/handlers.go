package auth

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/logging"
)

// AccountEvents receives audit records for authentication and account changes.
type AccountEvents interface {
	LogAuth(userID, action, ipAddr, userAgent string, success bool)
	LogAccount(userID, action, description string, metadata map[string]any)
}

type nopEvents struct{}

func (nopEvents) LogAuth(string, string, string, string, bool)         {}
func (nopEvents) LogAccount(string, string, string, map[string]any) {}

// AuthController serves registration, login and password recovery.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	limiter        LoginLimiter
	events         AccountEvents
}

// NewAuthController creates a new authentication controller. sessionManager
// and events may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, limiter LoginLimiter, events AccountEvents) *AuthController {
	if events == nil {
		events = nopEvents{}
	}
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		limiter:        limiter,
		events:         events,
	}
}

// RegisterRoutes registers the account routes on the API group.
func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/register", ac.Register)
	api.GET("/register/activate/:token", ac.Activate)
	api.POST("/login", ac.Login)
	api.POST("/logout", ac.Logout)
	api.POST("/reset-password/request", ac.RequestPasswordReset)
	api.POST("/reset-password/confirm", ac.ConfirmPasswordReset)
}

type registerRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Name      string  `json:"name"`
	Surname   string  `json:"surname"`
	AvatarURL *string `json:"avatar_url"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register creates an inactive account and sends the activation link.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	user, err := ac.service.Register(c.Request.Context(), Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		ac.accountError(c, err, "register")
		return
	}

	ac.events.LogAccount(user.ID, "user_register", "Registered "+user.Username, map[string]any{"email": user.Email})
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email to activate the account.",
		"userId":  user.ID,
	})
}

// Activate enables the account owning the token in the path.
func (ac *AuthController) Activate(c *gin.Context) {
	user, err := ac.service.Activate(c.Param("token"))
	if err != nil {
		ac.accountError(c, err, "activate")
		return
	}

	ac.events.LogAccount(user.ID, "user_activate", "Activated "+user.Username, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Account activated."})
}

// Login authenticates with email and password and returns a bearer token.
// A session cookie is issued as well when sessions are enabled.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "invalid_input", "email and password are required")
		return
	}

	ip := c.ClientIP()
	if ac.limiter != nil {
		if allowed, wait := ac.limiter.Allow(ip, req.Email); !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(c, http.StatusTooManyRequests, "too_many_attempts",
				fmt.Sprintf("too many login attempts, retry in %s", wait.Round(time.Second)))
			return
		}
	}

	user, token, err := ac.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidPassword) || errors.Is(err, ErrUserNotFound) {
			if ac.limiter != nil {
				ac.limiter.RecordFailure(ip, req.Email)
			}
		}
		var userID string
		if u, lookupErr := ac.service.users.GetUserByEmail(req.Email); lookupErr == nil {
			userID = u.ID
		}
		ac.events.LogAuth(userID, "login_failed", ip, c.Request.UserAgent(), false)
		ac.accountError(c, err, "login")
		return
	}

	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ip, req.Email)
	}
	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			logging.FromContext(c.Request.Context()).Error("failed to create session", "error", err)
			writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
	}

	ac.events.LogAuth(user.ID, "login", ip, c.Request.UserAgent(), true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful.",
		"token":   token,
	})
}

// Logout destroys the session. Bearer-only clients simply drop their token.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		userID := ac.sessionManager.GetUserID(c.Request)
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			logging.FromContext(c.Request.Context()).Error("failed to destroy session", "error", err)
			writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if userID != "" {
			ac.events.LogAuth(userID, "logout", c.ClientIP(), c.Request.UserAgent(), true)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// RequestPasswordReset always answers 200 for well-formed emails.
func (ac *AuthController) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	if err := ac.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		ac.accountError(c, err, "reset request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent."})
}

// ConfirmPasswordReset sets a new password from a reset token.
func (ac *AuthController) ConfirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	if err := ac.service.ResetPassword(req.Token, req.Password); err != nil {
		ac.accountError(c, err, "reset confirm")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

// accountError maps service errors to status codes.
func (ac *AuthController) accountError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrEmailInvalid),
		errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		writeError(c, http.StatusBadRequest, "invalid_token", err.Error())
	case errors.Is(err, ErrUserExists):
		writeError(c, http.StatusConflict, "user_exists", err.Error())
	case errors.Is(err, ErrUserNotFound):
		writeError(c, http.StatusBadRequest, "user_not_found", "no account with this email")
	case errors.Is(err, ErrAccountLocked):
		writeError(c, http.StatusForbidden, "account_locked", err.Error())
	case errors.Is(err, ErrAccountInactive):
		writeError(c, http.StatusForbidden, "account_inactive", err.Error())
	case errors.Is(err, ErrInvalidPassword):
		writeError(c, http.StatusUnauthorized, "invalid_password", "invalid email or password")
	default:
		logging.FromContext(c.Request.Context()).Error("account operation failed", "op", op, "error", err)
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":     message,
		"code":      code,
		"retryable": status == http.StatusTooManyRequests,
	})
}
