package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

const (
	codeForbidden   = "forbidden"
	codeActiveLoans = "active_loans"
	codeEmailTaken  = "email_taken"
)

// UsersController handles profile reads, edits and account deletion.
type UsersController struct {
	users  UserStore
	loans  LoanChecker
	events EventLogger
}

func NewUsersController(store UserStore, loans LoanChecker, events EventLogger) *UsersController {
	return &UsersController{
		users:  store,
		loans:  loans,
		events: eventsOrNop(events),
	}
}

// Me returns the caller's profile including the lending counters.
// GET /api/users/me
func (uc *UsersController) Me(c *gin.Context) {
	user, err := uc.users.GetUserByID(GetUserID(c))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondNotFound(c, "user", borrowing.CodeUserNotFound)
			return
		}
		respondInternalError(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

type profileRequest struct {
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	Surname   *string `json:"surname"`
	AvatarURL *string `json:"avatar_url"`
}

// changedOnly drops fields equal to the stored value.
func changedOnly(req profileRequest, current *entities.User) users.ProfilePatch {
	var patch users.ProfilePatch
	if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), current.Email) {
		patch.Email = req.Email
	}
	if req.Name != nil && *req.Name != current.Name {
		patch.Name = req.Name
	}
	if req.Surname != nil && *req.Surname != current.Surname {
		patch.Surname = req.Surname
	}
	if req.AvatarURL != nil && (current.AvatarURL == nil || *req.AvatarURL != *current.AvatarURL) {
		patch.AvatarURL = req.AvatarURL
	}
	return patch
}

// UpdateProfile edits the caller's own profile.
// PUT /api/users/:id
func (uc *UsersController) UpdateProfile(c *gin.Context) {
	id := c.Param("id")
	if id != GetUserID(c) {
		respondForbidden(c, codeForbidden, "you can only edit your own profile")
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Email != nil {
		if err := auth.ValidateEmail(strings.TrimSpace(*req.Email)); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}
	if (req.Name != nil && strings.TrimSpace(*req.Name) == "") || (req.Surname != nil && strings.TrimSpace(*req.Surname) == "") {
		respondBadRequest(c, "name and surname cannot be empty")
		return
	}

	current, err := uc.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondNotFound(c, "user", borrowing.CodeUserNotFound)
			return
		}
		respondInternalError(c, err, "load profile")
		return
	}

	patch := changedOnly(req, current)
	if patch.IsEmpty() {
		c.JSON(http.StatusOK, current)
		return
	}

	updated, err := uc.users.UpdateProfile(id, patch)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserExists):
			respondError(c, http.StatusConflict, codeEmailTaken, "email is already registered")
		case errors.Is(err, users.ErrUserNotFound):
			respondNotFound(c, "user", borrowing.CodeUserNotFound)
		default:
			respondInternalError(c, err, "update profile")
		}
		return
	}

	uc.events.LogAccount(id, "profile_update", "Updated profile", map[string]any{"fields": patchFields(patch)})
	c.JSON(http.StatusOK, updated)
}

func patchFields(p users.ProfilePatch) []string {
	var fields []string
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Surname != nil {
		fields = append(fields, "surname")
	}
	if p.AvatarURL != nil {
		fields = append(fields, "avatar_url")
	}
	return fields
}

// DeleteUser removes an account. Admins may delete anyone, members only
// themselves, and never while the account still holds books.
// DELETE /api/users/:id
func (uc *UsersController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	callerID := GetUserID(c)
	if id != callerID && !auth.IsAdmin(c) {
		respondForbidden(c, codeForbidden, "you can only delete your own account")
		return
	}

	target, err := uc.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondNotFound(c, "user", borrowing.CodeUserNotFound)
			return
		}
		respondInternalError(c, err, "load user")
		return
	}

	hasLoans, err := uc.loans.HasActiveLoans(c.Request.Context(), id)
	if err != nil {
		respondBorrowingError(c, err)
		return
	}
	if hasLoans {
		respondForbidden(c, codeActiveLoans, "return all borrowed books before deleting the account")
		return
	}

	if err := uc.users.DeleteUser(id); err != nil {
		switch {
		case errors.Is(err, users.ErrUserHasLoans):
			respondForbidden(c, codeActiveLoans, "return all borrowed books before deleting the account")
		case errors.Is(err, users.ErrUserNotFound):
			respondNotFound(c, "user", borrowing.CodeUserNotFound)
		default:
			respondInternalError(c, err, "delete user")
		}
		return
	}

	uc.events.LogDelete(callerID, "user", id, target.Username)
	respondSuccess(c, "User deleted.")
}
