package auth

import (
	"context"
	"strings"

	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/logging"
)

// Notifier delivers account links to users.
type Notifier interface {
	SendActivation(ctx context.Context, user *entities.User, link string) error
	SendPasswordReset(ctx context.Context, user *entities.User, link string) error
}

// LogNotifier writes the links to the request logger instead of sending
// mail. It is the default for development and tests.
type LogNotifier struct{}

func (LogNotifier) SendActivation(ctx context.Context, user *entities.User, link string) error {
	logging.FromContext(ctx).Info("activation link issued", "user_id", user.ID, "email", user.Email, "link", link)
	return nil
}

func (LogNotifier) SendPasswordReset(ctx context.Context, user *entities.User, link string) error {
	logging.FromContext(ctx).Info("password reset link issued", "user_id", user.ID, "email", user.Email, "link", link)
	return nil
}

func accountLink(baseURL, path, token string) string {
	return strings.TrimRight(baseURL, "/") + path + token
}

var _ Notifier = LogNotifier{}
