package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// asUser injects an authenticated caller the way auth.Middleware does.
func asUser(id string, role entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set(auth.ContextKeyUserID, id)
			c.Set(auth.ContextKeyRole, role)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeBearer)
		}
		c.Next()
	}
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type lenderCall struct {
	op     string
	userID string
	bookID uint
}

type fakeLender struct {
	mu        sync.Mutex
	calls     []lenderCall
	receipt   *borrowing.Receipt
	err       error
	active    []entities.Loan
	history   []entities.Loan
	hasActive bool
}

func (f *fakeLender) record(op, userID string, bookID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, lenderCall{op, userID, bookID})
}

func (f *fakeLender) Borrow(_ context.Context, userID string, bookID uint) (*borrowing.Receipt, error) {
	f.record("borrow", userID, bookID)
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func (f *fakeLender) Return(_ context.Context, userID string, bookID uint) error {
	f.record("return", userID, bookID)
	return f.err
}

func (f *fakeLender) ListActive(_ context.Context, userID string) ([]entities.Loan, error) {
	f.record("active", userID, 0)
	return f.active, f.err
}

func (f *fakeLender) ListHistory(_ context.Context, userID string) ([]entities.Loan, error) {
	f.record("history", userID, 0)
	return f.history, f.err
}

func (f *fakeLender) HasActiveLoans(_ context.Context, userID string) (bool, error) {
	f.record("has_active", userID, 0)
	return f.hasActive, f.err
}

type fakeCatalog struct {
	books     map[uint]*entities.Book
	lastList  books.ListParams
	added     []books.NewBook
	listErr   error
	deleteErr error
}

func newFakeCatalog(list ...*entities.Book) *fakeCatalog {
	f := &fakeCatalog{books: make(map[uint]*entities.Book)}
	for _, b := range list {
		f.books[b.ID] = b
	}
	return f
}

func (f *fakeCatalog) ListBooks(params books.ListParams) ([]entities.Book, int64, error) {
	f.lastList = params
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	out := make([]entities.Book, 0, len(f.books))
	for id := uint(1); len(out) < len(f.books); id++ {
		if b, ok := f.books[id]; ok {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCatalog) GetBookDetails(id uint) (*entities.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, books.ErrBookNotFound
	}
	return b, nil
}

func (f *fakeCatalog) AddBook(input books.NewBook) (*entities.Book, error) {
	if input.Title == "" {
		return nil, books.ErrTitleRequired
	}
	f.added = append(f.added, input)
	b := &entities.Book{
		ID:                 uint(len(f.books) + 1),
		Title:              input.Title,
		AvailabilityStatus: entities.AvailabilityAvailable,
	}
	f.books[b.ID] = b
	return b, nil
}

func (f *fakeCatalog) DeleteBook(id uint) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.books[id]; !ok {
		return books.ErrBookNotFound
	}
	delete(f.books, id)
	return nil
}

type fakeUsers struct {
	users     map[string]*entities.User
	patches   []users.ProfilePatch
	updateErr error
	deleted   []string
}

func newFakeUsers(list ...*entities.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*entities.User)}
	for _, u := range list {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUserByID(id string) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) UpdateProfile(id string, patch users.ProfilePatch) (*entities.User, error) {
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Surname != nil {
		u.Surname = *patch.Surname
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = patch.AvatarURL
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) DeleteUser(id string) error {
	u, ok := f.users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	if u.CurrentBorrowed > 0 {
		return users.ErrUserHasLoans
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAudit struct {
	events     []entities.AuditEvent
	lastFilter audit.Filter
}

func (f *fakeAudit) ListEvents(filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	f.lastFilter = filter
	return f.events, int64(len(f.events)), nil
}

type loggedEvent struct {
	kind   string
	actor  string
	action string
	entity string
}

type fakeEvents struct {
	mu     sync.Mutex
	logged []loggedEvent
}

func (f *fakeEvents) add(e loggedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, e)
}

func (f *fakeEvents) LogCatalog(userID, action string, _ uint, title string) {
	f.add(loggedEvent{"catalog", userID, action, title})
}

func (f *fakeEvents) LogAccount(userID, action, _ string, _ map[string]any) {
	f.add(loggedEvent{"account", userID, action, ""})
}

func (f *fakeEvents) LogDelete(actorID, entityType, entityID, _ string) {
	f.add(loggedEvent{"delete", actorID, entityType, entityID})
}
