package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notes-otp/internal/domain"
	"notes-otp/internal/repository"
	"notes-otp/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	err          error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return domain.User{}, m.err
	}
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

type mockOTPRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.OTP
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{rows: make(map[int64]domain.OTP)}
}

func (m *mockOTPRepo) Create(_ context.Context, otp domain.OTP) (domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	otp.ID = m.nextID
	otp.CreatedAt = time.Now().UTC()
	m.rows[otp.ID] = otp
	return otp, nil
}

func (m *mockOTPRepo) GetLatestByUserID(_ context.Context, userID string) (domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest domain.OTP
		found  bool
	)
	for _, row := range m.rows {
		if row.UserID == userID && (!found || row.ID > latest.ID) {
			latest = row
			found = true
		}
	}
	if !found {
		return domain.OTP{}, pgx.ErrNoRows
	}
	return latest, nil
}

func (m *mockOTPRepo) DeleteByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *mockOTPRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.UserID == userID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockOTPRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.ExpiresAt.Before(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type mockNoteRepo struct {
	mu    sync.Mutex
	notes map[string]domain.Note
	err   error
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]domain.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, note domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.notes[note.ID] = note
	return nil
}

func (m *mockNoteRepo) ListByUserID(_ context.Context, userID string) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	notes := make([]domain.Note, 0)
	for _, note := range m.notes {
		if note.UserID == userID {
			notes = append(notes, note)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

func (m *mockNoteRepo) DeleteByIDAndUserID(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return false, nil
	}
	delete(m.notes, id)
	return true, nil
}

type mockEmailSender struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sent     int
	err      error
}

func (m *mockEmailSender) SendOTP(_ context.Context, toEmail string, code string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	m.lastCode = code
	m.sent++
	return m.err
}

func (m *mockEmailSender) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

// testApp arma el router completo sobre repositorios en memoria.
type testApp struct {
	users  *mockUserRepo
	otps   *mockOTPRepo
	notes  *mockNoteRepo
	sender *mockEmailSender
	jwt    *service.JWTService
	router *gin.Engine
}

func newTestApp() *testApp {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	app := &testApp{
		users:  newMockUserRepo(),
		otps:   newMockOTPRepo(),
		notes:  newMockNoteRepo(),
		sender: &mockEmailSender{},
		jwt:    service.NewJWTService("test-secret", time.Hour, "notes-otp"),
	}

	otpSvc := service.NewOTPService(logger, app.otps, service.NewMemoryOTPLocker(), service.OTPConfig{TTL: 5 * time.Minute})
	authSvc := service.NewAuthService(logger, app.users, otpSvc, app.sender)
	noteSvc := service.NewNoteService(app.notes)

	app.router = NewRouter(
		logger,
		RouterConfig{AllowedOrigins: []string{"*"}, RequestTimeout: 5 * time.Second},
		app.jwt,
		NewAuthHandler(logger, authSvc, app.jwt),
		NewNoteHandler(logger, noteSvc),
		NewHealthHandler(logger, nil),
	)
	return app
}

// seedUser guarda un usuario y devuelve un token de sesion valido para el.
func (a *testApp) seedUser(id, email string) string {
	user := domain.User{ID: id, Email: email, CreatedAt: time.Now().UTC()}
	_ = a.users.Create(context.Background(), user)
	session, _ := a.jwt.Issue(user)
	return session.Token
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return performAuthRequest(r, method, path, "", body)
}

func performAuthRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}
