package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"notes-otp/internal/domain"
	"notes-otp/internal/repository"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
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
	if m.createErr != nil {
		return m.createErr
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
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

type mockOTPRepo struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]domain.OTP
	sweepErr   error
	sweepCalls int
	readDelay  time.Duration
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
	m.mu.Unlock()
	if m.readDelay > 0 {
		time.Sleep(m.readDelay)
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
	m.sweepCalls++
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	var n int64
	for id, row := range m.rows {
		if row.ExpiresAt.Before(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// insert guarda una fila tal cual, para escenarios con codigo conocido.
func (m *mockOTPRepo) insert(userID, code string, expiresAt time.Time) domain.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	otp := domain.OTP{ID: m.nextID, UserID: userID, Code: code, ExpiresAt: expiresAt}
	m.rows[otp.ID] = otp
	return otp
}

func (m *mockOTPRepo) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n
}

type mockNoteRepo struct {
	mu    sync.Mutex
	notes map[string]domain.Note
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]domain.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, note domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.ID] = note
	return nil
}

func (m *mockNoteRepo) ListByUserID(_ context.Context, userID string) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return false, nil
	}
	delete(m.notes, id)
	return true, nil
}

type mockEmailSender struct {
	mu          sync.Mutex
	lastTo      string
	lastCode    string
	lastExpires time.Time
	sent        int
	err         error
}

func (m *mockEmailSender) SendOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	m.lastCode = code
	m.lastExpires = expiresAt
	m.sent++
	return m.err
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
