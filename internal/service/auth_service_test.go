package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatline/internal/config"
	"chatline/internal/domain"
	"chatline/internal/security"
)

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*domain.User // by username
	hashes map[string]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[string]*domain.User),
		hashes: make(map[string]string),
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *domain.User, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return domain.ErrUserExists
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	f.users[u.Username] = &cp
	f.hashes[u.Username] = hash
	return nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*domain.User, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, "", domain.ErrUserNotFound
	}
	return u, f.hashes[username], nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserStore) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) SearchUsers(_ context.Context, _ string) ([]domain.User, error) {
	return []domain.User{}, nil
}

func (f *fakeUserStore) ListUsersExcept(_ context.Context, _ string) ([]domain.User, error) {
	return []domain.User{}, nil
}

func (f *fakeUserStore) ChatPartners(_ context.Context, _ string) ([]domain.User, error) {
	return []domain.User{}, nil
}

type recordingMailer struct {
	email string
	otp   string
}

func (r *recordingMailer) SendOTP(_ context.Context, email, otp string) error {
	r.email = email
	r.otp = otp
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "chatline",
		JWTAudience:    "chatline-web",
		AccessTokenTTL: time.Hour,
		OTPTTL:         10 * time.Minute,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	svc := NewAuthService(newFakeUserStore(), cfg, &recordingMailer{}, nil)

	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	token, got, err := svc.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// The issued token resolves back to the user id.
	uid, err := security.VerifyAccess(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserStore(), testConfig(), &recordingMailer{}, nil)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@example.com", "pw")
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserStore(), testConfig(), &recordingMailer{}, nil)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestOTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	mailer := &recordingMailer{}
	svc := NewAuthService(newFakeUserStore(), testConfig(), mailer, nil)

	otpToken, err := svc.SendOTP(ctx, "new@example.com")
	require.NoError(t, err)
	require.Len(t, mailer.otp, 6)
	assert.Equal(t, "new@example.com", mailer.email)

	require.NoError(t, svc.VerifyOTP(ctx, otpToken, mailer.otp))
	assert.ErrorIs(t, svc.VerifyOTP(ctx, otpToken, "000000x"), domain.ErrInvalidOTP)
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "not-a-token", mailer.otp), domain.ErrInvalidToken)
}

func TestSendOTPExistingEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserStore(), testConfig(), &recordingMailer{}, nil)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.SendOTP(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrEmailConflict)
}
