package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatline/internal/config"
	"chatline/internal/domain"
	"chatline/internal/mail"
	"chatline/internal/observability"
	"chatline/internal/security"
	"chatline/internal/store"
)

// Publisher sends events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// AuthService handles registration, login and OTP verification.
type AuthService struct {
	users  store.UserStore
	cfg    *config.Config
	mailer mail.Sender
	pub    Publisher // optional
}

func NewAuthService(users store.UserStore, cfg *config.Config, mailer mail.Sender, pub Publisher) *AuthService {
	return &AuthService{users: users, cfg: cfg, mailer: mailer, pub: pub}
}

// Register creates a new user with a hashed password and publishes a
// user-created event so downstream consumers can react.
func (a *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
	}

	if err := a.users.CreateUser(ctx, u, hash); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	if a.pub != nil {
		payload, err := json.Marshal(map[string]string{"user_id": u.ID})
		if err == nil {
			if err := a.pub.Publish(ctx, a.cfg.KafkaUserTopic, []byte(u.ID), payload); err != nil {
				observability.GetLogger(ctx).Error("failed to publish user created event", zap.Error(err))
			}
		}
	}

	return u, nil
}

// Login authenticates by username/password and returns an access token.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, hash, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := security.ComparePassword(hash, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	observability.GetLogger(ctx).Info("user_login_success",
		zap.String("username", username), zap.String("user_id", u.ID))

	access, err := security.GenerateAccess(
		a.cfg.JWTSecret, u.ID, a.cfg.JWTIssuer, a.cfg.JWTAudience, a.cfg.AccessTokenTTL,
	)
	if err != nil {
		return "", nil, err
	}

	return access, u, nil
}

// SendOTP mails a one-time code to an unregistered address and returns a
// short-lived token carrying the code, so no pending state is stored.
func (a *AuthService) SendOTP(ctx context.Context, email string) (string, error) {
	exists, err := a.users.EmailExists(ctx, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.ErrEmailConflict
	}

	otp, err := security.RandomOTP()
	if err != nil {
		return "", err
	}

	if err := a.mailer.SendOTP(ctx, email, otp); err != nil {
		return "", err
	}

	return security.GenerateOTPToken(a.cfg.JWTSecret, email, otp, a.cfg.OTPTTL)
}

// VerifyOTP checks a submitted code against the one embedded in the token.
func (a *AuthService) VerifyOTP(_ context.Context, otpToken, otp string) error {
	_, expected, err := security.VerifyOTPToken(a.cfg.JWTSecret, otpToken)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if expected != otp {
		return domain.ErrInvalidOTP
	}
	return nil
}

// Profile fetches the account behind an authenticated request.
func (a *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return a.users.GetUserByID(ctx, userID)
}

// SearchUsers finds accounts by username substring.
func (a *AuthService) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	return a.users.SearchUsers(ctx, query)
}
