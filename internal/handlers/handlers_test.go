package handlers

import (
	"context"
	"strings"
	"time"

	"chatline/internal/config"
	"chatline/internal/domain"
	"chatline/internal/security"
)

// In-memory stores shared by the handler tests.

type memUserStore struct {
	users  map[string]*domain.User // by id
	hashes map[string]string       // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users:  make(map[string]*domain.User),
		hashes: make(map[string]string),
	}
}

func (s *memUserStore) CreateUser(_ context.Context, u *domain.User, hash string) error {
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	s.users[u.ID] = u
	s.hashes[u.ID] = hash
	return nil
}

func (s *memUserStore) GetUserByUsername(_ context.Context, username string) (*domain.User, string, error) {
	for id, u := range s.users {
		if u.Username == username {
			return u, s.hashes[id], nil
		}
	}
	return nil, "", domain.ErrUserNotFound
}

func (s *memUserStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) SearchUsers(_ context.Context, query string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range s.users {
		if strings.Contains(u.Username, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memUserStore) ListUsersExcept(_ context.Context, id string) ([]domain.User, error) {
	var out []domain.User
	for uid, u := range s.users {
		if uid != id {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memUserStore) ChatPartners(_ context.Context, id string) ([]domain.User, error) {
	return nil, nil
}

type memConvStore struct {
	messages map[string][]domain.Message
	fail     bool
}

func newMemConvStore() *memConvStore {
	return &memConvStore{messages: make(map[string][]domain.Message)}
}

func (s *memConvStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.messages[msg.ConversationKey] = append(s.messages[msg.ConversationKey], *msg)
	return nil
}

func (s *memConvStore) History(_ context.Context, key string) ([]domain.Message, error) {
	if s.fail {
		return nil, context.DeadlineExceeded
	}
	if _, ok := s.messages[key]; !ok {
		s.messages[key] = []domain.Message{}
	}
	return s.messages[key], nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "chatline",
		JWTAudience:    "chatline-web",
		AccessTokenTTL: time.Hour,
		OTPTTL:         10 * time.Minute,
		ServiceName:    "chatline-test",
	}
}

func seedUser(s *memUserStore, id, username, email, password string) {
	hash, _ := security.HashPassword(password)
	s.users[id] = &domain.User{ID: id, Username: username, Email: email}
	s.hashes[id] = hash
}
