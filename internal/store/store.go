package store

import (
	"context"

	"chatline/internal/domain"
)

// ConversationStore persists ordered message history keyed by the canonical
// participant-pair key.
type ConversationStore interface {
	// AppendMessage durably appends a message to its conversation, creating the
	// conversation if absent. Concurrent appends to the same key must both
	// persist; this is an atomic append, never read-modify-write.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// History returns all messages for the key in insertion order. A
	// conversation with no prior messages yields an empty slice, and the empty
	// conversation record is created as a side effect of the first fetch.
	History(ctx context.Context, key string) ([]domain.Message, error)
}

// UserStore owns account records.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User, passwordHash string) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, string, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
	ListUsersExcept(ctx context.Context, id string) ([]domain.User, error)
	ChatPartners(ctx context.Context, id string) ([]domain.User, error)
}
