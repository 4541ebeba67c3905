package domain

import (
	"sort"
	"strings"
	"time"
)

const MaxMessageSize = 5000

// Attachment describes an uploaded file referenced by a message.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Message Invariants:
// 1. Content and attachment cannot both be absent.
// 2. SentAt is assigned by the server, never taken from the client.
// 3. Immutable after creation except the Read flag.
type Message struct {
	ID              string      `json:"id"`
	ConversationKey string      `json:"-"`
	SenderID        string      `json:"senderId"`
	ReceiverID      string      `json:"receiverId"`
	Content         string      `json:"content"`
	File            *Attachment `json:"file,omitempty"`
	SentAt          time.Time   `json:"timestamp"`
	Read            bool        `json:"read"`
}

// ConversationKey canonicalizes an unordered pair of user ids into a single
// deterministic key. Both participants map to the same conversation no matter
// who initiates.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

func NewMessage(id, senderID, receiverID, content string, file *Attachment, now time.Time) (*Message, error) {
	if id == "" || senderID == "" || receiverID == "" {
		return nil, ErrInvalidMessage
	}

	if content == "" && file == nil {
		return nil, ErrEmptyMessage
	}

	if len(content) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	return &Message{
		ID:              id,
		ConversationKey: ConversationKey(senderID, receiverID),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Content:         content,
		File:            file,
		SentAt:          now,
	}, nil
}
