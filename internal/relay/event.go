package relay

import (
	"encoding/json"

	"chatline/internal/domain"
)

// Inbound event names (client -> server).
const (
	EventLogin        = "login"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"
	EventCallUser     = "call_user"
	EventAcceptCall   = "accept_call"
	EventRejectCall   = "reject_call"
	EventICECandidate = "ice-candidate"
	EventEndCall      = "end-call"
)

// Outbound event names (server -> client).
const (
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventIncomingCall   = "incoming_call"
	EventCallAccepted   = "call_accepted"
	EventCallRejected   = "call_rejected"
	EventCallEnded      = "call-ended"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type LoginPayload struct {
	Token string `json:"token"`
}

type SendMessagePayload struct {
	ReceiverID string             `json:"receiverId"`
	Content    string             `json:"content"`
	File       *domain.Attachment `json:"file,omitempty"`
}

type TypingPayload struct {
	ToUserID string `json:"toUserId"`
	Username string `json:"username"`
}

type UserTypingPayload struct {
	FromUserID string `json:"fromUserId"`
	Username   string `json:"username"`
}

type CallUserPayload struct {
	ToUserID     string `json:"toUserId"`
	FromUserID   string `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
	RoomID       string `json:"roomID"`
}

type IncomingCallPayload struct {
	FromUserID   string `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
	RoomID       string `json:"roomID"`
}

type AcceptCallPayload struct {
	ToUserID   string `json:"toUserId"`
	FromUserID string `json:"fromUserId"`
	RoomID     string `json:"roomID"`
}

type CallAcceptedPayload struct {
	RoomID string `json:"roomID"`
}

type RejectCallPayload struct {
	ToUserID   string `json:"toUserId"`
	FromUserID string `json:"fromUserId"`
}

type CallRejectedPayload struct {
	FromUserID string `json:"fromUserId"`
}

type ICECandidatePayload struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type EndCallPayload struct {
	To string `json:"to"`
}

// encodeFrame marshals an outbound frame. Marshal failures can only come from
// programmer error in the payload types, so they reduce to a nil payload.
func encodeFrame(event string, data interface{}) []byte {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		raw = b
	}
	b, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		return nil
	}
	return b
}
