package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/observability"
	"chatline/internal/presence"
	"chatline/internal/store"
)

// VerifyFunc checks a bearer credential and returns the user id it belongs to.
type VerifyFunc func(token string) (string, error)

// Producer publishes relay events to a broker for downstream consumers.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Bus fans an outbound delivery out to sibling instances whose registry may
// hold the target user.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
}

// Engine validates inbound real-time events, persists where required, and
// forwards them to the correct connection via the presence registry. A
// connection is Unauthenticated until its login event verifies; events from an
// unauthenticated connection are dropped, never answered.
type Engine struct {
	registry *presence.Registry
	store    store.ConversationStore
	verify   VerifyFunc

	producer Producer // optional
	topic    string
	bus      Bus // optional
	instance string

	service string
}

func NewEngine(registry *presence.Registry, cs store.ConversationStore, verify VerifyFunc, service string) *Engine {
	return &Engine{
		registry: registry,
		store:    cs,
		verify:   verify,
		service:  service,
	}
}

// WithProducer attaches a broker producer; message-sent events are published
// to topic after a successful append.
func (e *Engine) WithProducer(p Producer, topic string) *Engine {
	e.producer = p
	e.topic = topic
	return e
}

// WithBus attaches a cross-instance fan-out bus.
func (e *Engine) WithBus(b Bus, instanceID string) *Engine {
	e.bus = b
	e.instance = instanceID
	return e
}

// Dispatch routes one inbound frame. senderID is the authenticated user behind
// the connection, empty while unauthenticated. The possibly-updated sender id
// is returned so the caller can carry connection state.
func (e *Engine) Dispatch(ctx context.Context, c presence.Conn, senderID string, f Frame) string {
	switch f.Event {
	case EventLogin:
		var p LoginPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		uid, err := e.Authenticate(ctx, c, p.Token)
		if err != nil {
			// Credential rejected: the connection stays unauthenticated and no
			// error event goes back to the client.
			e.dropped(ctx, f.Event, "auth_failed", err)
			return senderID
		}
		return uid

	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.SendMessage(ctx, senderID, p)

	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.Typing(ctx, senderID, p)

	case EventCallUser:
		var p CallUserPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.CallUser(ctx, senderID, p)

	case EventAcceptCall:
		var p AcceptCallPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.AcceptCall(ctx, senderID, p)

	case EventRejectCall:
		var p RejectCallPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.RejectCall(ctx, senderID, p)

	case EventICECandidate:
		var p ICECandidatePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.ICECandidate(ctx, senderID, p)

	case EventEndCall:
		var p EndCallPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			e.dropped(ctx, f.Event, "bad_payload", err)
			return senderID
		}
		e.EndCall(ctx, senderID, p)

	default:
		e.dropped(ctx, f.Event, "unknown_event", nil)
	}

	return senderID
}

// Authenticate verifies the bearer credential and, on success, registers the
// connection as the user's presence entry.
func (e *Engine) Authenticate(ctx context.Context, c presence.Conn, token string) (string, error) {
	userID, err := e.verify(token)
	if err != nil {
		return "", err
	}

	e.registry.Register(userID, c)
	observability.RelayEventsTotal.WithLabelValues(e.service, EventLogin, "ok").Inc()
	observability.GetLogger(ctx).Info("user logged in",
		zap.String("user_id", userID), zap.String("session_id", c.SessionID()))
	return userID, nil
}

// SendMessage persists the message and delivers it to both participants that
// are online. The append happens before any emit so a client that re-fetches
// history right after the live event sees its own message.
func (e *Engine) SendMessage(ctx context.Context, senderID string, p SendMessagePayload) {
	log := observability.GetLogger(ctx)

	if senderID == "" || p.ReceiverID == "" {
		e.dropped(ctx, EventSendMessage, "unresolved_sender", nil)
		return
	}

	msg, err := domain.NewMessage(uuid.NewString(), senderID, p.ReceiverID, p.Content, p.File, time.Now().UTC())
	if err != nil {
		e.dropped(ctx, EventSendMessage, "invalid", err)
		return
	}

	if err := e.store.AppendMessage(ctx, msg); err != nil {
		// Liveness over strictness: the append failure is logged and delivery
		// is still attempted, so both peers at least see the live event.
		log.Error("failed to persist message",
			zap.String("conversation", msg.ConversationKey), zap.Error(err))
	} else {
		observability.MessagesPersistedTotal.WithLabelValues(e.service).Inc()
	}

	payload := encodeFrame(EventReceiveMessage, msg)
	e.deliver(ctx, EventReceiveMessage, msg.SenderID, payload)
	if msg.ReceiverID != msg.SenderID {
		e.deliver(ctx, EventReceiveMessage, msg.ReceiverID, payload)
	}

	if e.producer != nil {
		if err := e.producer.Publish(ctx, e.topic, []byte(msg.ConversationKey), payload); err != nil {
			log.Error("failed to publish message event", zap.Error(err))
		}
	}

	observability.RelayEventsTotal.WithLabelValues(e.service, EventSendMessage, "ok").Inc()
}

// Typing forwards a fire-and-forget typing indicator. Nothing is persisted.
func (e *Engine) Typing(ctx context.Context, senderID string, p TypingPayload) {
	if senderID == "" || p.ToUserID == "" {
		e.dropped(ctx, EventTyping, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventUserTyping, p.ToUserID, encodeFrame(EventUserTyping, UserTypingPayload{
		FromUserID: senderID,
		Username:   p.Username,
	}))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventTyping, "ok").Inc()
}

// CallUser relays a call invite to the callee. An offline callee means the
// invite is dropped with no notification to the caller.
func (e *Engine) CallUser(ctx context.Context, senderID string, p CallUserPayload) {
	if senderID == "" || p.ToUserID == "" {
		e.dropped(ctx, EventCallUser, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventIncomingCall, p.ToUserID, encodeFrame(EventIncomingCall, IncomingCallPayload{
		FromUserID:   p.FromUserID,
		FromUsername: p.FromUsername,
		RoomID:       p.RoomID,
	}))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventCallUser, "ok").Inc()
}

func (e *Engine) AcceptCall(ctx context.Context, senderID string, p AcceptCallPayload) {
	if senderID == "" || p.ToUserID == "" {
		e.dropped(ctx, EventAcceptCall, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventCallAccepted, p.ToUserID, encodeFrame(EventCallAccepted, CallAcceptedPayload{RoomID: p.RoomID}))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventAcceptCall, "ok").Inc()
}

func (e *Engine) RejectCall(ctx context.Context, senderID string, p RejectCallPayload) {
	if senderID == "" || p.ToUserID == "" {
		e.dropped(ctx, EventRejectCall, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventCallRejected, p.ToUserID, encodeFrame(EventCallRejected, CallRejectedPayload{FromUserID: p.FromUserID}))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventRejectCall, "ok").Inc()
}

// ICECandidate relays the candidate verbatim; the payload is opaque here.
func (e *Engine) ICECandidate(ctx context.Context, senderID string, p ICECandidatePayload) {
	if senderID == "" || p.To == "" {
		e.dropped(ctx, EventICECandidate, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventICECandidate, p.To, encodeFrame(EventICECandidate, p.Candidate))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventICECandidate, "ok").Inc()
}

func (e *Engine) EndCall(ctx context.Context, senderID string, p EndCallPayload) {
	if senderID == "" || p.To == "" {
		e.dropped(ctx, EventEndCall, "unresolved_sender", nil)
		return
	}

	e.deliver(ctx, EventCallEnded, p.To, encodeFrame(EventCallEnded, nil))
	observability.RelayEventsTotal.WithLabelValues(e.service, EventEndCall, "ok").Inc()
}

// Disconnect removes the connection's presence entry. The registry matches by
// handle identity, so a stale disconnect cannot evict a newer login.
func (e *Engine) Disconnect(ctx context.Context, c presence.Conn) {
	e.registry.Unregister(c)
}

// remoteEnvelope carries a targeted delivery between instances over the bus.
type remoteEnvelope struct {
	Origin   string          `json:"origin"`
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// deliver sends payload to the target user's connection if one is registered
// locally. A miss is a recognized state, not an error; when a bus is attached
// the delivery is offered to sibling instances instead.
func (e *Engine) deliver(ctx context.Context, event, userID string, payload []byte) bool {
	if c, ok := e.registry.Resolve(userID); ok {
		return c.TrySend(payload)
	}

	observability.DeliveryMissesTotal.WithLabelValues(e.service, event).Inc()

	if e.bus != nil {
		env, err := json.Marshal(remoteEnvelope{Origin: e.instance, TargetID: userID, Payload: payload})
		if err == nil {
			if err := e.bus.Publish(ctx, env); err != nil {
				observability.GetLogger(ctx).Error("bus publish failed",
					zap.String("target", userID), zap.Error(err))
			}
		}
	}
	return false
}

// DeliverRemote handles a bus delivery originating on a sibling instance. It
// only attempts local delivery; nothing is re-published.
func (e *Engine) DeliverRemote(payload []byte) {
	ctx := context.Background()
	var env remoteEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		observability.GetLogger(ctx).Error("bad bus envelope", zap.Error(err))
		return
	}
	if env.Origin == e.instance {
		return
	}
	if c, ok := e.registry.Resolve(env.TargetID); ok {
		c.TrySend(env.Payload)
	}
}

func (e *Engine) dropped(ctx context.Context, event, reason string, err error) {
	observability.RelayEventsTotal.WithLabelValues(e.service, event, reason).Inc()
	observability.GetLogger(ctx).Debug("event dropped",
		zap.String("event", event), zap.String("reason", reason), zap.Error(err))
}
