package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/middleware"
	"chatline/internal/observability"
	"chatline/internal/store"
	"chatline/internal/transport"
)

// ChatHandler serves conversation history and chat partner listings.
type ChatHandler struct {
	conversations store.ConversationStore
	users         store.UserStore
}

func NewChatHandler(conversations store.ConversationStore, users store.UserStore) *ChatHandler {
	return &ChatHandler{conversations: conversations, users: users}
}

// History GET /api/chat/messages/{otherId}
//
// Returns the full ordered history between the authenticated user and the
// other participant. A conversation with no messages yields an empty list and
// creates the empty conversation record.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	otherID := chi.URLParam(r, "otherId")

	if otherID == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "otherId is required")
		return
	}

	key := domain.ConversationKey(userID, otherID)
	msgs, err := h.conversations.History(r.Context(), key)
	if err != nil {
		observability.GetLogger(r.Context()).Error("history fetch failed",
			zap.String("conversation", key), zap.Error(err))
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "failed to fetch history")
		return
	}

	transport.WriteJSON(w, http.StatusOK, msgs)
}

// Users GET /api/chat/users
//
// Lists users the caller has chatted with, plus every other account to start
// new conversations from.
func (h *ChatHandler) Users(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	chatted, err := h.users.ChatPartners(r.Context(), userID)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "failed to fetch users")
		return
	}

	all, err := h.users.ListUsersExcept(r.Context(), userID)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "failed to fetch users")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"chattedUsers": chatted,
		"allUsers":     all,
	})
}
