// Package handler exposes the messaging engine over HTTP. Handlers are thin:
// decode, delegate to the services, map errors to status codes.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"schoolchat/internal/chat/service"
	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
	"schoolchat/internal/notif"
	"schoolchat/internal/presence"
)

type ChatHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
	presence      *presence.Tracker
	notifications *notif.NotificationService
}

func NewChatHandler(
	conversations service.ConversationService,
	messages service.MessageService,
	tracker *presence.Tracker,
	notifications *notif.NotificationService,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		messages:      messages,
		presence:      tracker,
		notifications: notifications,
	}
}

// RegisterRoutes mounts the API under /api/v1. Everything except /health
// goes through the auth middleware.
func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.health).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.AuthMiddleware)

	api.HandleFunc("/conversations", h.listConversations).Methods("GET")
	api.HandleFunc("/conversations", h.startConversation).Methods("POST")
	api.HandleFunc("/conversations/{id}/read", h.markRead).Methods("POST")
	api.HandleFunc("/conversations/{id}/messages", h.listMessages).Methods("GET")
	api.HandleFunc("/conversations/{id}/messages", h.sendMessage).Methods("POST")
	api.HandleFunc("/conversations/{id}/typing", h.setTyping).Methods("POST")
	api.HandleFunc("/conversations/{id}/typing", h.typingUsers).Methods("GET")
	api.HandleFunc("/messages/{id}", h.editMessage).Methods("PATCH")
	api.HandleFunc("/messages/{id}", h.deleteMessage).Methods("DELETE")
	api.HandleFunc("/messages/{id}/reactions", h.toggleReaction).Methods("POST")
	api.HandleFunc("/notifications", h.listNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", h.readNotification).Methods("POST")
}

func (h *ChatHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	convs, err := h.conversations.ConversationsFor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *ChatHandler) startConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	conv, err := h.conversations.StartOrGet(r.Context(), userID, req.PeerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ChatHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["id"]
	if err := h.conversations.MarkRead(r.Context(), conversationID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["id"]
	messages, err := h.messages.VisibleMessages(r.Context(), conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*messageResponse, len(messages))
	for i, msg := range messages {
		out[i] = toMessageResponse(msg)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		Content     string     `json:"content"`
		Attachments []string   `json:"attachments"`
		ReplyTo     string     `json:"reply_to"`
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	conversationID := mux.Vars(r)["id"]

	var msg *dbmysql.Message
	var err error
	if req.ScheduledAt != nil {
		msg, err = h.messages.Schedule(r.Context(), conversationID, userID, req.Content, req.Attachments, req.ReplyTo, *req.ScheduledAt)
	} else {
		msg, err = h.messages.Send(r.Context(), conversationID, userID, req.Content, req.Attachments, req.ReplyTo)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *ChatHandler) editMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	messageID := mux.Vars(r)["id"]
	msg, err := h.messages.Edit(r.Context(), messageID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

func (h *ChatHandler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["id"]
	forEveryone, _ := strconv.ParseBool(r.URL.Query().Get("for_everyone"))

	if err := h.messages.Delete(r.Context(), messageID, userID, forEveryone); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) toggleReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	messageID := mux.Vars(r)["id"]
	msg, err := h.messages.ToggleReaction(r.Context(), messageID, userID, req.Emoji)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

func (h *ChatHandler) setTyping(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	h.presence.SetTyping(mux.Vars(r)["id"], userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) typingUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["id"]
	users := h.presence.TypingUsers(conversationID, userID, time.Now(), h.presence.TTL())
	writeJSON(w, http.StatusOK, map[string][]string{"typing": users})
}

func (h *ChatHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	notifications, err := h.notifications.GetUserNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *ChatHandler) readNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := h.notifications.MarkAsRead(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// messageResponse is the wire shape of a message: reactions are regrouped
// into the emoji -> users view the clients render.
type messageResponse struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	SenderID       string              `json:"sender_id"`
	SenderName     string              `json:"sender_name"`
	SenderAvatar   string              `json:"sender_avatar,omitempty"`
	Content        string              `json:"content"`
	Attachments    []string            `json:"attachments,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	IsSent         bool                `json:"is_sent"`
	ScheduledAt    *time.Time          `json:"scheduled_at,omitempty"`
	ReadBy         []string            `json:"read_by"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
	ReplyToID      string              `json:"reply_to_id,omitempty"`
	ReplyToSender  string              `json:"reply_to_sender,omitempty"`
	ReplyToSnippet string              `json:"reply_to_snippet,omitempty"`
	IsEdited       bool                `json:"is_edited"`
	IsDeleted      bool                `json:"is_deleted"`
}

func toMessageResponse(msg *dbmysql.Message) *messageResponse {
	return &messageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		SenderAvatar:   msg.SenderAvatar,
		Content:        msg.Content,
		Attachments:    msg.Attachments,
		Timestamp:      msg.Timestamp,
		IsSent:         msg.IsSent,
		ScheduledAt:    msg.ScheduledAt,
		ReadBy:         msg.ReadBy,
		Reactions:      msg.ReactionsByEmoji(),
		ReplyToID:      msg.ReplyToID,
		ReplyToSender:  msg.ReplyToSender,
		ReplyToSnippet: msg.ReplyToSnippet,
		IsEdited:       msg.IsEdited,
		IsDeleted:      msg.IsDeleted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsNotFound(err):
		status = http.StatusNotFound
	case common.IsPermissionDenied(err):
		status = http.StatusForbidden
	case common.IsValidation(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
