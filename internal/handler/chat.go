package handler

import (
	"context"
	"net/http"

	"coinchat/internal/model"
	"coinchat/internal/service"
)

// Chat is the chat room surface the handlers need.
type Chat interface {
	Send(ctx context.Context, userID int64, message string) (*service.ChatResult, error)
	History(ctx context.Context, limit int, sinceID int64) ([]*model.ChatMessage, error)
}

// ChatHandler handles the shared chat room.
type ChatHandler struct {
	chat Chat
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat Chat) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageRequest struct {
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
}

// HandleHistory handles GET /chat.
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt64(r, "limit")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sinceID, err := queryInt64(r, "sinceId")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	messages, err := h.chat.History(r.Context(), int(limit), sinceID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": views})
}

// HandleSend handles POST /chat.
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.chat.Send(r.Context(), userID, req.Message)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        newMessageView(res.Message),
		"coins":          res.Coins,
		"completedTasks": completedTasks(res.CompletedTasks),
	})
}
