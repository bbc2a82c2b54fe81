package handler

import (
	"context"
	"net/http"

	"coinchat/internal/progression"
)

// Activities is the activity surface the handlers need.
type Activities interface {
	UpdateTime(ctx context.Context, userID, minutes int64) (*progression.Result, error)
	RecordAction(ctx context.Context, userID int64, action string, value int64) (*progression.Result, error)
}

// GameHandler handles time and action reports.
type GameHandler struct {
	activities Activities
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(activities Activities) *GameHandler {
	return &GameHandler{activities: activities}
}

type updateTimeRequest struct {
	UserID  int64 `json:"userId"`
	Minutes int64 `json:"minutes"`
}

type actionRequest struct {
	UserID     int64  `json:"userId"`
	ActionType string `json:"actionType"`
	Action     string `json:"action"`
	Value      *int64 `json:"value"`
}

// tag prefers actionType and falls back to the action alias.
func (r actionRequest) tag() string {
	if r.ActionType != "" {
		return r.ActionType
	}
	return r.Action
}

// HandleUpdateTime handles POST /game/update-time.
func (h *GameHandler) HandleUpdateTime(w http.ResponseWriter, r *http.Request) {
	var req updateTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.activities.UpdateTime(r.Context(), userID, req.Minutes)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"coins":          res.NewBalance,
		"timeSpent":      res.TimeSpent,
		"completedTasks": completedTasks(res.CompletedTasks),
	})
}

// HandleAction handles POST /game/action. The tag is read from actionType
// (action is accepted as an alias) and the value defaults to 1.
func (h *GameHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	value := int64(1)
	if req.Value != nil {
		value = *req.Value
	}

	res, err := h.activities.RecordAction(r.Context(), userID, req.tag(), value)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"coins":          res.NewBalance,
		"completedTasks": completedTasks(res.CompletedTasks),
	})
}
