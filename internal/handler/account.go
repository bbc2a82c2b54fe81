package handler

import (
	"context"
	"net/http"

	"coinchat/internal/model"
	"coinchat/internal/service"
)

// Accounts is the account surface the handlers need.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Guest(ctx context.Context) (*service.AuthResult, error)
	Profile(ctx context.Context, userID int64) (*service.Profile, error)
	Tasks(ctx context.Context, userID int64) ([]*model.TaskProgress, error)
	Catalog(ctx context.Context) ([]*model.Task, error)
}

// AccountHandler handles sign up, sign in and profile reads.
type AccountHandler struct {
	accounts Accounts
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts Accounts) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool     `json:"success"`
	User    userView `json:"user"`
	Token   string   `json:"token"`
}

func writeAuth(w http.ResponseWriter, status int, res *service.AuthResult) {
	writeJSON(w, status, authResponse{Success: true, User: newUserView(res.User), Token: res.Token})
}

// HandleRegister handles POST /auth/register.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeAuth(w, http.StatusCreated, res)
}

// HandleLogin handles POST /auth/login.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeAuth(w, http.StatusOK, res)
}

// HandleGuest handles POST /auth/guest.
func (h *AccountHandler) HandleGuest(w http.ResponseWriter, r *http.Request) {
	res, err := h.accounts.Guest(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeAuth(w, http.StatusCreated, res)
}

// HandleProfile handles GET /game/profile.
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	p, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"user":           newUserView(p.User),
		"titles":         newTitleViews(p.Titles),
		"tasksCompleted": p.TasksCompleted,
		"tasksTotal":     p.TasksTotal,
	})
}

// HandleTasks handles GET /game/tasks.
func (h *AccountHandler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	tasks, err := h.accounts.Tasks(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": newTaskViews(tasks)})
}

// HandleCatalog handles GET /game/catalog.
func (h *AccountHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.accounts.Catalog(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": newCatalogViews(tasks)})
}
