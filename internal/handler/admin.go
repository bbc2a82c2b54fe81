package handler

import (
	"context"
	"net/http"

	"coinchat/internal/model"
	"coinchat/internal/progression"
	"coinchat/internal/service"
)

// Admin is the admin surface the handlers need.
type Admin interface {
	Authorize(ctx context.Context, adminID int64) error
	Online(ctx context.Context) ([]*model.User, error)
	GiveCoins(ctx context.Context, adminID, targetID, amount int64) (int64, error)
	Stats(ctx context.Context) (*model.SiteStats, error)
	Transactions(ctx context.Context, targetID int64, txType string) ([]*model.Transaction, error)
	Audit(ctx context.Context, targetID int64) (*service.LedgerAudit, error)
}

type adminKey struct{}

// WithAdminID returns a context carrying the authorized admin ID.
func WithAdminID(ctx context.Context, adminID int64) context.Context {
	return context.WithValue(ctx, adminKey{}, adminID)
}

// AdminIDFrom returns the authorized admin ID, if any.
func AdminIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(adminKey{}).(int64)
	return id, ok
}

// AdminHandler handles admin endpoints. Routes must be wrapped in an
// authorization middleware that stores the admin ID with WithAdminID.
type AdminHandler struct {
	admin Admin
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin Admin) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type giveCoinsRequest struct {
	AdminID      int64 `json:"adminId"`
	TargetUserID int64 `json:"targetUserId"`
	Amount       int64 `json:"amount"`
}

// HandleOnline handles GET /admin/online.
func (h *AdminHandler) HandleOnline(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Online(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": newUserViews(users)})
}

// HandleGiveCoins handles POST /admin/give-coins.
func (h *AdminHandler) HandleGiveCoins(w http.ResponseWriter, r *http.Request) {
	var req giveCoinsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	adminID, ok := AdminIDFrom(r.Context())
	if !ok {
		WriteError(w, r, service.ErrForbidden)
		return
	}

	coins, err := h.admin.GiveCoins(r.Context(), adminID, req.TargetUserID, req.Amount)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "coins": coins})
}

// HandleStats handles GET /admin/stats.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"totalUsers":     stats.TotalUsers,
		"onlineUsers":    stats.OnlineUsers,
		"totalMessages":  stats.TotalMessages,
		"totalPurchases": stats.TotalPurchases,
		"topUsers":       newUserViews(stats.TopUsers),
	})
}

func targetUserID(r *http.Request) (int64, error) {
	id, err := queryInt64(r, "targetUserId")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, progression.Invalidf("targetUserId is required")
	}
	return id, nil
}

// HandleTransactions handles GET /admin/transactions.
func (h *AdminHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	targetID, err := targetUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	txs, err := h.admin.Transactions(r.Context(), targetID, r.URL.Query().Get("type"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transactions": newTransactionViews(txs)})
}

// HandleAudit handles GET /admin/audit.
func (h *AdminHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	targetID, err := targetUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	audit, err := h.admin.Audit(r.Context(), targetID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "audit": audit})
}
