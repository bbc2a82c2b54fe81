package handler

import (
	"context"
	"net/http"

	"coinchat/internal/model"
	"coinchat/internal/service"
)

// Shop is the title shop surface the handlers need.
type Shop interface {
	ListTitles(ctx context.Context, userID int64) ([]*model.Title, error)
	BuyTitle(ctx context.Context, userID, titleID int64) (*service.PurchaseResult, error)
}

// ShopHandler handles the title shop.
type ShopHandler struct {
	shop Shop
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shop Shop) *ShopHandler {
	return &ShopHandler{shop: shop}
}

type buyTitleRequest struct {
	UserID  int64 `json:"userId"`
	TitleID int64 `json:"titleId"`
}

// HandleTitles handles GET /game/titles.
func (h *ShopHandler) HandleTitles(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	titles, err := h.shop.ListTitles(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "titles": newTitleViews(titles)})
}

// HandleBuyTitle handles POST /game/buy-title.
func (h *ShopHandler) HandleBuyTitle(w http.ResponseWriter, r *http.Request) {
	var req buyTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.shop.BuyTitle(r.Context(), userID, req.TitleID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"coins":          res.Coins,
		"message":        res.Message,
		"completedTasks": completedTasks(res.CompletedTasks),
	})
}
