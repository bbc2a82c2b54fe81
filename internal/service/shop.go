package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"coinchat/internal/model"
	"coinchat/internal/progression"
	"coinchat/internal/repository"
)

// ErrTitleOwned is returned when buying a title the user already has.
var ErrTitleOwned = repository.ErrTitleOwned

// PurchaseResult is the outcome of a title purchase.
type PurchaseResult struct {
	Title          *model.Title
	Coins          int64
	Message        string
	CompletedTasks []progression.CompletedTask
}

// PurchaseDescription is the ledger description of a title purchase.
func PurchaseDescription(title string) string {
	return "Purchase of title " + title
}

// ShopService handles the title shop.
type ShopService struct {
	txm    *repository.TxManager
	q      *repository.Queries
	engine *progression.Engine
}

// NewShopService creates a new ShopService instance.
func NewShopService(txm *repository.TxManager, q *repository.Queries, engine *progression.Engine) *ShopService {
	return &ShopService{txm: txm, q: q, engine: engine}
}

// ListTitles returns the catalog with the owned flag for userID.
func (s *ShopService) ListTitles(ctx context.Context, userID int64) ([]*model.Title, error) {
	exists, err := s.q.Users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return s.q.Titles.List(ctx, userID)
}

// BuyTitle debits the price, grants the title, records the purchase and
// settles purchase tasks, all in one transaction. The debit is applied
// before any reward so a reward can never fund the purchase that earned it.
func (s *ShopService) BuyTitle(ctx context.Context, userID, titleID int64) (*PurchaseResult, error) {
	if titleID <= 0 {
		return nil, progression.Invalidf("title id must be positive, got %d", titleID)
	}

	var out *PurchaseResult
	err := s.engine.Serialize(ctx, userID, func() error {
		return s.txm.WithTx(ctx, func(q *repository.Queries) error {
			user, err := q.Users.LockByID(ctx, userID)
			if err != nil {
				return err
			}

			title, err := q.Titles.GetByID(ctx, titleID)
			if err != nil {
				return err
			}

			owned, err := q.Titles.IsOwned(ctx, userID, titleID)
			if err != nil {
				return err
			}
			if owned {
				return ErrTitleOwned
			}
			if user.Coins < title.Price {
				return progression.ErrInsufficientBalance
			}

			if title.Price > 0 {
				if _, err := q.Users.UpdateBalance(ctx, userID, -title.Price); err != nil {
					return err
				}
				if _, err := q.Transactions.Create(ctx, userID, -title.Price, model.TxTypePurchase, PurchaseDescription(title.Name)); err != nil {
					return err
				}
			}
			if err := q.Titles.Grant(ctx, userID, titleID); err != nil {
				return err
			}

			res, err := s.engine.Apply(ctx, q, userID, progression.TitlePurchased())
			if err != nil {
				return err
			}

			title.Owned = true
			out = &PurchaseResult{
				Title:          title,
				Coins:          res.NewBalance,
				Message:        fmt.Sprintf("Title %s purchased", title.Name),
				CompletedTasks: res.CompletedTasks,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Str("title", out.Title.Name).
		Int64("price", out.Title.Price).
		Int64("balance", out.Coins).
		Msg("Title purchased")
	return out, nil
}
