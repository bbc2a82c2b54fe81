package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"coinchat/internal/config"
	"coinchat/internal/model"
	"coinchat/internal/progression"
	"coinchat/internal/repository"
)

// ErrForbidden is returned when the caller is not an admin.
var ErrForbidden = errors.New("admin privileges required")

// GiftDescription is the ledger description of an admin gift.
const GiftDescription = "Gift from admin"

const (
	topUsersLimit        = 10
	transactionListLimit = 100
)

// LedgerAudit compares a user's balance with the transaction log.
type LedgerAudit struct {
	UserID         int64 `json:"userId"`
	Coins          int64 `json:"coins"`
	InitialCoins   int64 `json:"initialCoins"`
	TransactionSum int64 `json:"transactionSum"`
	Expected       int64 `json:"expected"`
	Drift          int64 `json:"drift"`
	Consistent     bool  `json:"consistent"`
}

// AdminService handles admin-only inspection and coin grants.
type AdminService struct {
	cfg          *config.Config
	txm          *repository.TxManager
	q            *repository.Queries
	engine       *progression.Engine
	onlineWindow time.Duration
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	cfg *config.Config,
	txm *repository.TxManager,
	q *repository.Queries,
	engine *progression.Engine,
) *AdminService {
	window := cfg.Admin.OnlineWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &AdminService{cfg: cfg, txm: txm, q: q, engine: engine, onlineWindow: window}
}

// Authorize returns ErrForbidden unless adminID is listed in the config or
// carries the admin flag.
func (s *AdminService) Authorize(ctx context.Context, adminID int64) error {
	if adminID <= 0 {
		return ErrForbidden
	}
	if s.cfg.IsAdmin(adminID) {
		return nil
	}

	user, err := s.q.Users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// SyncAdmins sets the admin flag on every configured admin ID that has an
// account. IDs without an account are skipped.
func (s *AdminService) SyncAdmins(ctx context.Context) error {
	for _, id := range s.cfg.Admin.IDs {
		err := s.q.Users.SetAdmin(ctx, id, true)
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Debug().Int64("user_id", id).Msg("Configured admin has no account yet")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Online returns users active within the online window.
func (s *AdminService) Online(ctx context.Context) ([]*model.User, error) {
	return s.q.Users.ListActiveSince(ctx, time.Now().Add(-s.onlineWindow))
}

// GiveCoins credits amount to targetID and records an admin_gift
// transaction. Returns the new balance.
func (s *AdminService) GiveCoins(ctx context.Context, adminID, targetID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, progression.Invalidf("amount must be positive, got %d", amount)
	}
	if targetID <= 0 {
		return 0, progression.Invalidf("target user id must be positive, got %d", targetID)
	}

	var balance int64
	err := s.engine.Serialize(ctx, targetID, func() error {
		return s.txm.WithTx(ctx, func(q *repository.Queries) error {
			if _, err := q.Users.LockByID(ctx, targetID); err != nil {
				return err
			}
			coins, err := q.Users.UpdateBalance(ctx, targetID, amount)
			if err != nil {
				return err
			}
			if _, err := q.Transactions.Create(ctx, targetID, amount, model.TxTypeAdminGift, GiftDescription); err != nil {
				return err
			}
			balance = coins
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", "give_coins").
		Msg("Admin operation executed")
	return balance, nil
}

// Stats aggregates the dashboard figures concurrently.
func (s *AdminService) Stats(ctx context.Context) (*model.SiteStats, error) {
	var stats model.SiteStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.q.Users.Count(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.q.Users.CountActiveSince(gctx, time.Now().Add(-s.onlineWindow))
		stats.OnlineUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.q.Chat.Count(gctx)
		stats.TotalMessages = n
		return err
	})
	g.Go(func() error {
		n, err := s.q.Transactions.CountByType(gctx, model.TxTypePurchase)
		stats.TotalPurchases = n
		return err
	})
	g.Go(func() error {
		users, err := s.q.Users.GetTopUsers(gctx, topUsersLimit)
		stats.TopUsers = users
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Transactions returns a user's newest transactions, optionally of one type.
func (s *AdminService) Transactions(ctx context.Context, targetID int64, txType string) ([]*model.Transaction, error) {
	exists, err := s.q.Users.Exists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}

	if txType == "" {
		return s.q.Transactions.GetByUserID(ctx, targetID, transactionListLimit)
	}
	return s.q.Transactions.GetByUserIDAndType(ctx, targetID, txType, transactionListLimit)
}

// Audit checks coins == initial coins + SUM(transactions) for targetID.
func (s *AdminService) Audit(ctx context.Context, targetID int64) (*LedgerAudit, error) {
	var audit *LedgerAudit
	err := s.txm.WithTx(ctx, func(q *repository.Queries) error {
		user, err := q.Users.LockByID(ctx, targetID)
		if err != nil {
			return err
		}
		sum, err := q.Transactions.SumByUser(ctx, targetID)
		if err != nil {
			return err
		}

		expected := model.InitialCoins + sum
		audit = &LedgerAudit{
			UserID:         targetID,
			Coins:          user.Coins,
			InitialCoins:   model.InitialCoins,
			TransactionSum: sum,
			Expected:       expected,
			Drift:          user.Coins - expected,
			Consistent:     user.Coins == expected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !audit.Consistent {
		log.Warn().
			Int64("user_id", targetID).
			Int64("coins", audit.Coins).
			Int64("expected", audit.Expected).
			Msg("Ledger drift detected")
	}
	return audit, nil
}
