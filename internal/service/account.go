// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"coinchat/internal/model"
	"coinchat/internal/progression"
	"coinchat/internal/repository"
	"coinchat/internal/shop"
)

// Account errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = repository.ErrUsernameTaken
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 4
	guestAttempts     = 5
)

// AuthResult is returned by every sign-in path.
type AuthResult struct {
	User  *model.User
	Token string
}

// Profile is a user with owned titles and a task summary.
type Profile struct {
	User           *model.User
	Titles         []*model.Title
	TasksCompleted int
	TasksTotal     int
}

// AccountService handles sign up, sign in and profile reads.
type AccountService struct {
	txm        *repository.TxManager
	q          *repository.Queries
	tokens     *TokenIssuer
	bcryptCost int
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	txm *repository.TxManager,
	q *repository.Queries,
	tokens *TokenIssuer,
	bcryptCost int,
) *AccountService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		txm:        txm,
		q:          q,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// ValidateCredentials checks username and password shape.
func ValidateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return progression.Invalidf("username must be %d to %d characters", minUsernameLength, maxUsernameLength)
	}
	if strings.TrimSpace(username) != username {
		return progression.Invalidf("username must not start or end with spaces")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return progression.Invalidf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Register creates an account with the starting balance, the free title and
// a progress row for every task.
func (s *AccountService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.createUser(ctx, username, string(hash), false)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return s.authResult(user)
}

// Login verifies the password and refreshes last_active.
func (s *AccountService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.q.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsGuest || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.q.Users.Touch(ctx, user.ID); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Msg("User logged in")
	return s.authResult(user)
}

// Guest creates a guest account named GuestNNNN, retrying on collisions.
func (s *AccountService) Guest(ctx context.Context) (*AuthResult, error) {
	for attempt := 0; attempt < guestAttempts; attempt++ {
		name := fmt.Sprintf("Guest%04d", rand.IntN(10000))

		user, err := s.createUser(ctx, name, "", true)
		if errors.Is(err, repository.ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("Guest joined")
		return s.authResult(user)
	}
	return nil, fmt.Errorf("failed to allocate a guest name after %d attempts", guestAttempts)
}

func (s *AccountService) createUser(ctx context.Context, username, hash string, guest bool) (*model.User, error) {
	var user *model.User
	err := s.txm.WithTx(ctx, func(q *repository.Queries) error {
		u, err := q.Users.Create(ctx, username, hash, guest)
		if err != nil {
			return err
		}

		newbie, err := q.Titles.GetByName(ctx, shop.NewbieTitle)
		if err != nil {
			return fmt.Errorf("free title missing from catalog: %w", err)
		}
		if err := q.Titles.Grant(ctx, u.ID, newbie.ID); err != nil {
			return err
		}

		if _, err := q.Tasks.SeedForUser(ctx, u.ID); err != nil {
			return err
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) authResult(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUser retrieves a user by ID.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.q.Users.GetByID(ctx, userID)
}

// Profile returns the user with owned titles and task counts.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.q.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles, err := s.q.Titles.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.q.Tasks.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: user, Titles: titles, TasksTotal: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			p.TasksCompleted++
		}
	}
	return p, nil
}

// Catalog returns the task catalog without any user's progress.
func (s *AccountService) Catalog(ctx context.Context) ([]*model.Task, error) {
	return s.q.Tasks.ListAll(ctx)
}

// Tasks returns every task with the user's progress.
func (s *AccountService) Tasks(ctx context.Context, userID int64) ([]*model.TaskProgress, error) {
	exists, err := s.q.Users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return s.q.Tasks.ListForUser(ctx, userID)
}
