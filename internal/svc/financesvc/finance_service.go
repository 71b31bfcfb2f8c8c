// Package financesvc is the data provider of the finance tracker: the records
// of every user and the aggregates derived from them.
package financesvc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/fintrack/internal/domain"
	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/avatarsvc"
)

// FinanceConfig holds configuration parameters for the finance service.
type FinanceConfig struct {
	// Timezone decides which calendar day "today" is.
	Timezone string `env:"TIMEZONE" envDefault:"Local"`

	// AvatarPath is the path avatar URLs point to.
	AvatarPath string `env:"AVATAR_PATH" envDefault:"/profile/avatar"`
}

// FinanceService serves the records of the user found in the request context.
// Records of other users are never visible; they are reported as domain.ErrNotFound.
type FinanceService struct {
	repo      ledger.Repository
	avatarSvc avatarsvc.AvatarService
	cfg       FinanceConfig
	loc       *time.Location
	log       logging.Logger

	Now func() time.Time
}

// NewFinanceService creates a FinanceService on the ledger repository made by repoFactory.
func NewFinanceService(
	ctx context.Context,
	repoFactory ledger.RepositoryFactory,
	avatarSvc avatarsvc.AvatarService,
	cfg FinanceConfig,
) (*FinanceService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}

	repo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new ledger repository: %w", err)
	}

	return &FinanceService{
		repo:      repo,
		avatarSvc: avatarSvc,
		cfg:       cfg,
		loc:       loc,
		log:       logging.GetLogger("svc.financesvc.finance_service"),
		Now:       time.Now,
	}, nil
}

func (svc *FinanceService) Close() error {
	//nolint:wrapcheck
	return svc.repo.Close()
}

// Today returns the current calendar day in the configured timezone.
func (svc *FinanceService) Today() domain.Date {
	return domain.DateOf(svc.Now().In(svc.loc))
}

func (svc *FinanceService) userID(ctx context.Context) (string, error) {
	userID, ok := context_.UserIDFromContext(ctx)
	if !ok {
		return "", domain.ErrUnauthorized
	}

	return userID, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return id.String(), nil
}

// logged runs fn and logs its outcome under what.
func logged[T any](ctx context.Context, log logging.Logger, what string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidRecord) {
			log.InfoContext(ctx, what+" rejected", "error", err)
		} else {
			log.ErrorContext(ctx, what+" failed", "error", err)
		}
	} else {
		log.DebugContext(ctx, what+" done")
	}

	return v, err
}

// Accounts

func (svc *FinanceService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return logged(ctx, svc.log, "list accounts", func() ([]domain.Account, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		//nolint:wrapcheck
		return svc.repo.ListAccounts(ctx, userID)
	})
}

func (svc *FinanceService) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	return logged(ctx, svc.log, "create account", func() (*domain.Account, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		if account.ID, err = newID(); err != nil {
			return nil, err
		}

		now := svc.Now()
		account.UserID = userID
		account.CreatedAt, account.UpdatedAt = now, now

		if err := account.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.CreateAccount(ctx, &account); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}

		return &account, nil
	})
}

func (svc *FinanceService) UpdateAccount(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	return logged(ctx, svc.log, "update account", func() (*domain.Account, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		account, err := svc.repo.GetAccount(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("get account: %w", err)
		}

		patch.Apply(account)
		account.UpdatedAt = svc.Now()

		if err := account.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.UpdateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}

		return account, nil
	})
}

func (svc *FinanceService) DeleteAccount(ctx context.Context, id string) error {
	_, err := logged(ctx, svc.log, "delete account", func() (struct{}, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return struct{}{}, err
		}

		//nolint:wrapcheck
		return struct{}{}, svc.repo.DeleteAccount(ctx, userID, id)
	})

	return err
}

// Categories

func (svc *FinanceService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return logged(ctx, svc.log, "list categories", func() ([]domain.Category, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		//nolint:wrapcheck
		return svc.repo.ListCategories(ctx, userID)
	})
}

func (svc *FinanceService) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	return logged(ctx, svc.log, "create category", func() (*domain.Category, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		if category.ID, err = newID(); err != nil {
			return nil, err
		}

		category.UserID = userID
		category.CreatedAt = svc.Now()

		if err := category.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.CreateCategory(ctx, &category); err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}

		return &category, nil
	})
}

func (svc *FinanceService) UpdateCategory(ctx context.Context, id string, patch domain.CategoryPatch) (*domain.Category, error) {
	return logged(ctx, svc.log, "update category", func() (*domain.Category, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		category, err := svc.repo.GetCategory(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}

		patch.Apply(category)

		if err := category.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.UpdateCategory(ctx, category); err != nil {
			return nil, fmt.Errorf("update category: %w", err)
		}

		return category, nil
	})
}

func (svc *FinanceService) DeleteCategory(ctx context.Context, id string) error {
	_, err := logged(ctx, svc.log, "delete category", func() (struct{}, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return struct{}{}, err
		}

		//nolint:wrapcheck
		return struct{}{}, svc.repo.DeleteCategory(ctx, userID, id)
	})

	return err
}

// Transactions

func (svc *FinanceService) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	return logged(ctx, svc.log, "list transactions", func() ([]domain.Transaction, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		//nolint:wrapcheck
		return svc.repo.ListTransactions(ctx, userID, filter)
	})
}

func (svc *FinanceService) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	return logged(ctx, svc.log, "create transaction", func() (*domain.Transaction, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		if tx.ID, err = newID(); err != nil {
			return nil, err
		}

		if tx.Status == "" {
			tx.Status = domain.TransactionCompleted
		}

		tx.UserID = userID
		tx.CreatedAt = svc.Now()

		if err := svc.checkTransaction(ctx, &tx); err != nil {
			return nil, err
		}

		if err := svc.repo.CreateTransaction(ctx, &tx); err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}

		//nolint:wrapcheck
		return svc.repo.GetTransaction(ctx, userID, tx.ID)
	})
}

func (svc *FinanceService) UpdateTransaction(
	ctx context.Context,
	id string,
	patch domain.TransactionPatch,
) (*domain.Transaction, error) {
	return logged(ctx, svc.log, "update transaction", func() (*domain.Transaction, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		tx, err := svc.repo.GetTransaction(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("get transaction: %w", err)
		}

		patch.Apply(tx)

		if err := svc.checkTransaction(ctx, tx); err != nil {
			return nil, err
		}

		if err := svc.repo.UpdateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("update transaction: %w", err)
		}

		//nolint:wrapcheck
		return svc.repo.GetTransaction(ctx, userID, id)
	})
}

// checkTransaction validates tx and makes sure its category and account belong to its user.
func (svc *FinanceService) checkTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.CategoryID != "" {
		if _, err := svc.repo.GetCategory(ctx, tx.UserID, tx.CategoryID); errors.Is(err, domain.ErrNotFound) {
			return errors.Join(domain.ErrInvalidRecord, fmt.Errorf("unknown category %q", tx.CategoryID))
		} else if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
	}

	if tx.AccountID != "" {
		if _, err := svc.repo.GetAccount(ctx, tx.UserID, tx.AccountID); errors.Is(err, domain.ErrNotFound) {
			return errors.Join(domain.ErrInvalidRecord, fmt.Errorf("unknown account %q", tx.AccountID))
		} else if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
	}

	return nil
}

func (svc *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	_, err := logged(ctx, svc.log, "delete transaction", func() (struct{}, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return struct{}{}, err
		}

		//nolint:wrapcheck
		return struct{}{}, svc.repo.DeleteTransaction(ctx, userID, id)
	})

	return err
}

// MonthlyStats sums the income and expenses of the given month.
func (svc *FinanceService) MonthlyStats(ctx context.Context, year int, month time.Month) (domain.MonthlyStats, error) {
	return logged(ctx, svc.log, "monthly stats", func() (domain.MonthlyStats, error) {
		if month < time.January || month > time.December {
			return domain.MonthlyStats{}, errors.Join(domain.ErrInvalidRecord, fmt.Errorf("month %d", month))
		}

		from, to := domain.MonthBounds(year, month)

		txs, err := svc.ListTransactions(ctx, ledger.TransactionFilter{From: from, To: to})
		if err != nil {
			return domain.MonthlyStats{}, err
		}

		return MonthlyStats(txs, year, month), nil
	})
}

// Bills

func (svc *FinanceService) ListBills(ctx context.Context) ([]domain.Bill, error) {
	return logged(ctx, svc.log, "list bills", func() ([]domain.Bill, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		//nolint:wrapcheck
		return svc.repo.ListBills(ctx, userID)
	})
}

func (svc *FinanceService) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	return logged(ctx, svc.log, "create bill", func() (*domain.Bill, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		if bill.ID, err = newID(); err != nil {
			return nil, err
		}

		if bill.Status == "" {
			bill.Status = domain.BillPending
		}

		bill.UserID = userID
		bill.CreatedAt = svc.Now()

		if err := bill.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.CreateBill(ctx, &bill); err != nil {
			return nil, fmt.Errorf("create bill: %w", err)
		}

		return &bill, nil
	})
}

func (svc *FinanceService) UpdateBill(ctx context.Context, id string, patch domain.BillPatch) (*domain.Bill, error) {
	return logged(ctx, svc.log, "update bill", func() (*domain.Bill, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		bill, err := svc.repo.GetBill(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("get bill: %w", err)
		}

		patch.Apply(bill)

		if !bill.Recurrent {
			bill.Frequency = domain.FrequencyNone
		}

		if err := bill.Validate(); err != nil {
			return nil, err
		}

		if err := svc.repo.UpdateBill(ctx, bill); err != nil {
			return nil, fmt.Errorf("update bill: %w", err)
		}

		return bill, nil
	})
}

func (svc *FinanceService) DeleteBill(ctx context.Context, id string) error {
	_, err := logged(ctx, svc.log, "delete bill", func() (struct{}, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return struct{}{}, err
		}

		//nolint:wrapcheck
		return struct{}{}, svc.repo.DeleteBill(ctx, userID, id)
	})

	return err
}

// PayResult is the outcome of paying a bill.
type PayResult struct {
	Paid domain.Bill `json:"paid"`
	// Next is the following occurrence of a recurrent bill, created pending.
	Next *domain.Bill `json:"next,omitempty"`
}

// PayBill marks a bill paid and schedules the next occurrence of a recurrent bill.
// Paying a paid bill changes nothing.
func (svc *FinanceService) PayBill(ctx context.Context, id string) (*PayResult, error) {
	return logged(ctx, svc.log, "pay bill", func() (*PayResult, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		bill, err := svc.repo.GetBill(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("get bill: %w", err)
		}

		if bill.Status == domain.BillPaid {
			return &PayResult{Paid: *bill}, nil
		}

		bill.Status = domain.BillPaid

		if err := svc.repo.UpdateBill(ctx, bill); err != nil {
			return nil, fmt.Errorf("update bill: %w", err)
		}

		result := &PayResult{Paid: *bill}

		if due, ok := bill.NextDueDate(); ok {
			next := *bill
			next.DueDate = due
			next.Status = domain.BillPending

			created, err := svc.CreateBill(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("schedule next bill: %w", err)
			}

			result.Next = created
		}

		return result, nil
	})
}

// Dashboard

// Dashboard derives the dashboard of the given month from all of the user's records.
func (svc *FinanceService) Dashboard(ctx context.Context, year int, month time.Month) (*domain.Dashboard, error) {
	return logged(ctx, svc.log, "dashboard", func() (*domain.Dashboard, error) {
		if month < time.January || month > time.December {
			return nil, errors.Join(domain.ErrInvalidRecord, fmt.Errorf("month %d", month))
		}

		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		var in DashboardInput

		if in.Accounts, err = svc.repo.ListAccounts(ctx, userID); err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}

		if in.Categories, err = svc.repo.ListCategories(ctx, userID); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}

		if in.Transactions, err = svc.repo.ListTransactions(ctx, userID, ledger.TransactionFilter{}); err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}

		if in.Bills, err = svc.repo.ListBills(ctx, userID); err != nil {
			return nil, fmt.Errorf("list bills: %w", err)
		}

		dashboard := BuildDashboard(in, year, month, svc.Today())

		return &dashboard, nil
	})
}

// Profile

// GetProfile returns the user's profile, creating an empty one on first access.
func (svc *FinanceService) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return logged(ctx, svc.log, "get profile", func() (*domain.Profile, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		return svc.profile(ctx, userID)
	})
}

func (svc *FinanceService) profile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := svc.repo.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		profile = &domain.Profile{ID: userID, UpdatedAt: svc.Now()}

		if err := svc.repo.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}

		svc.log.InfoContext(ctx, "profile created", "user", userID)
	} else if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return profile, nil
}

func (svc *FinanceService) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	return logged(ctx, svc.log, "update profile", func() (*domain.Profile, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		profile, err := svc.profile(ctx, userID)
		if err != nil {
			return nil, err
		}

		patch.Apply(profile)
		profile.Name = strings.TrimSpace(profile.Name)
		profile.UpdatedAt = svc.Now()

		if err := svc.repo.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}

		return profile, nil
	})
}

// UploadAvatar stores the user's avatar and points the profile's AvatarURL at it.
func (svc *FinanceService) UploadAvatar(ctx context.Context, filename string, data []byte) (*domain.Profile, error) {
	return logged(ctx, svc.log, "upload avatar", func() (*domain.Profile, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		avatar, err := svc.avatarSvc.Store(ctx, userID, filename, data)
		if err != nil {
			return nil, fmt.Errorf("store avatar: %w", err)
		}

		profile, err := svc.profile(ctx, userID)
		if err != nil {
			return nil, err
		}

		// The content id in the query changes the URL whenever the picture does.
		profile.AvatarURL = svc.cfg.AvatarPath + "?v=" + url.QueryEscape(avatar.ID.String())
		profile.UpdatedAt = svc.Now()

		if err := svc.repo.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}

		return profile, nil
	})
}

// Avatar returns the user's avatar, scaled to width unless width is zero.
func (svc *FinanceService) Avatar(ctx context.Context, width int) (*domain.Avatar, error) {
	return logged(ctx, svc.log, "fetch avatar", func() (*domain.Avatar, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		//nolint:wrapcheck
		return svc.avatarSvc.Fetch(ctx, userID, width)
	})
}

// DeleteAvatar removes the user's avatar and clears the profile's AvatarURL.
func (svc *FinanceService) DeleteAvatar(ctx context.Context) (*domain.Profile, error) {
	return logged(ctx, svc.log, "delete avatar", func() (*domain.Profile, error) {
		userID, err := svc.userID(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.avatarSvc.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNoAvatar) {
			return nil, fmt.Errorf("delete avatar: %w", err)
		}

		profile, err := svc.profile(ctx, userID)
		if err != nil {
			return nil, err
		}

		profile.AvatarURL = ""
		profile.UpdatedAt = svc.Now()

		if err := svc.repo.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}

		return profile, nil
	})
}
