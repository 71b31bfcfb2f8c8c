// Package ledger persists the finance records of every user.
// All reads and writes are scoped by the owning user's id.
package ledger

import (
	"context"

	"github.com/mkrupp/fintrack/internal/domain"
)

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
type TransactionFilter struct {
	From  domain.Date // inclusive
	To    domain.Date // inclusive
	Limit int
}

// Repository defines the interface for ledger persistence.
// Get, Update and Delete return domain.ErrNotFound for records of other users.
type Repository interface {
	// ListAccounts returns the user's accounts, newest first.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, userID, id string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	UpdateAccount(ctx context.Context, account *domain.Account) error
	DeleteAccount(ctx context.Context, userID, id string) error

	// ListCategories returns the user's categories ordered by name.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	UpdateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error

	// ListTransactions returns the user's transactions, latest date first,
	// with category and account names resolved.
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error

	// ListBills returns the user's bills, earliest due date first.
	ListBills(ctx context.Context, userID string) ([]domain.Bill, error)
	GetBill(ctx context.Context, userID, id string) (*domain.Bill, error)
	CreateBill(ctx context.Context, bill *domain.Bill) error
	UpdateBill(ctx context.Context, bill *domain.Bill) error
	DeleteBill(ctx context.Context, userID, id string) error

	// GetProfile returns the user's profile, or domain.ErrNotFound.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// SaveProfile inserts or replaces the user's profile.
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
