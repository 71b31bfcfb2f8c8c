package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/infra/sqlite"
)

// SQLiteLedgerRepositoryConfig holds configuration for the SQLite ledger repository.
type SQLiteLedgerRepositoryConfig struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"var/storage/financesvc.db"`
}

// SQLiteLedgerRepository implements Repository using SQLite as the storage backend.
type SQLiteLedgerRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteLedgerRepository)(nil)

// SQLiteLedgerRepositoryFactory returns a RepositoryFactory producing SQLite repositories.
func SQLiteLedgerRepositoryFactory(cfg SQLiteLedgerRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteLedgerRepository(ctx, cfg)
	}
}

// NewSQLiteLedgerRepository opens the database and creates the schema if needed.
func NewSQLiteLedgerRepository(ctx context.Context, cfg SQLiteLedgerRepositoryConfig) (*SQLiteLedgerRepository, error) {
	log := logging.GetLogger("repo.ledger.sqlite_ledger_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.DebugContext(ctx, "ledger db ready")

	return &SQLiteLedgerRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id         TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		type       TEXT    NOT NULL DEFAULT '',
		balance    TEXT    NOT NULL DEFAULT '0',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS accounts_user_id ON accounts (user_id);

	CREATE TABLE IF NOT EXISTS categories (
		id         TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		color      TEXT    NOT NULL DEFAULT '',
		type       TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS categories_user_id ON categories (user_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id          TEXT    PRIMARY KEY,
		user_id     TEXT    NOT NULL,
		amount      TEXT    NOT NULL,
		date        TEXT    NOT NULL,
		description TEXT    NOT NULL,
		type        TEXT    NOT NULL,
		category_id TEXT    REFERENCES categories (id) ON DELETE SET NULL,
		account_id  TEXT    REFERENCES accounts (id) ON DELETE SET NULL,
		status      TEXT    NOT NULL,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS transactions_user_id_date ON transactions (user_id, date);

	CREATE TABLE IF NOT EXISTS bills (
		id          TEXT    PRIMARY KEY,
		user_id     TEXT    NOT NULL,
		description TEXT    NOT NULL,
		amount      TEXT    NOT NULL,
		due_date    TEXT    NOT NULL,
		status      TEXT    NOT NULL,
		recurrent   INTEGER NOT NULL DEFAULT 0,
		frequency   TEXT    NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bills_user_id_due_date ON bills (user_id, due_date);

	CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT    PRIMARY KEY,
		name       TEXT    NOT NULL DEFAULT '',
		avatar_url TEXT    NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
`

type rowScanner interface {
	Scan(dest ...any) error
}

// exec runs a write under the write lock and maps "no row affected" to domain.ErrNotFound.
func (r *SQLiteLedgerRepository) exec(ctx context.Context, what string, query string, args ...any) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case sqlite.IsUniqueViolation(err):
			err = errors.Join(domain.ErrInvalidRecord, err)
		case sqlite.IsForeignKeyViolation(err):
			err = errors.Join(domain.ErrInvalidRecord, err)
		}

		return fmt.Errorf("%s: %w", what, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Join(domain.ErrNotFound, err)
	}

	return err
}

func nullable(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Accounts

const accountColumns = "id, user_id, name, type, balance, created_at, updated_at"

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account              domain.Account
		createdAt, updatedAt int64
	)

	if err := row.Scan(
		&account.ID, &account.UserID, &account.Name, &account.Type, &account.Balance, &createdAt, &updatedAt,
	); err != nil {
		return domain.Account{}, err //nolint:wrapcheck
	}

	account.CreatedAt = fromMillis(createdAt)
	account.UpdatedAt = fromMillis(updatedAt)

	return account, nil
}

func (r *SQLiteLedgerRepository) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *SQLiteLedgerRepository) GetAccount(ctx context.Context, userID, id string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? AND id = ?",
		userID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("query account: %w", notFound(err))
	}

	return &account, nil
}

func (r *SQLiteLedgerRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	return r.exec(ctx, "insert account",
		"INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		account.ID, account.UserID, account.Name, account.Type, account.Balance,
		millis(account.CreatedAt), millis(account.UpdatedAt),
	)
}

func (r *SQLiteLedgerRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return r.exec(ctx, "update account",
		"UPDATE accounts SET name = ?, type = ?, balance = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		account.Name, account.Type, account.Balance, millis(account.UpdatedAt), account.UserID, account.ID,
	)
}

func (r *SQLiteLedgerRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	return r.exec(ctx, "delete account", "DELETE FROM accounts WHERE user_id = ? AND id = ?", userID, id)
}

// Categories

const categoryColumns = "id, user_id, name, color, type, created_at"

func scanCategory(row rowScanner) (domain.Category, error) {
	var (
		category  domain.Category
		createdAt int64
	)

	if err := row.Scan(
		&category.ID, &category.UserID, &category.Name, &category.Color, &category.Type, &createdAt,
	); err != nil {
		return domain.Category{}, err //nolint:wrapcheck
	}

	category.CreatedAt = fromMillis(createdAt)

	return category, nil
}

func (r *SQLiteLedgerRepository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC, id ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}

	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}

		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

func (r *SQLiteLedgerRepository) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? AND id = ?",
		userID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("query category: %w", notFound(err))
	}

	return &category, nil
}

func (r *SQLiteLedgerRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	return r.exec(ctx, "insert category",
		"INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		category.ID, category.UserID, category.Name, category.Color, string(category.Type), millis(category.CreatedAt),
	)
}

func (r *SQLiteLedgerRepository) UpdateCategory(ctx context.Context, category *domain.Category) error {
	return r.exec(ctx, "update category",
		"UPDATE categories SET name = ?, color = ?, type = ? WHERE user_id = ? AND id = ?",
		category.Name, category.Color, string(category.Type), category.UserID, category.ID,
	)
}

func (r *SQLiteLedgerRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	return r.exec(ctx, "delete category", "DELETE FROM categories WHERE user_id = ? AND id = ?", userID, id)
}

// Transactions

const transactionSelect = `
	SELECT t.id, t.user_id, t.amount, t.date, t.description, t.type,
	       t.category_id, t.account_id, t.status, t.created_at,
	       COALESCE(c.name, ''), COALESCE(a.name, '')
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN accounts a ON a.id = t.account_id`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx                    domain.Transaction
		categoryID, accountID sql.NullString
		createdAt             int64
	)

	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Date, &tx.Description, &tx.Type,
		&categoryID, &accountID, &tx.Status, &createdAt,
		&tx.CategoryName, &tx.AccountName,
	); err != nil {
		return domain.Transaction{}, err //nolint:wrapcheck
	}

	tx.CategoryID = categoryID.String
	tx.AccountID = accountID.String
	tx.CreatedAt = fromMillis(createdAt)

	return tx, nil
}

func (r *SQLiteLedgerRepository) ListTransactions(
	ctx context.Context,
	userID string,
	filter TransactionFilter,
) ([]domain.Transaction, error) {
	var (
		where = []string{"t.user_id = ?"}
		args  = []any{userID}
	)

	if !filter.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, filter.From)
	}

	if !filter.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, filter.To)
	}

	query := transactionSelect + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY t.date DESC, t.created_at DESC, t.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txs, nil
}

func (r *SQLiteLedgerRepository) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx,
		transactionSelect+" WHERE t.user_id = ? AND t.id = ?",
		userID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", notFound(err))
	}

	return &tx, nil
}

func (r *SQLiteLedgerRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.exec(ctx, "insert transaction",
		`INSERT INTO transactions
		 (id, user_id, amount, date, description, type, category_id, account_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount, tx.Date, tx.Description, string(tx.Type),
		nullable(tx.CategoryID), nullable(tx.AccountID), string(tx.Status), millis(tx.CreatedAt),
	)
}

func (r *SQLiteLedgerRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.exec(ctx, "update transaction",
		`UPDATE transactions
		 SET amount = ?, date = ?, description = ?, type = ?, category_id = ?, account_id = ?, status = ?
		 WHERE user_id = ? AND id = ?`,
		tx.Amount, tx.Date, tx.Description, string(tx.Type),
		nullable(tx.CategoryID), nullable(tx.AccountID), string(tx.Status),
		tx.UserID, tx.ID,
	)
}

func (r *SQLiteLedgerRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	return r.exec(ctx, "delete transaction", "DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, id)
}

// Bills

const billColumns = "id, user_id, description, amount, due_date, status, recurrent, frequency, created_at"

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		bill      domain.Bill
		createdAt int64
	)

	if err := row.Scan(
		&bill.ID, &bill.UserID, &bill.Description, &bill.Amount, &bill.DueDate,
		&bill.Status, &bill.Recurrent, &bill.Frequency, &createdAt,
	); err != nil {
		return domain.Bill{}, err //nolint:wrapcheck
	}

	bill.CreatedAt = fromMillis(createdAt)

	return bill, nil
}

func (r *SQLiteLedgerRepository) ListBills(ctx context.Context, userID string) ([]domain.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE user_id = ? ORDER BY due_date ASC, created_at ASC, id ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	bills := []domain.Bill{}

	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}

		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}

	return bills, nil
}

func (r *SQLiteLedgerRepository) GetBill(ctx context.Context, userID, id string) (*domain.Bill, error) {
	bill, err := scanBill(r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE user_id = ? AND id = ?",
		userID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("query bill: %w", notFound(err))
	}

	return &bill, nil
}

func (r *SQLiteLedgerRepository) CreateBill(ctx context.Context, bill *domain.Bill) error {
	return r.exec(ctx, "insert bill",
		"INSERT INTO bills ("+billColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		bill.ID, bill.UserID, bill.Description, bill.Amount, bill.DueDate,
		string(bill.Status), bill.Recurrent, string(bill.Frequency), millis(bill.CreatedAt),
	)
}

func (r *SQLiteLedgerRepository) UpdateBill(ctx context.Context, bill *domain.Bill) error {
	return r.exec(ctx, "update bill",
		`UPDATE bills SET description = ?, amount = ?, due_date = ?, status = ?, recurrent = ?, frequency = ?
		 WHERE user_id = ? AND id = ?`,
		bill.Description, bill.Amount, bill.DueDate, string(bill.Status), bill.Recurrent, string(bill.Frequency),
		bill.UserID, bill.ID,
	)
}

func (r *SQLiteLedgerRepository) DeleteBill(ctx context.Context, userID, id string) error {
	return r.exec(ctx, "delete bill", "DELETE FROM bills WHERE user_id = ? AND id = ?", userID, id)
}

// Profiles

func (r *SQLiteLedgerRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		profile   domain.Profile
		updatedAt int64
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, avatar_url, updated_at FROM profiles WHERE id = ?",
		userID,
	).Scan(&profile.ID, &profile.Name, &profile.AvatarURL, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", notFound(err))
	}

	profile.UpdatedAt = fromMillis(updatedAt)

	return &profile, nil
}

func (r *SQLiteLedgerRepository) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	return r.exec(ctx, "save profile",
		`INSERT INTO profiles (id, name, avatar_url, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, avatar_url = excluded.avatar_url, updated_at = excluded.updated_at`,
		profile.ID, profile.Name, profile.AvatarURL, millis(profile.UpdatedAt),
	)
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteLedgerRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
