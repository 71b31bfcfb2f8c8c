package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrNoRecordID is returned when a record id is required but missing.
	ErrNoRecordID = errors.New("no record id")
)

// EntryType separates money coming in from money going out.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

func (t EntryType) Valid() bool {
	return t == EntryIncome || t == EntryExpense
}

// TransactionStatus tracks whether a transaction has settled.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
)

func (s TransactionStatus) Valid() bool {
	return s == TransactionCompleted || s == TransactionPending
}

// BillStatus tracks whether a bill has been paid.
type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
)

func (s BillStatus) Valid() bool {
	return s == BillPending || s == BillPaid
}

// BillFrequency is the recurrence interval of a recurrent bill.
type BillFrequency string

const (
	FrequencyNone    BillFrequency = ""
	FrequencyWeekly  BillFrequency = "weekly"
	FrequencyMonthly BillFrequency = "monthly"
	FrequencyYearly  BillFrequency = "yearly"
)

func (f BillFrequency) Valid() bool {
	switch f {
	case FrequencyNone, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// Account is a place money is kept: checking, savings, wallet, credit card.
// A negative balance is a debt.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("account name is required")
	}

	return nil
}

// AccountPatch holds the fields of a partial account update.
type AccountPatch struct {
	Name    *string          `json:"name,omitempty"`
	Type    *string          `json:"type,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

func (p AccountPatch) Apply(a *Account) {
	setIf(&a.Name, p.Name)
	setIf(&a.Type, p.Type)
	setIf(&a.Balance, p.Balance)
}

// Category groups transactions for reporting.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Type      EntryType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("category name is required")
	}

	if !c.Type.Valid() {
		return invalid("category type %q", c.Type)
	}

	return nil
}

// CategoryPatch holds the fields of a partial category update.
type CategoryPatch struct {
	Name  *string    `json:"name,omitempty"`
	Color *string    `json:"color,omitempty"`
	Type  *EntryType `json:"type,omitempty"`
}

func (p CategoryPatch) Apply(c *Category) {
	setIf(&c.Name, p.Name)
	setIf(&c.Color, p.Color)
	setIf(&c.Type, p.Type)
}

// Transaction is a single movement of money. Amount is always non-negative;
// Type carries the direction.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        Date              `json:"date"`
	Description string            `json:"description"`
	Type        EntryType         `json:"type"`
	CategoryID  string            `json:"category_id,omitempty"`
	AccountID   string            `json:"account_id,omitempty"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`

	// Resolved on read.
	CategoryName string `json:"category_name,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
}

func (t Transaction) Validate() error {
	switch {
	case strings.TrimSpace(t.Description) == "":
		return invalid("transaction description is required")
	case t.Amount.IsNegative():
		return invalid("transaction amount must not be negative")
	case t.Date.IsZero():
		return invalid("transaction date is required")
	case !t.Type.Valid():
		return invalid("transaction type %q", t.Type)
	case !t.Status.Valid():
		return invalid("transaction status %q", t.Status)
	}

	return nil
}

// Signed returns the amount as seen by a balance: negative for expenses.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == EntryExpense {
		return t.Amount.Neg()
	}

	return t.Amount
}

// TransactionPatch holds the fields of a partial transaction update.
type TransactionPatch struct {
	Amount      *decimal.Decimal   `json:"amount,omitempty"`
	Date        *Date              `json:"date,omitempty"`
	Description *string            `json:"description,omitempty"`
	Type        *EntryType         `json:"type,omitempty"`
	CategoryID  *string            `json:"category_id,omitempty"`
	AccountID   *string            `json:"account_id,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`
}

func (p TransactionPatch) Apply(t *Transaction) {
	setIf(&t.Amount, p.Amount)
	setIf(&t.Date, p.Date)
	setIf(&t.Description, p.Description)
	setIf(&t.Type, p.Type)
	setIf(&t.CategoryID, p.CategoryID)
	setIf(&t.AccountID, p.AccountID)
	setIf(&t.Status, p.Status)
}

// Bill is an upcoming payment.
type Bill struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     Date            `json:"due_date"`
	Status      BillStatus      `json:"status"`
	Recurrent   bool            `json:"recurrent"`
	Frequency   BillFrequency   `json:"frequency,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (b Bill) Validate() error {
	switch {
	case strings.TrimSpace(b.Description) == "":
		return invalid("bill description is required")
	case b.Amount.IsNegative():
		return invalid("bill amount must not be negative")
	case b.DueDate.IsZero():
		return invalid("bill due date is required")
	case !b.Status.Valid():
		return invalid("bill status %q", b.Status)
	case !b.Frequency.Valid():
		return invalid("bill frequency %q", b.Frequency)
	case !b.Recurrent && b.Frequency != FrequencyNone:
		return invalid("bill frequency set on a non-recurrent bill")
	}

	return nil
}

// NextDueDate returns the due date of the bill's next occurrence.
// Reports false for bills that do not recur.
func (b Bill) NextDueDate() (Date, bool) {
	if !b.Recurrent {
		return Date{}, false
	}

	switch b.Frequency {
	case FrequencyWeekly:
		return b.DueDate.AddDays(7), true //nolint:mnd
	case FrequencyMonthly:
		return b.DueDate.AddMonths(1), true
	case FrequencyYearly:
		return b.DueDate.AddMonths(12), true //nolint:mnd
	default:
		return Date{}, false
	}
}

// BillPatch holds the fields of a partial bill update.
type BillPatch struct {
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DueDate     *Date            `json:"due_date,omitempty"`
	Status      *BillStatus      `json:"status,omitempty"`
	Recurrent   *bool            `json:"recurrent,omitempty"`
	Frequency   *BillFrequency   `json:"frequency,omitempty"`
}

func (p BillPatch) Apply(b *Bill) {
	setIf(&b.Description, p.Description)
	setIf(&b.Amount, p.Amount)
	setIf(&b.DueDate, p.DueDate)
	setIf(&b.Status, p.Status)
	setIf(&b.Recurrent, p.Recurrent)
	setIf(&b.Frequency, p.Frequency)
}

// Profile holds the user-editable part of an identity.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfilePatch holds the fields of a partial profile update.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (p ProfilePatch) Apply(profile *Profile) {
	setIf(&profile.Name, p.Name)
	setIf(&profile.AvatarURL, p.AvatarURL)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func invalid(format string, args ...any) error {
	return errors.Join(ErrInvalidRecord, fmt.Errorf(format, args...))
}
