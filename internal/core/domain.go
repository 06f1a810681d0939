package core

import (
	"errors"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// TimestampLayout is the ISO-8601 form stored in transactions.date (UTC, millisecond precision).
// Strings in this layout sort lexicographically in chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type (
	TransactionType string

	Category struct {
		ID   int64           `json:"id" db:"id"`
		Name string          `json:"name" db:"name"`
		Type TransactionType `json:"type" db:"type"`
	}

	Transaction struct {
		ID          string          `json:"id" db:"id"`
		Type        TransactionType `json:"type" db:"type"`
		Category    int64           `json:"category" db:"category"`
		Amount      float64         `json:"amount" db:"amount"`
		Date        string          `json:"date" db:"date"`
		Description *string         `json:"description" db:"description"`
	}

	// TransactionView is a transaction joined with its category. The category
	// fields are nil when the referenced category row does not exist.
	TransactionView struct {
		Transaction
		CategoryName *string `json:"category_name" db:"category_name"`
		CategoryType *string `json:"category_type" db:"category_type"`
	}

	// TransactionInput carries the client-settable fields of a new transaction.
	TransactionInput struct {
		Type        TransactionType
		Category    int64
		Amount      float64
		Description *string
	}

	// TransactionUpdate holds the fields of a partial update. A nil field is left untouched.
	TransactionUpdate struct {
		Type        *TransactionType
		Category    *int64
		Amount      *float64
		Description *string
	}

	Page struct {
		Offset int
		Limit  int
	}

	// SummaryFilter restricts a summary. Empty strings mean no restriction.
	SummaryFilter struct {
		StartDate string
		EndDate   string
		Category  string
	}
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoUpdateFields      = errors.New("no fields to update")
)

const (
	DefaultOffset = 0
	DefaultLimit  = 10
)

// DefaultPage returns the page used when the client does not supply offset or limit.
func DefaultPage() Page {
	return Page{Offset: DefaultOffset, Limit: DefaultLimit}
}

// Valid reports whether t is one of the two ledger entry types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewTransaction builds a transaction from client input with a server-assigned id and date.
func NewTransaction(id string, in TransactionInput, now time.Time) Transaction {
	return Transaction{
		ID:          id,
		Type:        in.Type,
		Category:    in.Category,
		Amount:      in.Amount,
		Date:        FormatTimestamp(now),
		Description: in.Description,
	}
}

// IsEmpty reports whether the update carries no field at all.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Type == nil && u.Category == nil && u.Amount == nil && u.Description == nil
}
