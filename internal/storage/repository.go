package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/core"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sqlx.DB
}

// Open connects to the SQLite file at dbPath. It does not create tables; see Bootstrap.
func Open(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One handle shared by every request.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewRepository(db), nil
}

// NewRepository wraps an already opened database.
func NewRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.NamedExecContext(ctx, insertTransaction, map[string]any{
		"id":          t.ID,
		"type":        string(t.Type),
		"category":    t.Category,
		"amount":      t.Amount,
		"date":        t.Date,
		"description": nullableString(t.Description),
	})
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"category", t.Category,
		"amount", t.Amount)

	return nil
}

// ListTransactions returns one page of transactions in insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, page core.Page) ([]core.TransactionView, error) {
	rows := make([]core.TransactionView, 0, page.Limit)
	if err := r.db.SelectContext(ctx, &rows, listTransactions, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.TransactionView, error) {
	var row core.TransactionView
	if err := r.db.GetContext(ctx, &row, getTransaction, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.TransactionView{}, core.ErrTransactionNotFound
		}
		return core.TransactionView{}, fmt.Errorf("select transaction %s: %w", id, err)
	}
	return row, nil
}

// UpdateTransaction sets every non-nil field of upd on the transaction with the given id.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, upd core.TransactionUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *upd.Amount)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if len(sets) == 0 {
		return core.ErrNoUpdateFields
	}
	args = append(args, id)

	query := "UPDATE transactions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	return expectAffected(res, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return expectAffected(res, id)
}

// nullableString maps a nil pointer to SQL NULL without relying on driver pointer handling.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func expectAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

type summaryRow struct {
	TotalIncome   float64 `db:"total_income"`
	TotalExpenses float64 `db:"total_expenses"`
}

// Summarize totals income and expenses. Date bounds compare the stored ISO-8601
// strings lexicographically and are inclusive; the category filter matches by name.
func (r *SQLiteRepository) Summarize(ctx context.Context, f core.SummaryFilter) (core.Summary, error) {
	var (
		conds []string
		args  []any
	)
	if f.StartDate != "" {
		conds = append(conds, "transactions.date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "transactions.date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Category != "" {
		conds = append(conds, "categories.name = ?")
		args = append(args, f.Category)
	}

	query := summaryBase
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var row summaryRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return core.Summary{}, fmt.Errorf("select summary: %w", err)
	}
	return core.NewSummary(row.TotalIncome, row.TotalExpenses), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories := make([]core.Category, 0)
	if err := r.db.SelectContext(ctx, &categories, listCategories); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	return categories, nil
}
