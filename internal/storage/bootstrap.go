package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
)

type demoTransaction struct {
	typ         core.TransactionType
	category    string
	amount      float64
	description string
}

var (
	demoCategories = []core.Category{
		{Name: "Salary", Type: core.Income},
		{Name: "Freelance", Type: core.Income},
		{Name: "Groceries", Type: core.Expense},
		{Name: "Utilities", Type: core.Expense},
		{Name: "Entertainment", Type: core.Expense},
	}

	demoTransactions = []demoTransaction{
		{core.Income, "Salary", 1000.00, "Salary payment"},
		{core.Expense, "Groceries", 200.00, "Groceries shopping"},
		{core.Income, "Freelance", 1500.00, "Freelance work"},
		{core.Expense, "Utilities", 300.00, "Utility bill"},
		{core.Expense, "Entertainment", 100.00, "Movie tickets"},
	}
)

// Bootstrap ensures the schema exists in the SQLite file at dbPath and, when seed
// is true and no category exists yet, inserts the demo data set. It reports
// whether demo rows were inserted.
func Bootstrap(ctx context.Context, dbPath string, seed bool) (bool, error) {
	repo, err := Open(dbPath)
	if err != nil {
		return false, err
	}
	defer repo.Close()

	if err := RunMigrations(dbPath); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "Schema ready", "path", dbPath)

	if !seed {
		return false, nil
	}
	return repo.SeedDemo(ctx)
}

// SeedDemo inserts the demo categories and transactions when the categories table is empty.
func (r *SQLiteRepository) SeedDemo(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, countCategories); err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		slog.InfoContext(ctx, "Categories already present, skipping demo seed", "count", count)
		return false, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64, len(demoCategories))
	for _, c := range demoCategories {
		res, err := tx.ExecContext(ctx, insertCategory, c.Name, string(c.Type))
		if err != nil {
			return false, fmt.Errorf("insert category %s: %w", c.Name, err)
		}
		if ids[c.Name], err = res.LastInsertId(); err != nil {
			return false, fmt.Errorf("category id for %s: %w", c.Name, err)
		}
	}

	date := core.FormatTimestamp(time.Now())
	for _, d := range demoTransactions {
		_, err := tx.NamedExecContext(ctx, insertTransaction, map[string]any{
			"id":          uuid.NewString(),
			"type":        string(d.typ),
			"category":    ids[d.category],
			"amount":      d.amount,
			"date":        date,
			"description": d.description,
		})
		if err != nil {
			return false, fmt.Errorf("insert demo transaction %q: %w", d.description, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Demo data inserted",
		"categories", len(demoCategories),
		"transactions", len(demoTransactions))
	return true, nil
}
