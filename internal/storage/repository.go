// Package storage persists users, categories, income and expenses in SQLite
// and serves the grouped result sets the aggregation layer consumes.
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
	"time"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound reports a row that does not exist or belongs to another
	// user; the two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("record not found")

	ErrEmailTaken = errors.New("email already registered")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

// CreateUser inserts a new user and returns it. The password hash is stored
// verbatim; hashing happens in the auth layer.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?) RETURNING id`,
		email, passwordHash,
	).Scan(&id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)
	return core.User{ID: id, Email: email}, nil
}

// GetUserByEmail returns the user and its password hash for login checks.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var u core.User
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	return u, hash, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?) RETURNING id`,
		userID, name,
	).Scan(&id)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "category_id", id, "user_id", userID)
	return core.Category{ID: id, UserID: userID, Name: name}, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// --- income ---

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO income (user_id, amount, month, year) VALUES (?, ?, ?, ?) RETURNING id`,
		in.UserID, in.Amount.String(), in.Month, in.Year,
	).Scan(&in.ID)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("create income: %w", err)
	}
	in.IsLocked = false

	slog.InfoContext(ctx, "Income created",
		"income_id", in.ID, "user_id", in.UserID, "month", in.Month, "year", in.Year)
	return in, nil
}

func (r *SQLiteRepository) ListIncome(ctx context.Context, userID int64) ([]core.IncomeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, month, year, is_locked FROM income WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	records := make([]core.IncomeRecord, 0)
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, in)
	}
	return records, rows.Err()
}

// LockIncome sets the locked flag on a record owned by userID and returns
// the updated row. A missing or foreign row yields ErrNotFound.
func (r *SQLiteRepository) LockIncome(ctx context.Context, userID, id int64) (core.IncomeRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE income SET is_locked = 1 WHERE id = ? AND user_id = ?
		 RETURNING id, user_id, amount, month, year, is_locked`,
		id, userID)

	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IncomeRecord{}, ErrNotFound
	}
	if err != nil {
		return core.IncomeRecord{}, err
	}

	slog.InfoContext(ctx, "Income locked", "income_id", id, "user_id", userID)
	return in, nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, title, amount, category_id, date) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, e.Title, e.Amount.String(), e.CategoryID, e.Date.String(),
	).Scan(&e.ID)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", e.ID, "user_id", e.UserID, "category_id", e.CategoryID)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount, category_id, date FROM expenses WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	records := make([]core.ExpenseRecord, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

// UpdateExpense replaces all mutable fields of an expense owned by userID.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE expenses SET title = ?, amount = ?, category_id = ?, date = ?
		 WHERE id = ? AND user_id = ?
		 RETURNING id, user_id, title, amount, category_id, date`,
		e.Title, e.Amount.String(), e.CategoryID, e.Date.String(), e.ID, e.UserID)

	updated, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", e.ID, "user_id", e.UserID)
	return updated, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "user_id", userID)
	return nil
}

// --- grouped aggregates ---

// IncomeSumsByMonth returns one row per month with income, as decimal text.
func (r *SQLiteRepository) IncomeSumsByMonth(ctx context.Context, userID int64) ([]core.MonthSum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, CAST(SUM(amount) AS TEXT) AS total
		 FROM income WHERE user_id = ? GROUP BY month`, userID)
	if err != nil {
		return nil, fmt.Errorf("income sums by month: %w", err)
	}
	defer rows.Close()
	return scanMonthSums(rows)
}

// ExpenseSumsByMonth returns one row per month with expenses; the month is
// extracted from the date column, it is not stored on the row.
func (r *SQLiteRepository) ExpenseSumsByMonth(ctx context.Context, userID int64) ([]core.MonthSum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER) AS month, CAST(SUM(amount) AS TEXT) AS total
		 FROM expenses WHERE user_id = ? GROUP BY month`, userID)
	if err != nil {
		return nil, fmt.Errorf("expense sums by month: %w", err)
	}
	defer rows.Close()
	return scanMonthSums(rows)
}

// CategorySums joins expenses against categories and sums per category.
// Expenses whose category reference dangles, or points at another user's
// category, simply drop out of the join. Buckets come back in discovery
// order: the category whose first expense was recorded earliest sorts first.
func (r *SQLiteRepository) CategorySums(ctx context.Context, userID int64) ([]core.CategorySum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, CAST(SUM(e.amount) AS TEXT) AS total
		 FROM expenses e JOIN categories c ON e.category_id = c.id AND c.user_id = e.user_id
		 WHERE e.user_id = ?
		 GROUP BY c.id, c.name
		 ORDER BY MIN(e.id)`, userID)
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	sums := make([]core.CategorySum, 0)
	for rows.Next() {
		var name string
		var total sql.NullString
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, core.CategorySum{Name: name, Total: total.String})
	}
	return sums, rows.Err()
}

// --- audit log ---

// InsertAuditEvent records one mutation event consumed from the change feed.
func (r *SQLiteRepository) InsertAuditEvent(ctx context.Context, entity, op string, entityID, userID int64, occurredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity, op, entity_id, user_id, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		entity, op, entityID, userID, occurredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(row rowScanner) (core.IncomeRecord, error) {
	var in core.IncomeRecord
	var amount string
	var locked int64
	if err := row.Scan(&in.ID, &in.UserID, &amount, &in.Month, &in.Year, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.IncomeRecord{}, err
		}
		return core.IncomeRecord{}, fmt.Errorf("scan income: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("parse income amount %q: %w", amount, err)
	}
	in.Amount = d
	in.IsLocked = locked != 0
	return in, nil
}

func scanExpense(row rowScanner) (core.ExpenseRecord, error) {
	var e core.ExpenseRecord
	var amount, date string
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &amount, &e.CategoryID, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ExpenseRecord{}, err
		}
		return core.ExpenseRecord{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse expense amount %q: %w", amount, err)
	}
	e.Amount = d
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = parsed
	return e, nil
}

func scanMonthSums(rows *sql.Rows) ([]core.MonthSum, error) {
	sums := make([]core.MonthSum, 0)
	for rows.Next() {
		var month int
		var total sql.NullString
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("scan month sum: %w", err)
		}
		sums = append(sums, core.MonthSum{Month: month, Total: total.String})
	}
	return sums, rows.Err()
}
