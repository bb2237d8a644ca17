// Package services orchestrates record mutations across SQLite, the change
// feed and the dashboard snapshot cache.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AyushBalyan/Expense-Tracker/internal/amqp"
	"github.com/AyushBalyan/Expense-Tracker/internal/cache"
	"github.com/AyushBalyan/Expense-Tracker/internal/core"
	"github.com/AyushBalyan/Expense-Tracker/internal/storage"
)

// Tracker wraps the repository with change-event publishing and snapshot
// caching. A nil events client disables the feed; a nil snapshots cache
// disables memoization.
type Tracker struct {
	store     *storage.SQLiteRepository
	events    *amqp.Client
	snapshots *cache.LRU[int64, core.DashboardSnapshot]
}

func NewTracker(store *storage.SQLiteRepository, events *amqp.Client, snapshots *cache.LRU[int64, core.DashboardSnapshot]) *Tracker {
	return &Tracker{
		store:     store,
		events:    events,
		snapshots: snapshots,
	}
}

// --- categories ---

func (t *Tracker) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	c := core.Category{UserID: userID, Name: name}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := t.store.CreateCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, err
	}

	t.publish(ctx, "category", "create", created.ID, userID)
	return created, nil
}

func (t *Tracker) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return t.store.ListCategories(ctx, userID)
}

// --- income ---

func (t *Tracker) CreateIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error) {
	if err := in.Validate(); err != nil {
		return core.IncomeRecord{}, err
	}

	created, err := t.store.CreateIncome(ctx, in)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	t.publish(ctx, "income", "create", created.ID, in.UserID)
	t.invalidateSnapshot(in.UserID)
	return created, nil
}

func (t *Tracker) ListIncome(ctx context.Context, userID int64) ([]core.IncomeRecord, error) {
	return t.store.ListIncome(ctx, userID)
}

// LockIncome flips the locked flag. Sums are unaffected so the snapshot
// cache stays warm.
func (t *Tracker) LockIncome(ctx context.Context, userID, id int64) (core.IncomeRecord, error) {
	locked, err := t.store.LockIncome(ctx, userID, id)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	t.publish(ctx, "income", "lock", id, userID)
	return locked, nil
}

// --- expenses ---

func (t *Tracker) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	created, err := t.store.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	t.publish(ctx, "expense", "create", created.ID, e.UserID)
	t.invalidateSnapshot(e.UserID)
	return created, nil
}

func (t *Tracker) ListExpenses(ctx context.Context, userID int64) ([]core.ExpenseRecord, error) {
	return t.store.ListExpenses(ctx, userID)
}

func (t *Tracker) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	updated, err := t.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	t.publish(ctx, "expense", "update", e.ID, e.UserID)
	t.invalidateSnapshot(e.UserID)
	return updated, nil
}

func (t *Tracker) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := t.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	t.publish(ctx, "expense", "delete", id, userID)
	t.invalidateSnapshot(userID)
	return nil
}

// --- dashboard ---

// Snapshot builds the dashboard view for userID, serving from cache when a
// fresh copy exists.
func (t *Tracker) Snapshot(ctx context.Context, userID int64) (core.DashboardSnapshot, error) {
	if t.snapshots != nil {
		if snap, ok := t.snapshots.Get(userID); ok {
			return snap, nil
		}
	}

	incomeSums, err := t.store.IncomeSumsByMonth(ctx, userID)
	if err != nil {
		return core.DashboardSnapshot{}, fmt.Errorf("income sums: %w", err)
	}
	expenseSums, err := t.store.ExpenseSumsByMonth(ctx, userID)
	if err != nil {
		return core.DashboardSnapshot{}, fmt.Errorf("expense sums: %w", err)
	}
	categorySums, err := t.store.CategorySums(ctx, userID)
	if err != nil {
		return core.DashboardSnapshot{}, fmt.Errorf("category sums: %w", err)
	}

	snap := core.BuildSnapshot(incomeSums, expenseSums, categorySums)
	if t.snapshots != nil {
		t.snapshots.Set(userID, snap)
	}
	return snap, nil
}

func (t *Tracker) invalidateSnapshot(userID int64) {
	if t.snapshots != nil {
		t.snapshots.Invalidate(userID)
	}
}

func (t *Tracker) publish(ctx context.Context, entity, op string, id, userID int64) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishChange(ctx, amqp.NewChangeMessage(entity, op, id, userID)); err != nil {
		// The write already committed; the feed is best-effort.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity, "op", op, "id", id, "error", err)
	}
}

// Close releases the repository, the feed connection and the cache janitor.
func (t *Tracker) Close() error {
	var errs []error

	if t.snapshots != nil {
		t.snapshots.Stop()
	}
	if t.store != nil {
		if err := t.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if t.events != nil {
		if err := t.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close tracker: %v", errs)
	}
	return nil
}
