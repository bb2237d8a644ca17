package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/cache"
	"github.com/AyushBalyan/Expense-Tracker/internal/core"
	"github.com/AyushBalyan/Expense-Tracker/internal/storage"
)

func newTestTracker(t *testing.T) (*Tracker, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	snapshots := cache.New[int64, core.DashboardSnapshot](16, time.Minute)
	tracker := NewTracker(repo, nil, snapshots)
	t.Cleanup(func() { tracker.Close() })
	return tracker, repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	tracker, repo := newTestTracker(t)
	u := seedUser(t, repo)

	_, err := tracker.CreateExpense(context.Background(), core.ExpenseRecord{
		UserID: u.ID, Title: "", Amount: decimal.NewFromInt(10),
		CategoryID: 1, Date: core.NewDate(2025, 1, 1),
	})
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	_, err = tracker.CreateExpense(context.Background(), core.ExpenseRecord{
		UserID: u.ID, Title: "coffee", Amount: decimal.NewFromInt(-1),
		CategoryID: 1, Date: core.NewDate(2025, 1, 1),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSnapshotInvalidatedOnMutation(t *testing.T) {
	tracker, repo := newTestTracker(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	cat, err := tracker.CreateCategory(ctx, u.ID, "Food")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	snap, err := tracker.Snapshot(ctx, u.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TotalExpenses != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	if _, err := tracker.CreateExpense(ctx, core.ExpenseRecord{
		UserID: u.ID, Title: "groceries", Amount: decimal.NewFromInt(100),
		CategoryID: cat.ID, Date: core.NewDate(2025, 1, 10),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	// The cached empty snapshot must not survive the write.
	snap, err = tracker.Snapshot(ctx, u.ID)
	if err != nil {
		t.Fatalf("snapshot after mutation: %v", err)
	}
	if snap.TotalExpenses != 100 {
		t.Fatalf("totalExpenses = %v, want 100", snap.TotalExpenses)
	}
	if len(snap.CategoryData) != 1 || snap.CategoryData[0].Value != 100 {
		t.Fatalf("unexpected category data %+v", snap.CategoryData)
	}
}

func TestLockIncomeKeepsSnapshotWarm(t *testing.T) {
	tracker, repo := newTestTracker(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	in, err := tracker.CreateIncome(ctx, core.IncomeRecord{
		UserID: u.ID, Amount: decimal.NewFromInt(1000), Month: 1, Year: 2025,
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}

	before, err := tracker.Snapshot(ctx, u.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	locked, err := tracker.LockIncome(ctx, u.ID, in.ID)
	if err != nil {
		t.Fatalf("lock income: %v", err)
	}
	if !locked.IsLocked {
		t.Fatalf("expected locked record")
	}

	after, err := tracker.Snapshot(ctx, u.ID)
	if err != nil {
		t.Fatalf("snapshot after lock: %v", err)
	}
	if before.TotalIncome != after.TotalIncome {
		t.Fatalf("lock must not change sums: before %v after %v", before.TotalIncome, after.TotalIncome)
	}
}

func TestDeleteExpenseNotFound(t *testing.T) {
	tracker, repo := newTestTracker(t)
	u := seedUser(t, repo)

	err := tracker.DeleteExpense(context.Background(), u.ID, 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
