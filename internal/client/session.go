package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

// Session binds the API client, the state store and the saved credentials.
// Mutations apply the server's response to the store, then reconcile the
// full state so aggregates never drift from the server.
type Session struct {
	api   *APIClient
	store *Store
	creds CredentialStore

	// reconcileSeq guards against an older reconcile overwriting a newer
	// one: only the latest invocation may publish its result.
	reconcileSeq atomic.Uint64
}

func NewSession(api *APIClient, store *Store, creds CredentialStore) *Session {
	return &Session{api: api, store: store, creds: creds}
}

func (s *Session) Store() *Store {
	return s.store
}

// Bootstrap restores a saved session. With no saved token it leaves the
// store logged out and returns nil. A token the server rejects is cleared,
// and the error is returned so callers can tell the user to sign in again.
func (s *Session) Bootstrap(ctx context.Context) error {
	token, err := s.creds.Load()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if token == "" {
		return nil
	}

	s.api.SetToken(token)
	user, err := s.api.Verify(ctx)
	if err != nil {
		s.api.SetToken("")
		if clearErr := s.creds.Clear(); clearErr != nil {
			return fmt.Errorf("clear stale credentials: %w", clearErr)
		}
		return fmt.Errorf("verify saved session: %w", err)
	}

	s.store.Dispatch(SetUser{User: &user})
	return s.Reconcile(ctx)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adoptToken(ctx, token)
}

func (s *Session) Register(ctx context.Context, email, password string) error {
	token, err := s.api.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adoptToken(ctx, token)
}

// adoptToken saves a fresh token, resolves its user and loads all state.
func (s *Session) adoptToken(ctx context.Context, token string) error {
	if err := s.creds.Save(token); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.api.SetToken(token)

	user, err := s.api.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify new session: %w", err)
	}
	s.store.Dispatch(SetUser{User: &user})
	return s.Reconcile(ctx)
}

func (s *Session) Logout() error {
	s.api.SetToken("")
	s.store.Dispatch(Reset{})
	if err := s.creds.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// AddCategory creates a category and appends it locally. Categories do not
// affect aggregates, so no reconcile runs.
func (s *Session) AddCategory(ctx context.Context, name string) (core.Category, error) {
	created, err := s.api.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	s.store.Dispatch(AppendCategory{Category: created})
	return created, nil
}

func (s *Session) AddExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	created, err := s.api.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	s.store.Dispatch(AppendExpense{Expense: created})
	if err := s.Reconcile(ctx); err != nil {
		return created, err
	}
	return created, nil
}

func (s *Session) EditExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	updated, err := s.api.UpdateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	s.store.Dispatch(ReplaceExpense{Expense: updated})
	if err := s.Reconcile(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

func (s *Session) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.api.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.store.Dispatch(RemoveExpense{ID: id})
	return s.Reconcile(ctx)
}

func (s *Session) AddIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error) {
	created, err := s.api.CreateIncome(ctx, in)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	s.store.Dispatch(AppendIncome{Record: created})
	if err := s.Reconcile(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// LockIncome flips the flag locally from the server's confirmation. Locking
// changes no sums, so the rest of the state stays put.
func (s *Session) LockIncome(ctx context.Context, id int64) (core.IncomeRecord, error) {
	locked, err := s.api.LockIncome(ctx, id)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	s.store.Dispatch(MarkIncomeLocked{ID: locked.ID})
	return locked, nil
}

// Reconcile refetches categories, expenses, income history and the dashboard
// snapshot concurrently, and replaces all four at once. If any fetch fails,
// nothing is replaced. A reconcile that was superseded while in flight
// discards its result.
func (s *Session) Reconcile(ctx context.Context) error {
	seq := s.reconcileSeq.Add(1)

	s.store.Dispatch(SetLoading{Loading: true})
	defer s.store.Dispatch(SetLoading{Loading: false})

	var (
		categories []core.Category
		expenses   []core.ExpenseRecord
		income     []core.IncomeRecord
		snapshot   core.DashboardSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.api.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.api.ListExpenses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.api.ListIncome(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = s.api.Dashboard(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	if s.reconcileSeq.Load() != seq {
		return nil
	}

	s.store.Dispatch(ReplaceCategories{Categories: categories})
	s.store.Dispatch(ReplaceExpenses{Expenses: expenses})
	s.store.Dispatch(ReplaceIncomeHistory{Records: income})
	s.store.Dispatch(ReplaceDashboard{Snapshot: snapshot})
	return nil
}
