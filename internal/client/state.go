package client

import (
	"slices"
	"sync"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

// State is an immutable snapshot of everything the client knows. Reducers
// return fresh copies; callers never mutate a State they were handed.
type State struct {
	Loading       bool
	User          *core.User
	Categories    []core.Category
	Expenses      []core.ExpenseRecord
	IncomeHistory []core.IncomeRecord
	Dashboard     *core.DashboardSnapshot
}

// InitialState is the logged-out starting point.
func InitialState() State {
	return State{}
}

// Action is a sealed set of state transitions.
type Action interface{ isAction() }

type (
	SetLoading struct{ Loading bool }
	SetUser    struct{ User *core.User }

	ReplaceCategories    struct{ Categories []core.Category }
	ReplaceExpenses      struct{ Expenses []core.ExpenseRecord }
	ReplaceIncomeHistory struct{ Records []core.IncomeRecord }
	ReplaceDashboard     struct{ Snapshot core.DashboardSnapshot }

	AppendCategory   struct{ Category core.Category }
	AppendExpense    struct{ Expense core.ExpenseRecord }
	ReplaceExpense   struct{ Expense core.ExpenseRecord }
	RemoveExpense    struct{ ID int64 }
	AppendIncome     struct{ Record core.IncomeRecord }
	MarkIncomeLocked struct{ ID int64 }

	Reset struct{}
)

func (SetLoading) isAction()           {}
func (SetUser) isAction()              {}
func (ReplaceCategories) isAction()    {}
func (ReplaceExpenses) isAction()      {}
func (ReplaceIncomeHistory) isAction() {}
func (ReplaceDashboard) isAction()     {}
func (AppendCategory) isAction()       {}
func (AppendExpense) isAction()        {}
func (ReplaceExpense) isAction()       {}
func (RemoveExpense) isAction()        {}
func (AppendIncome) isAction()         {}
func (MarkIncomeLocked) isAction()     {}
func (Reset) isAction()                {}

// Reduce applies one action to a state and returns the next state. It is
// pure: the input state is never modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetUser:
		s.User = a.User
	case ReplaceCategories:
		s.Categories = a.Categories
	case ReplaceExpenses:
		s.Expenses = a.Expenses
	case ReplaceIncomeHistory:
		s.IncomeHistory = a.Records
	case ReplaceDashboard:
		snap := a.Snapshot
		s.Dashboard = &snap
	case AppendCategory:
		s.Categories = append(slices.Clone(s.Categories), a.Category)
	case AppendExpense:
		s.Expenses = append(slices.Clone(s.Expenses), a.Expense)
	case ReplaceExpense:
		expenses := slices.Clone(s.Expenses)
		for i := range expenses {
			if expenses[i].ID == a.Expense.ID {
				expenses[i] = a.Expense
			}
		}
		s.Expenses = expenses
	case RemoveExpense:
		s.Expenses = slices.DeleteFunc(slices.Clone(s.Expenses), func(e core.ExpenseRecord) bool {
			return e.ID == a.ID
		})
	case AppendIncome:
		s.IncomeHistory = append(slices.Clone(s.IncomeHistory), a.Record)
	case MarkIncomeLocked:
		records := slices.Clone(s.IncomeHistory)
		for i := range records {
			if records[i].ID == a.ID {
				records[i].IsLocked = true
			}
		}
		s.IncomeHistory = records
	case Reset:
		s = InitialState()
	}
	return s
}

// Store holds the current State and serializes dispatches.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: InitialState()}
}

func (st *Store) Dispatch(a Action) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, a)
}

// State returns the current snapshot.
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}
