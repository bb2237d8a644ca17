package client

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

func sampleExpense(id int64, title string) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID: id, UserID: 1, Title: title,
		Amount: decimal.NewFromInt(10), CategoryID: 1, Date: core.NewDate(2025, 1, 1),
	}
}

func TestReduceIsPure(t *testing.T) {
	before := State{
		Expenses: []core.ExpenseRecord{sampleExpense(1, "coffee")},
	}
	snapshot := State{
		Expenses: []core.ExpenseRecord{sampleExpense(1, "coffee")},
	}

	Reduce(before, RemoveExpense{ID: 1})
	Reduce(before, ReplaceExpense{Expense: sampleExpense(1, "tea")})
	Reduce(before, AppendExpense{Expense: sampleExpense(2, "lunch")})

	if !reflect.DeepEqual(before, snapshot) {
		t.Fatalf("input state was mutated: %+v", before)
	}
}

func TestReduceExpenseActions(t *testing.T) {
	s := InitialState()

	s = Reduce(s, AppendExpense{Expense: sampleExpense(1, "coffee")})
	s = Reduce(s, AppendExpense{Expense: sampleExpense(2, "lunch")})
	if len(s.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %+v", s.Expenses)
	}

	s = Reduce(s, ReplaceExpense{Expense: sampleExpense(1, "espresso")})
	if s.Expenses[0].Title != "espresso" || s.Expenses[1].Title != "lunch" {
		t.Fatalf("replace touched the wrong record: %+v", s.Expenses)
	}

	// Unknown ID is a no-op.
	s = Reduce(s, ReplaceExpense{Expense: sampleExpense(99, "ghost")})
	if len(s.Expenses) != 2 {
		t.Fatalf("replace of unknown id changed length: %+v", s.Expenses)
	}

	s = Reduce(s, RemoveExpense{ID: 1})
	if len(s.Expenses) != 1 || s.Expenses[0].ID != 2 {
		t.Fatalf("unexpected expenses after remove: %+v", s.Expenses)
	}
}

func TestReduceIncomeActions(t *testing.T) {
	s := InitialState()

	record := core.IncomeRecord{ID: 7, UserID: 1, Amount: decimal.NewFromInt(1000), Month: 1, Year: 2025}
	s = Reduce(s, AppendIncome{Record: record})
	s = Reduce(s, MarkIncomeLocked{ID: 7})
	if !s.IncomeHistory[0].IsLocked {
		t.Fatalf("expected record locked: %+v", s.IncomeHistory)
	}

	s = Reduce(s, MarkIncomeLocked{ID: 99})
	if len(s.IncomeHistory) != 1 {
		t.Fatalf("locking unknown id changed history: %+v", s.IncomeHistory)
	}
}

func TestReduceReset(t *testing.T) {
	s := InitialState()
	user := core.User{ID: 1, Email: "alice@example.com"}

	s = Reduce(s, SetUser{User: &user})
	s = Reduce(s, SetLoading{Loading: true})
	s = Reduce(s, AppendCategory{Category: core.Category{ID: 1, UserID: 1, Name: "Food"}})
	s = Reduce(s, ReplaceDashboard{Snapshot: core.DashboardSnapshot{TotalIncome: 100}})

	s = Reduce(s, Reset{})
	if !reflect.DeepEqual(s, InitialState()) {
		t.Fatalf("reset did not restore initial state: %+v", s)
	}
}

func TestStoreDispatch(t *testing.T) {
	st := NewStore()

	st.Dispatch(AppendCategory{Category: core.Category{ID: 1, UserID: 1, Name: "Food"}})
	st.Dispatch(SetLoading{Loading: true})

	s := st.State()
	if len(s.Categories) != 1 || !s.Loading {
		t.Fatalf("unexpected state %+v", s)
	}
}
