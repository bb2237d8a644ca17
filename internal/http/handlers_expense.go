package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

type expenseRequest struct {
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID int64           `json:"category_id"`
	Date       core.Date       `json:"date"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	records, err := s.tracker.ListExpenses(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.tracker.CreateExpense(r.Context(), core.ExpenseRecord{
		UserID:     userID(r),
		Title:      req.Title,
		Amount:     req.Amount,
		CategoryID: req.CategoryID,
		Date:       req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.tracker.UpdateExpense(r.Context(), core.ExpenseRecord{
		ID:         id,
		UserID:     userID(r),
		Title:      req.Title,
		Amount:     req.Amount,
		CategoryID: req.CategoryID,
		Date:       req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.tracker.DeleteExpense(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}
