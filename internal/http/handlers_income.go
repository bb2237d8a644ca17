package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

type createIncomeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Month  int             `json:"month"`
	Year   int             `json:"year"`
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	records, err := s.tracker.ListIncome(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.tracker.CreateIncome(r.Context(), core.IncomeRecord{
		UserID: userID(r),
		Amount: req.Amount,
		Month:  req.Month,
		Year:   req.Year,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleLockIncome(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid income id")
		return
	}

	record, err := s.tracker.LockIncome(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
