// Package core holds the domain types and the aggregation functions that
// merge grouped storage results into dashboard payloads.
//
// This file contains the monthly merge and category grouping logic. Inputs
// are the raw grouped rows as the store returns them (month or name plus a
// textual sum); outputs are ordered bucket sequences with zero-filled sides.
package core

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type (
	// MonthSum is one grouped row of a per-month total query. Total is the
	// decimal text the store produced; it is empty when the sum was NULL.
	MonthSum struct {
		Month int
		Total string
	}

	// CategorySum is one grouped row of a per-category total query.
	CategorySum struct {
		Name  string
		Total string
	}

	// MonthlyBucket is one aggregated data point for a single month.
	// Sides with no underlying records stay at 0.
	MonthlyBucket struct {
		Month    int     `json:"month"`
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
	}

	// CategoryBucket is the total spent in one category.
	CategoryBucket struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	// DashboardSnapshot is the complete dashboard payload for one request.
	// TotalIncome and TotalExpenses are reductions over MonthlyData, never
	// an independent query, so the payload is internally consistent.
	DashboardSnapshot struct {
		MonthlyData   []MonthlyBucket  `json:"monthlyData"`
		CategoryData  []CategoryBucket `json:"categoryData"`
		TotalIncome   float64          `json:"totalIncome"`
		TotalExpenses float64          `json:"totalExpenses"`
	}
)

// parseTotal converts a textual sum into a float. A NULL sum (empty string),
// a malformed value, or a non-finite result all count as 0, never NaN.
func parseTotal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// MergeMonthly joins per-month income totals and per-month expense totals
// into one timeline sorted ascending by month. A month present in both
// inputs yields exactly one bucket carrying both sides; a month present in
// only one input gets 0 for the missing side.
func MergeMonthly(income, expenses []MonthSum) []MonthlyBucket {
	byMonth := make(map[int]*MonthlyBucket)
	for _, row := range income {
		byMonth[row.Month] = &MonthlyBucket{
			Month:  row.Month,
			Income: parseTotal(row.Total),
		}
	}
	for _, row := range expenses {
		if b, ok := byMonth[row.Month]; ok {
			b.Expenses = parseTotal(row.Total)
			continue
		}
		byMonth[row.Month] = &MonthlyBucket{
			Month:    row.Month,
			Expenses: parseTotal(row.Total),
		}
	}

	buckets := make([]MonthlyBucket, 0, len(byMonth))
	for _, b := range byMonth {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Month < buckets[j].Month })
	return buckets
}

// GroupCategories converts grouped category rows into buckets, preserving
// the order the store discovered them in. Categories without expenses never
// appear here because the store query only groups matching rows.
func GroupCategories(sums []CategorySum) []CategoryBucket {
	buckets := make([]CategoryBucket, 0, len(sums))
	for _, row := range sums {
		buckets = append(buckets, CategoryBucket{
			Name:  row.Name,
			Value: parseTotal(row.Total),
		})
	}
	return buckets
}

// BuildSnapshot composes the monthly timeline and category breakdown into a
// dashboard payload with grand totals reduced from the monthly buckets.
func BuildSnapshot(incomeSums, expenseSums []MonthSum, categorySums []CategorySum) DashboardSnapshot {
	monthly := MergeMonthly(incomeSums, expenseSums)

	var totalIncome, totalExpenses float64
	for _, b := range monthly {
		totalIncome += b.Income
		totalExpenses += b.Expenses
	}

	return DashboardSnapshot{
		MonthlyData:   monthly,
		CategoryData:  GroupCategories(categorySums),
		TotalIncome:   totalIncome,
		TotalExpenses: totalExpenses,
	}
}
