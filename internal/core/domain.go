package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a calendar date (no time component). It marshals as "YYYY-MM-DD".
	Date struct {
		time.Time
	}

	// User is the authenticated owner of every other record. The password
	// hash never leaves the storage and auth layers.
	User struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}

	Category struct {
		ID     int64  `json:"id"`
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
	}

	// IncomeRecord is a monthly income entry. Once locked it is immutable;
	// aggregation treats locked and unlocked records identically.
	IncomeRecord struct {
		ID       int64           `json:"id"`
		UserID   int64           `json:"user_id"`
		Amount   decimal.Decimal `json:"amount"`
		Month    int             `json:"month"`
		Year     int             `json:"year"`
		IsLocked bool            `json:"is_locked"`
	}

	// ExpenseRecord is a dated, categorized expense. The month used for
	// aggregation is derived from Date, never stored separately.
	ExpenseRecord struct {
		ID         int64           `json:"id"`
		UserID     int64           `json:"user_id"`
		Title      string          `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		CategoryID int64           `json:"category_id"`
		Date       Date            `json:"date"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 100 characters)")
	ErrInvalidCategory = errors.New("invalid category reference")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Month returns the month component (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year component.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	// Tolerate full timestamps from stores that return them.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

func (in IncomeRecord) Validate() error {
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if in.Month < 1 || in.Month > 12 {
		return ErrInvalidMonth
	}
	if in.Year < 1900 || in.Year > 3000 {
		return ErrInvalidYear
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if e.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	return e.Date.Validate()
}
