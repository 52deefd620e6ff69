package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

type (
	// Kind discriminates the two ledger collections.
	Kind string

	// Date is a calendar date without a time component. The zero value
	// means "no date" and never matches a bounded range or a month.
	//
	// A stored value that is not a recognizable date decodes as undated and
	// keeps its original JSON so it is written back unchanged.
	Date struct {
		time.Time
		raw string
	}

	// Transaction is a single income or expense record.
	Transaction struct {
		ID          string `json:"id"`
		Kind        Kind   `json:"type"`
		Description string `json:"description"`
		Amount      Amount `json:"amount"`
		Date        Date   `json:"date"`
		Category    string `json:"category"`
	}

	// Fields are the caller-supplied values of a new record.
	Fields struct {
		Description string
		Amount      Amount
		Date        Date
		Category    string
	}

	// Patch is a partial update. Nil fields are left unchanged.
	Patch struct {
		Description *string
		Amount      *Amount
		Date        *Date
		Category    *string
	}

	// DateRange bounds a query inclusively. Either end may be nil.
	DateRange struct {
		From *Date
		To   *Date
	}
)

var (
	ErrWriteFailed  = errors.New("storage write failed")
	ErrNotFound     = errors.New("record not found")
	ErrDecode       = errors.New("backup document could not be decoded")
	ErrInvalidKind  = errors.New("invalid kind")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("date range start is after its end")
	ErrCorruptData  = errors.New("stored data could not be read")
)

// Kinds lists both kinds in a stable order (incomes first, as persisted).
func Kinds() []Kind {
	return []Kind{Income, Expense}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Collection returns the plural name used for storage keys and URLs.
func (k Kind) Collection() string {
	switch k {
	case Income:
		return "incomes"
	case Expense:
		return "expenses"
	default:
		return ""
	}
}

// KindFromCollection is the inverse of Kind.Collection.
func KindFromCollection(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "incomes":
		return Income, true
	case "expenses":
		return Expense, true
	default:
		return "", false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, keeping only the
// calendar date. The empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.raw != "" {
		var s string
		if json.Unmarshal([]byte(d.raw), &s) == nil {
			return s
		}
		return d.raw
	}
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Unrecognized reports whether the date was decoded from a value that is
// not a date. Such a date counts as undated.
func (d Date) Unrecognized() bool {
	return d.raw != ""
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// InMonth reports whether the date falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	if d.IsZero() {
		return false
	}
	return d.Year() == year && d.Month() == month
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.raw != "" {
		return []byte(d.raw), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on well-formed JSON: anything that does not
// parse as a date is kept verbatim as an undated value.
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := ParseDate(s); err == nil {
			*d = parsed
			return nil
		}
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	*d = Date{raw: string(data)}
	return nil
}

// Contains reports whether d lies within the range, bounds inclusive.
// An unbounded range contains every record, including undated ones.
func (r DateRange) Contains(d Date) bool {
	if r.From == nil && r.To == nil {
		return true
	}
	if d.IsZero() {
		return false
	}
	if r.From != nil && d.Before(r.From.Time) {
		return false
	}
	if r.To != nil && d.After(r.To.Time) {
		return false
	}
	return true
}

// Validate rejects a range whose start is after its end.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(r.To.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Normalize trims the free-text fields the way they are stored.
func (f Fields) Normalize() Fields {
	f.Description = strings.TrimSpace(f.Description)
	return f
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Date == nil && p.Category == nil
}

// Apply merges the provided fields over t. Identity and kind never change.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	return t
}
