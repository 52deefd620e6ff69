// Package http provides HTTP server and handler implementations.
//
// This file implements request decoding, validation and input
// sanitization shared by the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"fincontrol/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// TransactionRequest is the body of a create request. Amount is accepted
// as a JSON string or number.
type TransactionRequest struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Category    string          `json:"category" validate:"required,max=100"`
}

// PatchRequest is the body of an update request. Absent fields are left
// unchanged.
type PatchRequest struct {
	Description *string         `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Date        *string         `json:"date"`
	Category    *string         `json:"category"`
}

// SanitizeText strips markup and control characters and trims the result.
// Entities escaped by the policy are decoded again; output encoding is the
// renderer's job.
func SanitizeText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// decodeJSON reads at most limit bytes into dst and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// Fields sanitizes and validates the request. The returned map is non-nil
// only when validation failed.
func (req TransactionRequest) Fields() (core.Fields, map[string]string) {
	req.Description = SanitizeText(req.Description)
	req.Category = SanitizeText(req.Category)

	problems := map[string]string{}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			problems["body"] = err.Error()
			return core.Fields{}, problems
		}
		for _, fe := range verrs {
			problems[fe.Field()] = fe.Tag()
		}
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		problems["amount"] = "decimal"
	}
	if len(problems) > 0 {
		return core.Fields{}, problems
	}

	return core.Fields{
		Description: req.Description,
		Amount:      amount,
		Date:        core.MustParseDate(req.Date),
		Category:    req.Category,
	}, nil
}

// Patch sanitizes and validates the provided fields.
func (req PatchRequest) Patch() (core.Patch, map[string]string) {
	var patch core.Patch
	problems := map[string]string{}

	check := func(field string, value *string, tag string) *string {
		if value == nil {
			return nil
		}
		clean := SanitizeText(*value)
		if err := validate.Var(clean, tag); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				problems[field] = verrs[0].Tag()
			} else {
				problems[field] = "invalid"
			}
		}
		return &clean
	}

	patch.Description = check("description", req.Description, "required,max=200")
	patch.Category = check("category", req.Category, "required,max=100")
	if raw := check("date", req.Date, "required,datetime=2006-01-02"); raw != nil {
		if _, bad := problems["date"]; !bad {
			d := core.MustParseDate(*raw)
			patch.Date = &d
		}
	}
	if len(req.Amount) > 0 {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			problems["amount"] = "decimal"
		} else {
			patch.Amount = &amount
		}
	}

	if len(problems) > 0 {
		return core.Patch{}, problems
	}
	return patch, nil
}

// parseAmount accepts "12.50", "12,50" or 12.5 and rejects negatives.
func parseAmount(raw json.RawMessage) (core.Amount, error) {
	if len(raw) == 0 {
		return core.Amount{}, core.ErrInvalidAmount
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return core.Amount{}, core.ErrInvalidAmount
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return core.Amount{}, core.ErrInvalidAmount
		}
		text = n.String()
	}
	d, err := core.ParseStrictAmount(text)
	if err != nil {
		return core.Amount{}, err
	}
	return core.NewAmount(d), nil
}

// kindParam resolves the {kind} path segment ("incomes" or "expenses").
func kindParam(r *http.Request) (core.Kind, bool) {
	return core.KindFromCollection(chi.URLParam(r, "kind"))
}

// ParseDateRange reads the optional from/to query parameters.
func ParseDateRange(r *http.Request) (core.DateRange, error) {
	var rng core.DateRange
	for _, p := range []struct {
		name string
		dst  **core.Date
	}{{"from", &rng.From}, {"to", &rng.To}} {
		v := strings.TrimSpace(r.URL.Query().Get(p.name))
		if v == "" {
			continue
		}
		d, err := time.Parse(core.DateLayout, v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: %s=%q", core.ErrInvalidDate, p.name, v)
		}
		date := core.Date{Time: d}
		*p.dst = &date
	}
	if err := rng.Validate(); err != nil {
		return core.DateRange{}, err
	}
	return rng, nil
}

// parseYearMonth reads the {year} and {month} path segments.
func parseYearMonth(r *http.Request) (int, time.Month, error) {
	year, err := parseYear(r)
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", chi.URLParam(r, "month"))
	}
	return year, time.Month(month), nil
}

func parseYear(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", chi.URLParam(r, "year"))
	}
	return year, nil
}

// parseLimit reads ?limit=N; zero means no limit.
func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}
