// Package core provides money parsing and handling utilities.
//
// Amounts are kept exactly as they were supplied (a JSON string or a JSON
// number) so that a backup written back out is identical to what was read.
// Arithmetic happens on demand through shopspring/decimal.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a monetary value in its original textual form. Unquoted text
// is always valid JSON.
type Amount struct {
	text   string
	quoted bool
}

// leadingNumber matches the numeric prefix a lenient float parser accepts.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// NewAmount builds a numeric Amount from a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{text: d.String()}
}

// AmountFromString builds an Amount that encodes as a JSON string, the
// shape form input arrives in.
func AmountFromString(s string) Amount {
	return Amount{text: s, quoted: true}
}

// AmountFromFloat is a convenience for literals.
func AmountFromFloat(f float64) Amount {
	return NewAmount(decimal.NewFromFloat(f))
}

func (a Amount) String() string {
	return a.text
}

// IsQuoted reports whether the amount was supplied as a JSON string.
func (a Amount) IsQuoted() bool {
	return a.quoted
}

// Decimal parses the amount leniently: surrounding space is ignored, a lone
// decimal comma is read as a dot, and trailing non-numeric text after a
// valid numeric prefix is dropped ("12.5 EUR" is 12.5). The boolean is false
// when no numeric prefix exists.
func (a Amount) Decimal() (decimal.Decimal, bool) {
	s := strings.TrimSpace(a.text)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	prefix := leadingNumber.FindString(s)
	if prefix == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(prefix, "+"))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// AmountOrZero is the aggregation policy for amounts that do not parse as a
// number: they count as zero instead of rejecting the record.
func AmountOrZero(a Amount) decimal.Decimal {
	d, ok := a.Decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseStrictAmount parses user input for new records. Unlike Decimal it
// rejects trailing garbage and negative values.
//
// Examples:
//
//	ParseStrictAmount("12.34") -> 12.34, nil
//	ParseStrictAmount("12,34") -> 12.34, nil
//	ParseStrictAmount("-1")    -> error
func ParseStrictAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if leadingNumber.FindString(s) != s {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.quoted {
		return json.Marshal(a.text)
	}
	if a.text == "" {
		return []byte("null"), nil
	}
	return []byte(a.text), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Amount{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountFromString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*a = Amount{text: n.String()}
			return nil
		}
		// Not a number either: keep the JSON as is. It is written back
		// unchanged and counts as zero.
		if !json.Valid(data) {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
		}
		*a = Amount{text: string(data)}
		return nil
	}
}
