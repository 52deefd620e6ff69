package core

import (
	"encoding/json"
	"testing"
)

func TestAmountDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"12.5 EUR", "12.5", true},
		{".5", "0.5", true},
		{"1e3", "1000", true},
		{"+4", "4", true},
		{"-1", "-1", true},
		{"abc", "0", false},
		{"", "0", false},
		{"EUR 12", "0", false},
	}
	for _, tc := range cases {
		got, ok := AmountFromString(tc.in).Decimal()
		if ok != tc.ok {
			t.Fatalf("%q expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestAmountOrZero(t *testing.T) {
	if !AmountOrZero(AmountFromString("not a number")).IsZero() {
		t.Fatalf("expected zero for non-numeric amount")
	}
	if !AmountOrZero(Amount{}).IsZero() {
		t.Fatalf("expected zero for empty amount")
	}
	if got := AmountOrZero(AmountFromFloat(12.75)).String(); got != "12.75" {
		t.Fatalf("expected 12.75, got %s", got)
	}
}

func TestParseStrictAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"0", "0", true},
		{"1,23", "1.23", true},
		{"1.005", "1.005", true},
		{"-1", "", false},
		{"12abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseStrictAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestAmountJSONPreservesShape(t *testing.T) {
	cases := []string{`"1000"`, `1000`, `12.50`, `"abc"`, `null`}
	for _, in := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Fatalf("%s: unmarshal: %v", in, err)
		}
		out, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("%s: marshal: %v", in, err)
		}
		if string(out) != in {
			t.Fatalf("expected %s, got %s", in, out)
		}
	}
}

func TestAmountJSONKeepsNonNumericValues(t *testing.T) {
	for _, in := range []string{`{}`, `[1]`, `true`, `{"value":5}`} {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Fatalf("%s: unmarshal: %v", in, err)
		}
		if got := AmountOrZero(a); !got.IsZero() {
			t.Fatalf("%s: expected zero, got %s", in, got)
		}
		out, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("%s: marshal: %v", in, err)
		}
		if string(out) != in {
			t.Fatalf("expected %s, got %s", in, out)
		}
	}
}
