package backup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fincontrol/internal/core"
	"fincontrol/internal/kv/memory"
	"fincontrol/internal/ledger"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)

func seededLedger(t *testing.T) *ledger.Store {
	t.Helper()
	ctx := context.Background()
	s := ledger.New(memory.New(nil))
	mustCreate := func(kind core.Kind, desc, amount, date, cat string) {
		t.Helper()
		_, err := s.Create(ctx, kind, core.Fields{
			Description: desc,
			Amount:      core.AmountFromString(amount),
			Date:        core.MustParseDate(date),
			Category:    cat,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mustCreate(core.Income, "Salary", "1000", "2024-01-15", "Job")
	mustCreate(core.Income, "Bonus, yearly", "250.50", "2024-02-01", "Job")
	mustCreate(core.Expense, "Rent", "400", "2024-01-01", "Housing")
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededLedger(t)
	c := New(src, nil, WithClock(func() time.Time { return fixedNow }))

	var buf bytes.Buffer
	if err := c.Encode(&buf, c.Export(ctx)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dst := ledger.New(memory.New(nil))
	if err := New(dst, nil).Restore(ctx, &buf); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for _, kind := range core.Kinds() {
		want, _ := src.List(ctx, kind)
		got, _ := dst.List(ctx, kind)
		if len(got) != len(want) {
			t.Fatalf("%s: got %d records, want %d", kind, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s[%d] = %+v, want %+v", kind, i, got[i], want[i])
			}
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	c := New(seededLedger(t), nil, WithClock(func() time.Time { return fixedNow }))
	var buf bytes.Buffer
	c.Encode(&buf, c.Export(context.Background()))
	out := buf.String()

	for _, want := range []string{
		`"exportDate": "2024-05-06T07:08:09.123Z"`,
		"\n  \"incomes\": [",
		`"type": "income"`,
		`"amount": "250.50"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImportFieldPresence(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		wantIncomes  int
		wantExpenses int
	}{
		{"absent expenses", `{"incomes":[{"id":"x","type":"income","description":"d","amount":5,"date":"2024-01-01","category":"c"}]}`, 1, 1},
		{"empty array replaces", `{"incomes":[],"expenses":[]}`, 0, 0},
		{"null leaves", `{"incomes":null,"expenses":[]}`, 2, 0},
		{"empty object", `{}`, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := seededLedger(t)
			if err := New(l, nil).Restore(ctx, strings.NewReader(tt.doc)); err != nil {
				t.Fatalf("restore: %v", err)
			}
			inc, _ := l.List(ctx, core.Income)
			exp, _ := l.List(ctx, core.Expense)
			if len(inc) != tt.wantIncomes || len(exp) != tt.wantExpenses {
				t.Fatalf("got %d incomes %d expenses", len(inc), len(exp))
			}
		})
	}
}

func TestRestoreKeepsRecordsWithUnrecognizedValues(t *testing.T) {
	ctx := context.Background()
	l := seededLedger(t)
	c := New(l, nil)

	doc := `{"incomes":[
		{"id":"1","type":"income","description":"Salary","amount":"1000","date":"15/01/2024","category":"Job"},
		{"id":"2","type":"income","description":"Gift","amount":"a lot","date":"2024-01-20","category":"Other"}
	]}`
	if err := c.Restore(ctx, strings.NewReader(doc)); err != nil {
		t.Fatalf("restore: %v", err)
	}

	inc, _ := l.List(ctx, core.Income)
	if len(inc) != 2 {
		t.Fatalf("got %d incomes", len(inc))
	}
	if !inc[0].Date.Unrecognized() || inc[0].Date.String() != "15/01/2024" {
		t.Fatalf("date = %q", inc[0].Date.String())
	}

	var out bytes.Buffer
	if err := c.Encode(&out, c.Export(ctx)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, want := range []string{`"date": "15/01/2024"`, `"amount": "a lot"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("export lacks %s:\n%s", want, out.String())
		}
	}
}

func TestRestoreRejectsMalformedWithoutWriting(t *testing.T) {
	docs := map[string]string{
		"not json":        `hello`,
		"empty":           ``,
		"array":           `[]`,
		"null":            `null`,
		"truncated":       `{"incomes":[{"id":"1"`,
		"trailing":        `{"incomes":[]} {}`,
		"wrong shape":     `{"incomes":{"id":"1"},"expenses":[]}`,
		"wrong id type":   `{"incomes":[],"expenses":[{"id":1,"date":"2024-01-01"}]}`,
		"bad second list": `{"incomes":[],"expenses":5}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := seededLedger(t)
			rev := l.Revision()

			err := New(l, nil).Restore(ctx, strings.NewReader(doc))
			if !errors.Is(err, core.ErrDecode) {
				t.Fatalf("err = %v, want ErrDecode", err)
			}
			if l.Revision() != rev {
				t.Fatalf("ledger was written")
			}
			if inc, _ := l.List(ctx, core.Income); len(inc) != 2 {
				t.Fatalf("incomes changed: %d", len(inc))
			}
		})
	}
}

type failingLedger struct{}

func (failingLedger) Snapshot(context.Context) ([]core.Transaction, []core.Transaction) {
	return nil, nil
}

func (failingLedger) Replace(context.Context, *[]core.Transaction, *[]core.Transaction) error {
	return core.ErrWriteFailed
}

func TestImportPropagatesWriteFailure(t *testing.T) {
	err := New(failingLedger{}, nil).Restore(context.Background(), strings.NewReader(`{"incomes":[]}`))
	if !errors.Is(err, core.ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed", err)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(fixedNow); got != "Backup_FinControl_2024-05-06.json" {
		t.Fatalf("FileName = %q", got)
	}
}
