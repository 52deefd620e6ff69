package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fincontrol/internal/core"
)

// monthNames holds the abbreviated month names of one language and the
// order its medium dates use (day, month, year verbs).
type monthNames struct {
	pattern string
	short   [12]string
}

// dateLanguages lists the languages with localized medium dates. The first
// entry is the fallback.
var dateLanguages = []struct {
	tag   language.Tag
	names monthNames
}{
	{language.English, monthNames{"%d %s %d", [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}}},
	{language.Spanish, monthNames{"%d %s %d", [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}}},
	{language.Portuguese, monthNames{"%d %s %d", [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}}},
	{language.Italian, monthNames{"%d %s %d", [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"}}},
	{language.French, monthNames{"%d %s %d", [12]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}}},
	{language.German, monthNames{"%d. %s %d", [12]string{"Jan.", "Feb.", "März", "Apr.", "Mai", "Juni", "Juli", "Aug.", "Sept.", "Okt.", "Nov.", "Dez."}}},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateLanguages))
	for i, l := range dateLanguages {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// Formatter renders amounts and dates for people rather than machines.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	months  monthNames
}

// NewFormatter builds a formatter for a BCP 47 locale such as "es-PE".
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	_, i, _ := dateMatcher.Match(tag)
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		months:  dateLanguages[i].names,
	}, nil
}

// Locale returns the tag the formatter was built with.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Currency renders d with exactly two fraction digits and the locale's
// grouping and decimal separators.
func (f *Formatter) Currency(d decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Date renders a medium-form date in the formatter's language, e.g.
// "15 ene 2024" for es-PE. A stored value that is not a date renders as
// its original text; the zero date renders empty.
func (f *Formatter) Date(d core.Date) string {
	if d.IsZero() {
		return d.String()
	}
	return fmt.Sprintf(f.months.pattern, d.Day(), f.months.short[d.Month()-1], d.Year())
}

// Fixed renders d with two fraction digits and no grouping, the form used
// in machine-readable exports.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FileName is the download name of a report generated at t.
func FileName(prefix, ext string, t time.Time) string {
	return prefix + "_" + t.Format(core.DateLayout) + "." + ext
}
