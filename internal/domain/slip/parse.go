// Package slip turns the loosely formatted fields of an extracted payment
// slip into a typed transaction.SlipQuery.
//
// Extractors emit Thai and English text: amounts carry currency words,
// dates use Thai month abbreviations with Buddhist-era years. Every parser
// here either returns a value or a *ParseError; an unparsable field is
// never reported as absent.
package slip

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrUnparsable   = errors.New("unrecognised format")
)

// ParseError reports a field that was present but could not be read.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("slip field %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const buddhistEraOffset = 543

var (
	amountNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)
	thaiDateTime = regexp.MustCompile(`(\d{1,2})\s+([\p{Thai}.]+)\s+(\d{2,4})(?:\s+(\d{1,2}):(\d{2}))?`)
	slashDate    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})(?:\s+(\d{1,2}):(\d{2}))?`)

	isoLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		time.DateOnly,
	}

	thaiMonths = map[string]time.Month{
		"ม.ค": time.January, "ก.พ": time.February, "มี.ค": time.March,
		"เม.ย": time.April, "พ.ค": time.May, "มิ.ย": time.June,
		"ก.ค": time.July, "ส.ค": time.August, "ก.ย": time.September,
		"ต.ค": time.October, "พ.ย": time.November, "ธ.ค": time.December,
	}
)

// ParseAmount reads the first decimal number in s after removing currency
// words and thousands separators, rounded to satang.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := s
	for _, w := range []string{"บาท", "THB", "฿", ","} {
		cleaned = strings.ReplaceAll(cleaned, w, "")
	}
	m := amountNumber.FindString(cleaned)
	if m == "" {
		return decimal.Zero, &ParseError{Field: FieldAmount, Value: s, Err: ErrUnparsable}
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, &ParseError{Field: FieldAmount, Value: s, Err: err}
	}
	return d.Round(2), nil
}

// ParseDateTime reads a slip timestamp. The time of day is nil when the
// text only carries a date.
//
// Accepted forms:
//
//	2025-11-07 13:05[:00]
//	2025-11-07
//	07/11/2025 13:05
//	21 ต.ค. 68 12:16 น.
func ParseDateTime(s string) (time.Time, *transaction.TimeOfDay, error) {
	text := strings.TrimSpace(strings.ReplaceAll(s, "น.", ""))
	fail := func(err error) (time.Time, *transaction.TimeOfDay, error) {
		return time.Time{}, nil, &ParseError{Field: FieldDate, Value: s, Err: err}
	}
	if text == "" {
		return fail(ErrUnparsable)
	}

	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		if layout == time.DateOnly {
			return t, nil, nil
		}
		tod := transaction.FromTime(t)
		return transaction.DateOnly(t), &tod, nil
	}

	if m := thaiDateTime.FindStringSubmatch(text); m != nil {
		month, ok := thaiMonths[strings.TrimSuffix(m[2], ".")]
		if !ok {
			return fail(fmt.Errorf("unknown month %q", m[2]))
		}
		return assemble(m[1], month, normalizeYear(m[3], true), m[4], m[5], fail)
	}

	if m := slashDate.FindStringSubmatch(text); m != nil {
		mon, _ := strconv.Atoi(m[2])
		if mon < 1 || mon > 12 {
			return fail(fmt.Errorf("month %d out of range", mon))
		}
		return assemble(m[1], time.Month(mon), normalizeYear(m[3], false), m[4], m[5], fail)
	}

	return fail(ErrUnparsable)
}

func assemble(day string, month time.Month, y int, hour, minute string,
	fail func(error) (time.Time, *transaction.TimeOfDay, error),
) (time.Time, *transaction.TimeOfDay, error) {
	d, _ := strconv.Atoi(day)

	date := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if date.Day() != d || date.Month() != month {
		return fail(fmt.Errorf("no such day %d/%d/%d", d, month, y))
	}
	if hour == "" {
		return date, nil, nil
	}

	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	tod, err := transaction.NewTimeOfDay(h, mi, 0)
	if err != nil {
		return fail(err)
	}
	return date, &tod, nil
}

// normalizeYear converts Buddhist-era years to the Gregorian calendar.
// Two-digit years are read as 25xx next to a Thai month name and as 20xx
// otherwise.
func normalizeYear(s string, thai bool) int {
	y, _ := strconv.Atoi(s)
	if y < 100 {
		if thai {
			y += 2500
		} else {
			y += 2000
		}
	}
	if y > 2400 {
		y -= buddhistEraOffset
	}
	return y
}

// ParseTime reads a standalone time of day such as "13:05", "13:05:09"
// or "13:05 น.".
func ParseTime(s string) (transaction.TimeOfDay, error) {
	text := strings.TrimSpace(strings.ReplaceAll(s, "น.", ""))
	tod, err := transaction.ParseTimeOfDay(text)
	if err != nil {
		return 0, &ParseError{Field: FieldTime, Value: s, Err: ErrUnparsable}
	}
	return tod, nil
}

var (
	nameJunk   = regexp.MustCompile(`[^A-Za-z\x{0E01}-\x{0E59}.\-\s]`)
	multiSpace = regexp.MustCompile(`\s{2,}`)
	multiDot   = regexp.MustCompile(`\.{2,}`)

	honorifics = map[string]string{
		"น.ส.": "น.ส.", "น.ส": "น.ส.", "นางสาว": "นางสาว", "นาง": "นาง", "นาย": "นาย",
		"ด.ช.": "ด.ช.", "ด.ญ.": "ด.ญ.",
		"mr": "Mr.", "mrs": "Mrs.", "ms": "Ms.", "miss": "Miss",
	}
)

// CleanName strips everything but Thai and Latin letters, dots, hyphens
// and spaces, then normalises a leading honorific. Names shorter than two
// characters come back empty.
func CleanName(s string) string {
	out := nameJunk.ReplaceAllString(s, " ")
	out = strings.TrimSpace(multiSpace.ReplaceAllString(out, " "))
	out = multiDot.ReplaceAllString(out, ".")

	if tokens := strings.Fields(out); len(tokens) > 0 {
		first := strings.ToLower(tokens[0])
		norm, ok := honorifics[first]
		if !ok {
			norm, ok = honorifics[strings.ReplaceAll(first, ".", "")]
		}
		if ok {
			tokens[0] = norm
			out = strings.Join(tokens, " ")
		}
	}

	if utf8.RuneCountInString(out) < 2 {
		return ""
	}
	return out
}

var banks = []struct {
	code  string
	hints []string
}{
	{"KBank", []string{"กสิกร", "k+", "kbank"}},
	{"SCB", []string{"ไทยพาณิชย์", "scb"}},
	{"KTB", []string{"กรุงไทย", "ktb"}},
	{"BBL", []string{"กรุงเทพ", "bbl"}},
	{"BAY", []string{"กรุงศรี", "bay"}},
	{"GSB", []string{"ออมสิน", "gsb"}},
	{"TTB", []string{"ทหารไทย", "ttb"}},
	{"UOB", []string{"uob"}},
	{"CIMB", []string{"cimb"}},
}

// NormalizeBank maps a bank name in Thai or English to its short code.
// Unknown names are returned trimmed but otherwise unchanged.
func NormalizeBank(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return ""
	}
	for _, b := range banks {
		for _, h := range b.hints {
			if strings.Contains(t, h) {
				return b.code
			}
		}
	}
	return strings.TrimSpace(s)
}
