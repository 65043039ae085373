// Package mrz parses the machine readable zone of travel documents laid out
// per ICAO 9303: TD1 identity cards (3 lines of 30), TD2 identity cards
// (2 lines of 36) and TD3 passports (2 lines of 44).
package mrz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrFormat is returned when the lines do not form a supported layout.
	ErrFormat = errors.New("mrz: unsupported layout")
	// ErrCheckDigit is returned when a check digit does not match its field.
	ErrCheckDigit = errors.New("mrz: check digit mismatch")
)

// Code types reported in Data.CodeType.
const (
	CodeTD1 = "MRTD_TD1_ID"
	CodeTD2 = "MRTD_TD2_ID"
	CodeTD3 = "MRTD_TD3_PASSPORT"
)

// Data is one parsed zone. Dates are YYYY-MM-DD.
type Data struct {
	CodeType            string
	DocumentType        string // "ID" or "Passport"
	DocumentCode        string
	DocumentNumber      string
	IssuingState        string
	Nationality         string
	PrimaryIdentifier   string
	SecondaryIdentifier string
	Sex                 string
	DateOfBirth         string
	DateOfExpiry        string
	Age                 int
	OptionalData        string
	Text                string
}

// Name returns the secondary then primary identifier, skipping empty parts.
func (d *Data) Name() string {
	return strings.TrimSpace(d.SecondaryIdentifier + " " + d.PrimaryIdentifier)
}

// Attrs flattens d into string attributes keyed by field name.
func (d *Data) Attrs() map[string]string {
	return map[string]string{
		"codeType":            d.CodeType,
		"documentType":        d.DocumentType,
		"documentCode":        d.DocumentCode,
		"documentNumber":      d.DocumentNumber,
		"issuingState":        d.IssuingState,
		"nationality":         d.Nationality,
		"primaryIdentifier":   d.PrimaryIdentifier,
		"secondaryIdentifier": d.SecondaryIdentifier,
		"name":                d.Name(),
		"sex":                 d.Sex,
		"dateOfBirth":         d.DateOfBirth,
		"dateOfExpiry":        d.DateOfExpiry,
		"age":                 strconv.Itoa(d.Age),
		"optionalData":        d.OptionalData,
	}
}

// Parse parses lines as of the current time, which decides the century of
// the birth year and the holder's age.
func Parse(lines []string) (*Data, error) {
	return ParseAt(lines, time.Now())
}

// ParseAt parses lines as of now. Surrounding whitespace is ignored and
// lowercase letters are folded to uppercase.
func ParseAt(lines []string, now time.Time) (*Data, error) {
	clean := make([]string, len(lines))
	for i, l := range lines {
		clean[i] = strings.ToUpper(strings.TrimSpace(l))
		for _, c := range clean[i] {
			if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && c != '<' {
				return nil, fmt.Errorf("%w: line %d has character %q", ErrFormat, i+1, c)
			}
		}
	}
	switch {
	case len(clean) == 3 && sameLen(clean, 30):
		return parseTD1(clean, now)
	case len(clean) == 2 && sameLen(clean, 36):
		return parseTD2(clean, now)
	case len(clean) == 2 && sameLen(clean, 44):
		return parseTD3(clean, now)
	}
	return nil, fmt.Errorf("%w: %d lines", ErrFormat, len(clean))
}

func sameLen(lines []string, n int) bool {
	for _, l := range lines {
		if len(l) != n {
			return false
		}
	}
	return true
}

func parseTD1(l []string, now time.Time) (*Data, error) {
	if !isIDCode(l[0][0]) {
		return nil, fmt.Errorf("%w: TD1 document code %q", ErrFormat, l[0][:2])
	}
	d := &Data{
		CodeType:       CodeTD1,
		DocumentType:   "ID",
		DocumentCode:   field(l[0][0:2]),
		IssuingState:   field(l[0][2:5]),
		DocumentNumber: field(l[0][5:14]),
		OptionalData:   field(l[0][15:30] + l[1][18:29]),
		Sex:            sex(l[1][7]),
		Nationality:    field(l[1][15:18]),
		Text:           strings.Join(l, "\n"),
	}
	d.PrimaryIdentifier, d.SecondaryIdentifier = names(l[2])
	checks := []check{
		{"document number", l[0][5:14], l[0][14]},
		{"date of birth", l[1][0:6], l[1][6]},
		{"date of expiry", l[1][8:14], l[1][14]},
		{"composite", l[0][5:30] + l[1][0:7] + l[1][8:15] + l[1][18:29], l[1][29]},
	}
	return finish(d, checks, l[1][0:6], l[1][8:14], now)
}

func parseTD2(l []string, now time.Time) (*Data, error) {
	if !isIDCode(l[0][0]) {
		return nil, fmt.Errorf("%w: TD2 document code %q", ErrFormat, l[0][:2])
	}
	d := &Data{
		CodeType:       CodeTD2,
		DocumentType:   "ID",
		DocumentCode:   field(l[0][0:2]),
		IssuingState:   field(l[0][2:5]),
		DocumentNumber: field(l[1][0:9]),
		Nationality:    field(l[1][10:13]),
		Sex:            sex(l[1][20]),
		OptionalData:   field(l[1][28:35]),
		Text:           strings.Join(l, "\n"),
	}
	d.PrimaryIdentifier, d.SecondaryIdentifier = names(l[0][5:])
	checks := []check{
		{"document number", l[1][0:9], l[1][9]},
		{"date of birth", l[1][13:19], l[1][19]},
		{"date of expiry", l[1][21:27], l[1][27]},
		{"composite", l[1][0:10] + l[1][13:20] + l[1][21:35], l[1][35]},
	}
	return finish(d, checks, l[1][13:19], l[1][21:27], now)
}

func parseTD3(l []string, now time.Time) (*Data, error) {
	if l[0][0] != 'P' {
		return nil, fmt.Errorf("%w: TD3 document code %q", ErrFormat, l[0][:2])
	}
	d := &Data{
		CodeType:       CodeTD3,
		DocumentType:   "Passport",
		DocumentCode:   field(l[0][0:2]),
		IssuingState:   field(l[0][2:5]),
		DocumentNumber: field(l[1][0:9]),
		Nationality:    field(l[1][10:13]),
		Sex:            sex(l[1][20]),
		OptionalData:   field(l[1][28:42]),
		Text:           strings.Join(l, "\n"),
	}
	d.PrimaryIdentifier, d.SecondaryIdentifier = names(l[0][5:])
	checks := []check{
		{"document number", l[1][0:9], l[1][9]},
		{"date of birth", l[1][13:19], l[1][19]},
		{"date of expiry", l[1][21:27], l[1][27]},
		{"optional data", l[1][28:42], l[1][42]},
		{"composite", l[1][0:10] + l[1][13:20] + l[1][21:43], l[1][43]},
	}
	return finish(d, checks, l[1][13:19], l[1][21:27], now)
}

type check struct {
	name  string
	value string
	digit byte
}

func finish(d *Data, checks []check, birth, expiry string, now time.Time) (*Data, error) {
	for _, c := range checks {
		want := c.digit
		// An unused optional field may carry a filler instead of a digit.
		if want == '<' && strings.Trim(c.value, "<") == "" {
			continue
		}
		if CheckDigit(c.value) != want {
			return nil, fmt.Errorf("%w: %s", ErrCheckDigit, c.name)
		}
	}
	if d.DocumentNumber == "" {
		return nil, fmt.Errorf("%w: empty document number", ErrFormat)
	}

	b, err := date(birth, birthCentury(birth, now))
	if err != nil {
		return nil, fmt.Errorf("date of birth: %w", err)
	}
	e, err := date(expiry, 2000)
	if err != nil {
		return nil, fmt.Errorf("date of expiry: %w", err)
	}
	d.DateOfBirth, d.DateOfExpiry = b.Format(time.DateOnly), e.Format(time.DateOnly)
	d.Age = age(b, now)
	return d, nil
}

// CheckDigit computes the ICAO 9303 check digit of s: character values
// weighted 7, 3, 1 repeating, summed modulo 10. Digits count as themselves,
// letters A-Z as 10-35 and the filler as zero.
func CheckDigit(s string) byte {
	weights := [3]int{7, 3, 1}
	var sum int
	for i := 0; i < len(s); i++ {
		sum += value(s[i]) * weights[i%3]
	}
	return byte('0' + sum%10)
}

func value(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 0
}

func isIDCode(c byte) bool { return c == 'I' || c == 'A' || c == 'C' }

// field strips the filler from a fixed-width field.
func field(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimRight(s, "<"), "<", " "))
}

// names splits the name field at the first double filler.
func names(s string) (primary, secondary string) {
	p, sec, _ := strings.Cut(s, "<<")
	return field(p), field(sec)
}

func sex(c byte) string {
	switch c {
	case 'M', 'F':
		return string(c)
	}
	return "X"
}

// birthCentury places two-digit birth years after the current year in the
// previous century.
func birthCentury(yymmdd string, now time.Time) int {
	yy, _ := strconv.Atoi(yymmdd[:2])
	if yy > now.Year()%100 {
		return 1900
	}
	return 2000
}

func date(yymmdd string, century int) (time.Time, error) {
	n, err := strconv.Atoi(yymmdd)
	if err != nil || len(yymmdd) != 6 {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrFormat, yymmdd)
	}
	y, m, d := century+n/10000, time.Month(n/100%100), n%100
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrFormat, yymmdd)
	}
	return t, nil
}

func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return max(years, 0)
}
