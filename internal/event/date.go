package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Shape is the layout of a parsed event date.
type Shape int

const (
	SingleDay Shape = iota
	SameMonthRange
	CrossMonthRange
)

// MaxDate sorts after every real date. ToComparableDate returns it for text
// without a recognizable date.
var MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

var portugueseMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var englishMonths = map[string]string{
	"january":   "janeiro",
	"february":  "fevereiro",
	"march":     "março",
	"april":     "abril",
	"may":       "maio",
	"june":      "junho",
	"july":      "julho",
	"august":    "agosto",
	"september": "setembro",
	"october":   "outubro",
	"november":  "novembro",
	"december":  "dezembro",
}

var monthNames = [...]string{
	"", "janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// English layouts, matched at the start of the lower-cased text.
var (
	englishCrossMonth = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})\s*[-–]\s*([a-z]+)\s+(\d{1,2}),?\s*(\d{4})`)
	englishSameMonth  = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})\s*[-–]\s*(\d{1,2}),?\s*(\d{4})`)
	englishSingle     = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2}),?\s*(\d{4})`)
)

// Portuguese layouts, matched at the start of the lower-cased text.
var (
	canonicalSameMonth  = regexp.MustCompile(`^(\d{1,2})\s*(?:a|–|-)\s*(\d{1,2})\s*de\s*([a-zç]+)\s*de\s*(\d{4})`)
	canonicalCrossMonth = regexp.MustCompile(`^(\d{1,2})\s*de\s*([a-zç]+)\s*(?:a|–|-)\s*(\d{1,2})\s*de\s*([a-zç]+)\s*de\s*(\d{4})`)
	canonicalSingle     = regexp.MustCompile(`^(\d{1,2})\s*de\s*([a-zç]+)\s*de\s*(\d{4})`)
)

// Patterns searched anywhere in the text.
var (
	rangeStartPattern   = regexp.MustCompile(`(\d{1,2})\s*(?:a|–|-)\s*(\d{1,2})\s*de\s*([a-zç]+)\s*de\s*(\d{4})`)
	singleTriplePattern = regexp.MustCompile(`(\d{1,2})\s*de\s*([a-zç]+)\s*de\s*(\d{4})`)

	spanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}\s*(?:a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+(?:\s*de\s*\d{4})?`),
		regexp.MustCompile(`\b\d{1,2}\s*de\s*[a-zç]+\s*(?:a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+\s*de\s*\d{4}`),
		regexp.MustCompile(`entre\s*\d{1,2}\s*(?:e|a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+\s*de\s*\d{4}`),
	}

	// Most specific first.
	datePhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}\s*de\s*[a-zç]+\s*(?:a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+\s*de\s*\d{4}`),
		regexp.MustCompile(`entre\s*\d{1,2}\s*(?:e|a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+\s*de\s*\d{4}`),
		regexp.MustCompile(`\d{1,2}\s*(?:a|–|-)\s*\d{1,2}\s*de\s*[a-zç]+\s*de\s*\d{4}`),
		singleTriplePattern,
	}
)

// CanonicalDate is a parsed event date. For SingleDay the end fields equal
// the start fields; for SameMonthRange EndMonth equals StartMonth.
type CanonicalDate struct {
	Shape      Shape
	StartDay   int
	StartMonth time.Month
	EndDay     int
	EndMonth   time.Month
	Year       int
}

// String renders the canonical Portuguese phrasing.
func (d CanonicalDate) String() string {
	switch d.Shape {
	case SameMonthRange:
		return fmt.Sprintf("%d a %d de %s de %d", d.StartDay, d.EndDay, MonthName(d.StartMonth), d.Year)
	case CrossMonthRange:
		return fmt.Sprintf("%d de %s a %d de %s de %d",
			d.StartDay, MonthName(d.StartMonth), d.EndDay, MonthName(d.EndMonth), d.Year)
	default:
		return fmt.Sprintf("%d de %s de %d", d.StartDay, MonthName(d.StartMonth), d.Year)
	}
}

// Start returns the first day of the event. A cross-month range whose end
// month comes before its start month began in the previous year, as in
// "30 de dezembro a 2 de janeiro de 2026".
func (d CanonicalDate) Start() time.Time {
	return time.Date(d.startYear(), d.StartMonth, d.StartDay, 0, 0, 0, 0, time.UTC)
}

func (d CanonicalDate) startYear() int {
	if d.Shape == CrossMonthRange && d.EndMonth < d.StartMonth {
		return d.Year - 1
	}
	return d.Year
}

// Valid reports whether both ends are real calendar days and the range does
// not end before it starts.
func (d CanonicalDate) Valid() bool {
	start, ok := calendarDate(d.startYear(), d.StartMonth, d.StartDay)
	if !ok {
		return false
	}
	end, ok := calendarDate(d.Year, d.EndMonth, d.EndDay)
	if !ok {
		return false
	}
	return !end.Before(start)
}

// End returns the last day of the event.
func (d CanonicalDate) End() time.Time {
	return time.Date(d.Year, d.EndMonth, d.EndDay, 0, 0, 0, 0, time.UTC)
}

// MonthName returns the lower-case Portuguese name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m]
}

// TranslateMonth maps an English month name to Portuguese, ignoring case.
// Anything else is returned unchanged.
func TranslateMonth(text string) string {
	if pt, ok := englishMonths[strings.ToLower(strings.TrimSpace(text))]; ok {
		return pt
	}
	return text
}

// resolveMonth accepts Portuguese or English month names.
func resolveMonth(name string) (time.Month, bool) {
	m, ok := portugueseMonths[strings.ToLower(TranslateMonth(name))]
	return m, ok
}

// ParseEnglishDate recognizes "Month D – Month D, YYYY", "Month D–D, YYYY"
// and "Month D, YYYY", in that order. It reports false when no layout matches
// or a month name is unknown.
func ParseEnglishDate(text string) (CanonicalDate, bool) {
	s := clean(text)

	if m := englishCrossMonth.FindStringSubmatch(s); m != nil {
		start, ok1 := resolveMonth(m[1])
		end, ok2 := resolveMonth(m[3])
		if ok1 && ok2 {
			return CanonicalDate{
				Shape:      CrossMonthRange,
				StartDay:   atoi(m[2]),
				StartMonth: start,
				EndDay:     atoi(m[4]),
				EndMonth:   end,
				Year:       atoi(m[5]),
			}, true
		}
		return CanonicalDate{}, false
	}

	if m := englishSameMonth.FindStringSubmatch(s); m != nil {
		month, ok := resolveMonth(m[1])
		if !ok {
			return CanonicalDate{}, false
		}
		return CanonicalDate{
			Shape:      SameMonthRange,
			StartDay:   atoi(m[2]),
			StartMonth: month,
			EndDay:     atoi(m[3]),
			EndMonth:   month,
			Year:       atoi(m[4]),
		}, true
	}

	if m := englishSingle.FindStringSubmatch(s); m != nil {
		month, ok := resolveMonth(m[1])
		if !ok {
			return CanonicalDate{}, false
		}
		return single(atoi(m[2]), month, atoi(m[3])), true
	}

	return CanonicalDate{}, false
}

// TranslateDate renders an English date in canonical Portuguese. Text that
// ParseEnglishDate does not recognize is returned unchanged.
func TranslateDate(text string) string {
	if d, ok := ParseEnglishDate(text); ok {
		return d.String()
	}
	return text
}

// ParseCanonical parses a Portuguese date at the start of text: a same-month
// range ("10 a 12 de março de 2025", "10–12 de março de 2025"), a cross-month
// range ("30 de março a 2 de abril de 2025") or a single date.
func ParseCanonical(text string) (CanonicalDate, bool) {
	s := clean(text)

	if m := canonicalSameMonth.FindStringSubmatch(s); m != nil {
		month, ok := resolveMonth(m[3])
		if !ok {
			return CanonicalDate{}, false
		}
		return CanonicalDate{
			Shape:      SameMonthRange,
			StartDay:   atoi(m[1]),
			StartMonth: month,
			EndDay:     atoi(m[2]),
			EndMonth:   month,
			Year:       atoi(m[4]),
		}, true
	}

	if m := canonicalCrossMonth.FindStringSubmatch(s); m != nil {
		start, ok1 := resolveMonth(m[2])
		end, ok2 := resolveMonth(m[4])
		if !ok1 || !ok2 {
			return CanonicalDate{}, false
		}
		return CanonicalDate{
			Shape:      CrossMonthRange,
			StartDay:   atoi(m[1]),
			StartMonth: start,
			EndDay:     atoi(m[3]),
			EndMonth:   end,
			Year:       atoi(m[5]),
		}, true
	}

	if m := canonicalSingle.FindStringSubmatch(s); m != nil {
		month, ok := resolveMonth(m[2])
		if !ok {
			return CanonicalDate{}, false
		}
		return single(atoi(m[1]), month, atoi(m[3])), true
	}

	return CanonicalDate{}, false
}

// FormatCanonical re-renders a date string in the canonical Portuguese
// phrasing. Unrecognized text is returned unchanged.
func FormatCanonical(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if d, ok := ParseCanonical(text); ok {
		return d.String()
	}
	return text
}

// IsFutureOrCurrentYear reports whether an event dated by text should be
// kept. Text without the year is dropped. Otherwise the start of the first
// day range, or the first "D de MONTH de YYYY" triple, is compared with today.
// Text whose date cannot be determined is kept.
func IsFutureOrCurrentYear(text string, year int, today time.Time) bool {
	if !strings.Contains(text, strconv.Itoa(year)) {
		return false
	}

	s := clean(text)
	var day, month, yr string
	if m := rangeStartPattern.FindStringSubmatch(s); m != nil {
		day, month, yr = m[1], m[3], m[4]
	} else if m := singleTriplePattern.FindStringSubmatch(s); m != nil {
		day, month, yr = m[1], m[2], m[3]
	} else {
		return true
	}

	mon, ok := resolveMonth(month)
	if !ok {
		return true
	}
	date, ok := calendarDate(atoi(yr), mon, atoi(day))
	if !ok {
		return true
	}
	return !date.Before(startOfDay(today))
}

// ToComparableDate extracts the first "D de MONTH de YYYY" triple as a sort
// key. Text without one yields MaxDate.
func ToComparableDate(text string) time.Time {
	m := singleTriplePattern.FindStringSubmatch(clean(text))
	if m == nil {
		return MaxDate
	}
	mon, ok := resolveMonth(m[2])
	if !ok {
		return MaxDate
	}
	date, ok := calendarDate(atoi(m[3]), mon, atoi(m[1]))
	if !ok {
		return MaxDate
	}
	return date
}

// HasDateSpan reports whether text describes a multi-day event:
// "D a D de MONTH [de YYYY]", "D de MONTH a D de MONTH de YYYY" or
// "entre D e D de MONTH de YYYY". Bare single dates are not spans.
func HasDateSpan(text string) bool {
	if text == "" {
		return false
	}
	s := clean(text)
	for _, p := range spanPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// FindDateText returns the first Portuguese date phrase found in free text,
// preferring ranges over single dates, or "" when there is none.
func FindDateText(text string) string {
	s := clean(text)
	for _, p := range datePhrasePatterns {
		if match := p.FindString(s); match != "" {
			return match
		}
	}
	return ""
}

func single(day int, month time.Month, year int) CanonicalDate {
	return CanonicalDate{
		Shape:      SingleDay,
		StartDay:   day,
		StartMonth: month,
		EndDay:     day,
		EndMonth:   month,
		Year:       year,
	}
}

// calendarDate rejects dates that time.Date would normalize, like 31 de fevereiro.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// clean lower-cases text and turns non-breaking spaces into plain ones so
// that \s matches them.
func clean(text string) string {
	return strings.TrimSpace(strings.ToLower(strings.ReplaceAll(text, "\u00a0", " ")))
}

// atoi is only called on \d{1,4} captures.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
