package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// Matcher is one fallback strategy. Matchers are tried in order and the first hit wins.
type Matcher interface {
	Tag() string
	Match(text string) (string, bool)
}

type regexMatcher struct {
	tag   string
	re    *regexp.Regexp
	group int
	// skip matches whose preceding text matches this pattern
	notAfter *regexp.Regexp
}

func (m regexMatcher) Tag() string { return m.tag }

func (m regexMatcher) Match(text string) (string, bool) {
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		if m.notAfter != nil && m.notAfter.MatchString(text[:loc[0]]) {
			continue
		}
		s, e := loc[2*m.group], loc[2*m.group+1]
		if s < 0 {
			continue
		}
		if v := strings.TrimSpace(text[s:e]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Hit is the result of FirstMatch.
type Hit struct {
	Tag   string
	Value string
}

// FirstMatch returns the value of the first matcher that finds one.
func FirstMatch(text string, matchers []Matcher) (Hit, bool) {
	for _, m := range matchers {
		if v, ok := m.Match(text); ok {
			return Hit{Tag: m.Tag(), Value: v}, true
		}
	}
	return Hit{}, false
}

const datePart = `[:\s]*(\d{2}[-/ ]\d{2}[-/ ]\d{4})`

var (
	IssuedDateMatchers = []Matcher{
		regexMatcher{tag: "date_issued", re: regexp.MustCompile(`(?i)Date Issued` + datePart), group: 1},
		regexMatcher{tag: "invoice_date", re: regexp.MustCompile(`(?i)Invoice Date` + datePart), group: 1},
		regexMatcher{tag: "date", re: regexp.MustCompile(`(?i)\bDate` + datePart), group: 1,
			notAfter: regexp.MustCompile(`(?i)\bdue\s*$`)},
	}

	DueDateMatchers = []Matcher{
		regexMatcher{tag: "due_date", re: regexp.MustCompile(`(?i)Due Date` + datePart), group: 1},
		regexMatcher{tag: "payment_due", re: regexp.MustCompile(`(?i)Payment Due` + datePart), group: 1},
	}

	// TotalMatchers run on text with commas removed.
	TotalMatchers = []Matcher{
		regexMatcher{tag: "amount_due_usd", re: regexp.MustCompile(`(?i)amount\s+due\s*\(usd\)\s*:?\s*\$?\s*([0-9]+(?:\.[0-9]{2})?)`), group: 1},
		regexMatcher{tag: "grand_total", re: regexp.MustCompile(`(?i)grand\s+total\s*:?\s*\$?\s*([0-9]+(?:\.[0-9]{2})?)`), group: 1},
		regexMatcher{tag: "total_due", re: regexp.MustCompile(`(?i)total\s+due\s*:?\s*\$?\s*([0-9]+(?:\.[0-9]{2})?)`), group: 1},
	}

	CustomerMatchers = []Matcher{
		regexMatcher{tag: "label_next_line", re: regexp.MustCompile(`(?i)(Bill To|Billed To|Customer|Client|Ship To)\s*[:\-]?\s*\n([^\n]{2,60})`), group: 2},
		regexMatcher{tag: "label_same_line", re: regexp.MustCompile(`(?i)(Bill To|Billed To|Customer|Client|Ship To)\s*[:\-]?[ \t]+([A-Za-z0-9&.,' -]{2,60})`), group: 2},
	}
)

var reDMY = regexp.MustCompile(`^(\d{2})[-/ ](\d{2})[-/ ](\d{4})$`)

// NormalizeDate turns DD-MM-YYYY, DD/MM/YYYY and DD MM YYYY into YYYY-MM-DD.
// Anything else, including impossible dates, is returned unchanged.
func NormalizeDate(s string) string {
	m := reDMY.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return s
	}
	return t.Format(time.DateOnly)
}

// GuessTotal returns the first labelled grand total in text. Subtotals are ignored.
func GuessTotal(text string) *float64 {
	hit, ok := FirstMatch(strings.ReplaceAll(text, ",", ""), TotalMatchers)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(hit.Value, 64)
	if err != nil {
		return nil
	}
	return &f
}

// FallbackFields runs every deterministic matcher chain over text.
func FallbackFields(text string) entity.ExtractedFields {
	var f entity.ExtractedFields
	if hit, ok := FirstMatch(text, IssuedDateMatchers); ok {
		f.DateIssued = entity.Ptr(NormalizeDate(hit.Value))
	}
	if hit, ok := FirstMatch(text, DueDateMatchers); ok {
		f.DueDate = entity.Ptr(NormalizeDate(hit.Value))
	}
	if hit, ok := FirstMatch(text, CustomerMatchers); ok {
		f.CustomerName = entity.Ptr(hit.Value)
	}
	f.TotalAmount = GuessTotal(text)
	return f
}
