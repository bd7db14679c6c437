// Package grounding drops extracted values that cannot be found in the source text.
package grounding

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// badNames are labels the model tends to copy instead of the value that follows them.
var badNames = map[string]struct{}{
	"client": {}, "customer": {}, "bill to": {}, "ship to": {}, "billed to": {},
	"attention": {}, "attn": {}, "none": {}, "null": {}, "n/a": {}, "na": {},
}

// reAnyDate only proves that some date exists in the text, not the extracted one.
var reAnyDate = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b|\b\d{2} \d{2} \d{4}\b`)

var reSpaces = regexp.MustCompile(`\s+`)

// Rejection records a value that was set to null.
type Rejection struct {
	Field  string `json:"field"`
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

type Verifier struct {
	checkSupplier bool
	logger        *slog.Logger
}

type Option func(*Verifier)

// WithSupplierCheck toggles grounding of supplier_name. Supplier headers are
// often logos that OCR mangles, so callers may opt out.
func WithSupplierCheck(on bool) Option {
	return func(v *Verifier) { v.checkSupplier = on }
}

func NewVerifier(logger *slog.Logger, opts ...Option) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{checkSupplier: true, logger: logger}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify returns fields with every unverifiable value set to nil. The warning is kept.
func (v *Verifier) Verify(fields entity.ExtractedFields, text string) (entity.ExtractedFields, []Rejection) {
	if strings.TrimSpace(text) == "" {
		out := entity.ExtractedFields{Warning: fields.Warning}
		var rej []Rejection
		for _, name := range []string{entity.FieldSupplierName, entity.FieldCustomerName, entity.FieldDateIssued, entity.FieldDueDate, entity.FieldTotalAmount} {
			if val := fields.Value(name); val != nil {
				rej = append(rej, v.reject(name, val, "empty source text"))
			}
		}
		return out, rej
	}

	out := fields
	var rej []Rejection

	if v.checkSupplier && out.SupplierName != nil {
		if reason, ok := nameEvidence(text, *out.SupplierName); !ok {
			rej = append(rej, v.reject(entity.FieldSupplierName, *out.SupplierName, reason))
			out.SupplierName = nil
		}
	}
	if out.CustomerName != nil {
		if reason, ok := nameEvidence(text, *out.CustomerName); !ok {
			rej = append(rej, v.reject(entity.FieldCustomerName, *out.CustomerName, reason))
			out.CustomerName = nil
		}
	}

	hasDate := reAnyDate.MatchString(text)
	if out.DateIssued != nil && !hasDate {
		rej = append(rej, v.reject(entity.FieldDateIssued, *out.DateIssued, "no date in text"))
		out.DateIssued = nil
	}
	if out.DueDate != nil && !hasDate {
		rej = append(rej, v.reject(entity.FieldDueDate, *out.DueDate, "no date in text"))
		out.DueDate = nil
	}

	if out.TotalAmount != nil && !AmountInText(text, *out.TotalAmount) {
		rej = append(rej, v.reject(entity.FieldTotalAmount, *out.TotalAmount, "amount not in text"))
		out.TotalAmount = nil
	}
	return out, rej
}

func (v *Verifier) reject(field string, value any, reason string) Rejection {
	v.logger.Info("grounding.rejected", "field", field, "value", value, "reason", reason)
	return Rejection{Field: field, Value: value, Reason: reason}
}

func normalize(s string) string {
	return reSpaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// nameEvidence accepts a name on a direct substring, any word of four or more
// letters, or a match with all spaces removed.
func nameEvidence(text, value string) (string, bool) {
	v := normalize(value)
	if v == "" {
		return "blank name", false
	}
	if _, bad := badNames[strings.TrimRight(v, ":")]; bad {
		return "label instead of name", false
	}
	t := normalize(text)
	if strings.Contains(t, v) {
		return "", true
	}
	tokens := strings.FieldsFunc(v, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' })
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= 4 && strings.Contains(t, tok) {
			return "", true
		}
	}
	if strings.Contains(strings.ReplaceAll(t, " ", ""), strings.ReplaceAll(v, " ", "")) {
		return "", true
	}
	return "name not in text", false
}

// AmountInText reports whether amount appears in text either as its integer
// part or with two decimals. Thousands may be separated by a comma or a space.
func AmountInText(text string, amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	a := math.Abs(amount)
	intPart := strconv.FormatInt(int64(a), 10)
	fixed := fmt.Sprintf("%.2f", a)
	dot := strings.IndexByte(fixed, '.')

	patterns := []string{
		`\b` + groupThousands(intPart) + `\b`,
		`\b` + groupThousands(fixed[:dot]) + `\.` + fixed[dot+1:] + `\b`,
	}
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(text) {
			return true
		}
	}
	return false
}

func groupThousands(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(`[,\s]?`)
		}
		b.WriteRune(r)
	}
	return b.String()
}
