package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Scoring weights for candidate selection.
const (
	KeywordWeight = 10.0
	DateWeight    = 5.0
	LengthCap     = 1500
)

var scoreKeywords = []string{
	"invoice", "total", "due date", "amount due", "bill to",
	"date", "subtotal", "tax", "balance",
}

var reDateLike = regexp.MustCompile(`\b\d{1,2}[/.\- ]\d{1,2}[/.\- ]\d{2,4}\b|\b\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}\b`)

// Score rates how much a recognized text looks like an invoice.
func Score(text string) float64 {
	lower := strings.ToLower(text)
	var s float64
	for _, kw := range scoreKeywords {
		if strings.Contains(lower, kw) {
			s += KeywordWeight
		}
	}
	s += DateWeight * float64(len(reDateLike.FindAllStringIndex(text, -1)))

	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n > LengthCap {
		n = LengthCap
	}
	return s + float64(n)/100
}

// SelectBest returns the index of the highest scoring candidate; ties go to the earlier one.
func SelectBest(cands []Candidate) int {
	best := -1
	for i, c := range cands {
		if best < 0 || c.Score > cands[best].Score {
			best = i
		}
	}
	return best
}
