// Package quality decides whether recognized text is clean enough to send to a language model.
package quality

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason explains a verdict.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonEmpty         Reason = "empty"
	ReasonTooShort      Reason = "too_short"
	ReasonShortNoDigits Reason = "short_no_digits"
	ReasonFewLetters    Reason = "few_letters"
	ReasonSymbolRatio   Reason = "symbol_ratio"
)

type Verdict struct {
	Usable bool   `json:"usable"`
	Reason Reason `json:"reason"`
}

type Config struct {
	MinChars       int     // default 80
	ShortChars     int     // text below this length must contain a digit, default 200
	MinLetters     int     // default 25
	MaxSymbolRatio float64 // default 0.25
}

// Gate combines a length/keyword heuristic and a symbol-ratio heuristic with OR.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) *Gate {
	if cfg.MinChars <= 0 {
		cfg.MinChars = 80
	}
	if cfg.ShortChars <= 0 {
		cfg.ShortChars = 200
	}
	if cfg.MinLetters <= 0 {
		cfg.MinLetters = 25
	}
	if cfg.MaxSymbolRatio <= 0 {
		cfg.MaxSymbolRatio = 0.25
	}
	return &Gate{cfg: cfg}
}

// Check is pure: identical text always yields the identical verdict.
func (g *Gate) Check(text string) Verdict {
	t := strings.TrimSpace(text)
	if t == "" {
		return noisy(ReasonEmpty)
	}
	if r := g.lengthHeuristic(t); r != ReasonOK {
		return noisy(r)
	}
	if r := g.symbolHeuristic(t); r != ReasonOK {
		return noisy(r)
	}
	return Verdict{Usable: true, Reason: ReasonOK}
}

func (g *Gate) lengthHeuristic(t string) Reason {
	n := utf8.RuneCountInString(t)
	if n < g.cfg.MinChars {
		return ReasonTooShort
	}
	if n < g.cfg.ShortChars && !strings.ContainsFunc(t, unicode.IsDigit) {
		return ReasonShortNoDigits
	}
	return ReasonOK
}

func (g *Gate) symbolHeuristic(t string) Reason {
	var n, letters, weird int
	for _, r := range t {
		n++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r), unicode.IsSpace(r):
		default:
			weird++
		}
	}
	if letters < g.cfg.MinLetters {
		return ReasonFewLetters
	}
	if float64(weird)/float64(n) > g.cfg.MaxSymbolRatio {
		return ReasonSymbolRatio
	}
	return ReasonOK
}

func noisy(r Reason) Verdict { return Verdict{Usable: false, Reason: r} }
