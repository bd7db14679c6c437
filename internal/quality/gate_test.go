package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const cleanInvoice = `INVOICE No. 2024-117
Invoice Date: 02/03/2024
Bill To: Northwind Traders
Consulting services for March, 10 hours at 120.00
Subtotal 1200.00
Total Due 1200.00`

func TestGateVerdicts(t *testing.T) {
	g := NewGate(Config{})
	tests := []struct {
		name   string
		text   string
		usable bool
		reason Reason
	}{
		{"empty", "", false, ReasonEmpty},
		{"whitespace only", "  \n\t ", false, ReasonEmpty},
		{"ten symbols", "#$%^&*()!@", false, ReasonTooShort},
		{"short", "Invoice total 12.00", false, ReasonTooShort},
		{"short without digits", strings.Repeat("invoice words ", 8), false, ReasonShortNoDigits},
		{"digits but few letters", strings.Repeat("12 34 56 78 ", 10) + "ab", false, ReasonFewLetters},
		{"symbol soup", strings.Repeat("ab1 |#~^*", 30), false, ReasonSymbolRatio},
		{"clean invoice", cleanInvoice, true, ReasonOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Check(tt.text)
			assert.Equal(t, tt.usable, v.Usable)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestGateIsIdempotent(t *testing.T) {
	g := NewGate(Config{})
	for _, text := range []string{"", "#$%^&*()!@", cleanInvoice, strings.Repeat("ab1 |#~^*", 30)} {
		assert.Equal(t, g.Check(text), g.Check(text))
	}
}

func TestLongTextWithoutDigitsIsUsable(t *testing.T) {
	text := strings.Repeat("invoice for services rendered ", 10)
	assert.True(t, NewGate(Config{}).Check(text).Usable)
}
