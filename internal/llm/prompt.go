package llm

import (
	"strings"
)

// Extraction request parameters.
const (
	ExtractMaxTokens     = 80
	ExtractContextWindow = 1024
	ExtractPromptLimit   = 1200
	AnswerMaxTokens      = 200
)

// NotFoundAnswer is returned verbatim when the context cannot answer a question.
const NotFoundAnswer = "Sorry, I did not find it in provided context."

const ExtractionSystemPrompt = "You output only valid JSON. No extra text."

const extractionInstructions = `Extract invoice fields from OCR text.
Return ONLY valid JSON with exactly these keys:
- supplier_name: the seller/vendor company issuing the invoice, not a person named in the header.
- customer_name: the buyer. Look for "Bill To", "Billed To", "Ship To", "Customer", "Client", "Attention".
  Use the name after the label, never the label itself. Prefer Bill To over Ship To.
- date_issued: the "Date Issued" / "Invoice Date" / "Date" value, YYYY-MM-DD.
- due_date: the "Due Date" / "Payment Due" value, YYYY-MM-DD.
- total_amount: number only, the GRAND TOTAL / TOTAL DUE, never the subtotal.
If a field is missing, use null.`

// BuildExtractionPrompt embeds pruned OCR text and caps the prompt at ExtractPromptLimit runes.
func BuildExtractionPrompt(prunedText string) string {
	var b strings.Builder
	b.WriteString(extractionInstructions)
	b.WriteString("\n\nOCR TEXT:\n")
	b.WriteString(prunedText)
	return truncateRunes(b.String(), ExtractPromptLimit)
}

const AnswerSystemPrompt = "Answer using only the given context."

// BuildAnswerPrompt asks a question over retrieved chunk texts.
func BuildAnswerPrompt(contexts []string, question string) string {
	var b strings.Builder
	b.WriteString("Answer ONLY using the context below.\n")
	b.WriteString("If the answer is not in the context, say exactly:\n")
	b.WriteString(NotFoundAnswer)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	b.WriteString("\n\nQUESTION:\n")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
