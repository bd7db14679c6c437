package extract

import "strings"

const (
	PruneMaxLines = 40
	PruneMinKept  = 10
)

var pruneKeywords = []string{
	"invoice", "bill to", "bill for", "billed to", "ship to",
	"total", "amount", "subtotal", "tax",
	"date", "invoice date", "vendor", "supplier",
}

// Prune keeps the non-blank lines that mention an invoice keyword, at most PruneMaxLines.
// When fewer than PruneMinKept lines survive it returns the first PruneMaxLines lines instead.
func Prune(text string) string {
	var lines, keep []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
		lower := strings.ToLower(l)
		for _, k := range pruneKeywords {
			if strings.Contains(lower, k) {
				keep = append(keep, l)
				break
			}
		}
	}
	if len(keep) < PruneMinKept {
		return strings.Join(lines[:min(len(lines), PruneMaxLines)], "\n")
	}
	return strings.Join(keep[:min(len(keep), PruneMaxLines)], "\n")
}
