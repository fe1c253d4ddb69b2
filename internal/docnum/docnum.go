// Package docnum formats, validates and parses human-readable document
// numbers of the shape {TYPE}-{YEAR}-{SEQ}, e.g. DEVIS-2026-001.
package docnum

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"batiflow/internal/model"
)

var numberRe = regexp.MustCompile(`^(DEVIS|FACTURE)-\d{4}-\d{3}$`)

// Format builds a document number. Sequence is zero-padded to 3 digits;
// values above 999 widen naturally rather than truncate.
func Format(t model.DocType, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", t, year, seq)
}

// Validate reports whether number is exactly {type}-YYYY-SSS.
func Validate(number string, t model.DocType) bool {
	if !numberRe.MatchString(number) {
		return false
	}
	return strings.HasPrefix(number, string(t)+"-")
}

// Parsed is the decomposition of a document number. Zero value means the
// input did not parse.
type Parsed struct {
	Type     model.DocType
	Year     int
	Sequence int
}

// Parse splits a number into its components. It fails closed: any shape
// violation (segment count, unknown type, non-numeric year or sequence)
// returns ok=false with a zero Parsed.
func Parse(number string) (Parsed, bool) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return Parsed{}, false
	}

	t := model.DocType(parts[0])
	if t != model.DocTypeQuote && t != model.DocTypeInvoice {
		return Parsed{}, false
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Parsed{}, false
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return Parsed{}, false
	}

	return Parsed{Type: t, Year: year, Sequence: seq}, true
}
