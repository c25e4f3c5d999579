package payment

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Bank memos arrive as free text, often Vietnamese with diacritics and the
// transaction code buried between words. Labeled forms are tried first, then
// the first bare alphanumeric run of plausible length.
var memoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`PAYMENT CODE\s*[:\-]?\s*([A-Z0-9]{6,20})\b`),
	regexp.MustCompile(`\bCODE\s*[:\-]?\s*([A-Z0-9]{6,20})\b`),
	regexp.MustCompile(`MA THANH TOAN\s*[:\-]?\s*([A-Z0-9]{6,20})\b`),
}

var bareRunPattern = regexp.MustCompile(`\b[A-Z0-9]{6,20}\b`)

// ExtractTransactionCode pulls a candidate transaction code out of a
// transfer memo. The bare-run fallback requires a mix of letters and digits;
// generated transaction codes always have both, while pure-digit runs are
// usually bank reference numbers.
func ExtractTransactionCode(memo string) (string, bool) {
	normalized := NormalizeMemo(memo)
	if normalized == "" {
		return "", false
	}

	for _, pattern := range memoPatterns {
		if match := pattern.FindStringSubmatch(normalized); match != nil {
			return match[1], true
		}
	}

	for _, candidate := range bareRunPattern.FindAllString(normalized, -1) {
		if mixesLettersAndDigits(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// NormalizeMemo uppercases the memo and strips diacritics so "Mã thanh toán"
// and "MA THANH TOAN" compare equal.
func NormalizeMemo(memo string) string {
	replaced := strings.NewReplacer("đ", "d", "Đ", "D").Replace(memo)

	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, replaced)
	if err != nil {
		stripped = replaced
	}
	return strings.ToUpper(strings.TrimSpace(stripped))
}

func mixesLettersAndDigits(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
