package guard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const Disclaimer = "\n\n⚠️ **Важливо:** Це лише попередній діагноз. Завжди консультуйтесь з лікарем для остаточного діагнозу та лікування."

var defaultBannedWords = []string{
	"fuck", "shit", "bitch", "ass", "damn", "hell",
	"пизда", "хуй", "блять", "сука", "ебать", "говно",
}

// Sanitizer cleans text before it is fingerprinted (Input) and before it
// enters a cache or the knowledge store (Output).
type Sanitizer interface {
	Input(text string) string
	Output(text string) string
}

type Guard struct {
	maxInput  int
	maxOutput int
	banned    map[string]struct{}
}

func New(maxInputRunes, maxOutputRunes int) *Guard {
	banned := make(map[string]struct{}, len(defaultBannedWords))
	for _, w := range defaultBannedWords {
		banned[w] = struct{}{}
	}
	return &Guard{
		maxInput:  maxInputRunes,
		maxOutput: maxOutputRunes,
		banned:    banned,
	}
}

// Input strips invalid UTF-8, truncates, drops banned words and collapses
// whitespace. The result may be empty.
func (g *Guard) Input(text string) string {
	text = truncateRunes(SanitizeUTF8(text), g.maxInput)

	words := strings.Fields(text)
	kept := words[:0]
	for _, word := range words {
		key := strings.ToLower(strings.TrimFunc(word, unicode.IsPunct))
		if _, bad := g.banned[key]; bad {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// Output strips invalid UTF-8, truncates and appends the disclaimer once.
// A disclaimer already present in text is moved to the end, so the body
// never exceeds the output limit. Blank text stays blank so callers can
// reject it.
func (g *Guard) Output(text string) string {
	text = strings.ReplaceAll(SanitizeUTF8(text), strings.TrimSpace(Disclaimer), "")
	text = strings.TrimSpace(truncateRunes(strings.TrimSpace(text), g.maxOutput))
	if text == "" {
		return ""
	}
	return text + Disclaimer
}

// SanitizeUTF8 removes invalid UTF-8 sequences so text can be stored in
// PostgreSQL without encoding errors.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
