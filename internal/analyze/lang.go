package analyze

import (
	"strings"
	"unicode"
)

// DetectLanguage returns a best-guess ISO 639-1 code for the text, or ""
// when no confident guess can be made. Non-Latin scripts are identified by
// their dominant Unicode range; Latin-script languages are distinguished
// by a small stop-word table. This is a heuristic, not a classifier.
func DetectLanguage(text string) string {
	var latin, han, kana, hangul, cyrillic, arabic, hebrew, greek, thai, total int

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Latin, r):
			latin++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.Is(unicode.Hebrew, r):
			hebrew++
		case unicode.Is(unicode.Greek, r):
			greek++
		case unicode.Is(unicode.Thai, r):
			thai++
		}
	}

	if total < 4 {
		return ""
	}

	// Kana is decisive for Japanese even when kanji dominates.
	if kana > 0 && kana+han >= total/4 {
		return "ja"
	}
	switch {
	case han*3 >= total:
		return "zh"
	case hangul*3 >= total:
		return "ko"
	case cyrillic*3 >= total:
		return "ru"
	case arabic*3 >= total:
		return "ar"
	case hebrew*3 >= total:
		return "he"
	case greek*3 >= total:
		return "el"
	case thai*3 >= total:
		return "th"
	}

	if latin*2 < total {
		return ""
	}
	return latinLanguage(text)
}

// stopWords distinguishes common Latin-script languages. Scoring is a
// plain hit count over whitespace-split, lowercased words.
var stopWords = map[string][]string{
	"en": {"the", "and", "is", "of", "to", "in", "that", "it", "with", "for", "was", "this"},
	"es": {"el", "la", "de", "que", "los", "una", "por", "con", "para", "las"},
	"fr": {"le", "la", "les", "des", "est", "une", "dans", "pour", "qui", "avec"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "mit", "für", "auf"},
	"it": {"il", "di", "che", "non", "per", "una", "sono", "con", "del"},
	"pt": {"de", "que", "não", "uma", "para", "com", "os", "mais", "das"},
	"nl": {"de", "het", "een", "van", "en", "niet", "met", "voor", "zijn"},
}

func latinLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 3 {
		return ""
	}

	best, bestScore := "", 0
	for code, list := range stopWords {
		score := 0
		for _, w := range words {
			trimmed := strings.Trim(w, ".,;:!?\"'()[]")
			for _, sw := range list {
				if trimmed == sw {
					score++
					break
				}
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && code < best) {
			best, bestScore = code, score
		}
	}

	if bestScore < 2 {
		return ""
	}
	return best
}
