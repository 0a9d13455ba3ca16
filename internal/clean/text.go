// Package clean normalizes scraped article text and reshapes raw
// records into the transformed layout downstream enrichment consumes.
package clean

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Zero-width and formatting code points that leak out of web copy and
// embed themselves inside words (the classic "PakisSHYtan" artifact is
// U+00AD rendered literally).
var invisibleRunes = map[rune]struct{}{
	'\u00AD': {}, // soft hyphen
	'\u200B': {}, // zero width space
	'\u200C': {}, // zero width non-joiner
	'\u200D': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\uFEFF': {}, // zero width no-break space (BOM)
	'\u2028': {}, // line separator
	'\u2029': {}, // paragraph separator
	'\u034F': {}, // combining grapheme joiner
	'\u180E': {}, // mongolian vowel separator
	'\u200E': {}, // left-to-right mark
	'\u200F': {}, // right-to-left mark
	'\u202A': {}, '\u202B': {}, '\u202C': {}, '\u202D': {}, '\u202E': {},
	'\u2066': {}, '\u2067': {}, '\u2068': {}, '\u2069': {},
	'\u2061': {}, '\u2062': {}, '\u2063': {}, '\u2064': {},
}

var (
	reLiteralShy    = regexp.MustCompile(`(?i)(\w)shy(\w)`)
	reIntrawordDash = regexp.MustCompile(`(\w)[\x{00AD}\x{2010}\x{2011}](\w)`)
	reGoogleAds     = regexp.MustCompile(`\(adsbygoogle=window\.adsbygoogle\|\|\[\]\)\.push\(\{\}\);`)
	reNewlinesTabs  = regexp.MustCompile(`[\n\t]+`)
	reWhitespace    = regexp.MustCompile(`\s+`)
)

var shyEntities = strings.NewReplacer("&shy;", "", "&Shy;", "", "&SHY;", "", "&#173;", "")

// smart punctuation folded to plain ASCII before the NFKD strip.
var smartPunct = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`,
	"\u2026", "...",
	"\u2013", "-", "\u2014", "-", "\u2212", "-",
	"\u00b7", "-", "\u2022", "-",
	"\u00ab", `"`, "\u00bb", `"`,
	"\u00a0", " ",
	"\u2010", "-", "\u2011", "-",
)

// NormalizeInvisible drops zero-width formatting characters, folds
// NBSP to a regular space, and applies NFKC so compatibility forms
// compare equal.
func NormalizeInvisible(text string) string {
	text = strings.Map(func(r rune) rune {
		if _, drop := invisibleRunes[r]; drop {
			return -1
		}
		if r == '\u00A0' {
			return ' '
		}
		return r
	}, text)
	return norm.NFKC.String(text)
}

// CleanText scrubs one scraped string: decodes stray backslash escape
// sequences, strips soft-hyphen entities and their literal "SHY" leak,
// removes invisibles, un-hyphenates broken words, drops the adsbygoogle
// snippet, and collapses all whitespace to single spaces.
func CleanText(text string) string {
	text = decodeEscapes(text)
	text = shyEntities.Replace(text)
	text = replaceStable(reLiteralShy, text, "$1$2")
	text = NormalizeInvisible(text)
	text = replaceStable(reIntrawordDash, text, "$1$2")
	text = reGoogleAds.ReplaceAllString(text, "")
	text = reNewlinesTabs.ReplaceAllString(text, " ")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// ToASCII folds text to an ASCII-safe rendition: smart punctuation is
// mapped to plain equivalents, everything else non-ASCII is decomposed
// via NFKD and dropped.
func ToASCII(text string) string {
	text = NormalizeInvisible(text)
	text = smartPunct.Replace(text)
	text = norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(reWhitespace.ReplaceAllString(b.String(), " "))
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime estimates minutes to read at 200 words per minute,
// rounded up. Zero words reads in zero minutes.
func ReadingTime(wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	return int(math.Ceil(float64(wordCount) / 200.0))
}

// replaceStable applies the replacement until the text stops changing.
// The word-boundary patterns consume their neighbor characters, so a
// single pass can miss adjacent matches.
func replaceStable(re *regexp.Regexp, text, repl string) string {
	for {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			return next
		}
		text = next
	}
}

// decodeEscapes resolves literal backslash escape sequences that
// sometimes survive double JSON encoding, e.g. a backslash-escaped
// quote or a uXXXX code point. Unknown sequences are left alone.
func decodeEscapes(text string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' || i+1 >= len(text) {
			b.WriteByte(c)
			continue
		}
		switch text[i+1] {
		case 'n', 't', 'r':
			b.WriteByte(' ')
			i++
		case '"', '\'', '\\', '/':
			b.WriteByte(text[i+1])
			i++
		case 'u':
			if i+5 < len(text) {
				if v, err := strconv.ParseUint(text[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += 5
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
