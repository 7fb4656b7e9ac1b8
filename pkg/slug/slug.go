// Package slug derives URL path codes from display names.
//
//	slug.Make("Lycée Émile Zola")          // "lycee-emile-zola"
//	slug.Make("Groupe Scolaire", slug.MaxLength(6)) // "groupe"
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type config struct {
	maxLength int
	separator byte
}

type Option func(*config)

// MaxLength cuts the slug to n bytes, dropping a trailing separator.
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// Separator replaces the default "-".
func Separator(sep byte) Option {
	return func(c *config) { c.separator = sep }
}

// Letters that do not decompose into a base letter plus marks.
var ligatures = map[rune]string{
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'ł': "l", 'đ': "d", 'ð': "d", 'þ': "th", 'ı': "i",
}

// Make lower-cases s, folds accented letters to ASCII and joins the
// remaining alphanumeric runs with the separator. Anything else is dropped.
// The result is empty when nothing usable is left.
func Make(s string, opts ...Option) string {
	cfg := config{separator: '-'}
	for _, opt := range opts {
		opt(&cfg)
	}

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	write := func(part string) {
		if pending && b.Len() > 0 {
			b.WriteByte(cfg.separator)
		}
		pending = false
		b.WriteString(part)
	}
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLower(r) || unicode.IsDigit(r)):
			write(string(r))
		case ligatures[r] != "":
			write(ligatures[r])
		default:
			pending = true
		}
	}

	out := b.String()
	if cfg.maxLength > 0 && len(out) > cfg.maxLength {
		out = strings.TrimRight(out[:cfg.maxLength], string(cfg.separator))
	}
	return out
}
