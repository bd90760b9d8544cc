// Package address canonicalizes free-text postal addresses into comparable
// keys. The normalized form is the join key for customer identity, invoice
// linking and geocode caching, so two spellings of the same place must
// produce the same key.
package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultNoiseTokens are unit and floor qualifiers that do not change which
// physical building an address points at. The default set targets Spanish
// language addresses; callers with other locales pass their own set.
var defaultNoiseTokens = []string{
	"piso", "dpto", "depto", "dto", "departamento",
	"oficina", "of", "local", "pb", "timbre", "nro", "num", "numero",
}

type Normalizer struct {
	noise map[string]struct{}
}

// NewNormalizer builds a Normalizer with the given noise tokens.
// A nil slice selects the default Spanish set.
func NewNormalizer(noiseTokens []string) *Normalizer {
	if noiseTokens == nil {
		noiseTokens = defaultNoiseTokens
	}

	noise := make(map[string]struct{}, len(noiseTokens))
	for _, t := range noiseTokens {
		noise[strings.ToLower(t)] = struct{}{}
	}

	return &Normalizer{noise: noise}
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the canonical key for a raw address: lower-cased,
// accents stripped, punctuation removed, whitespace collapsed, noise tokens
// dropped. It is deterministic and returns "" for addresses with no usable
// content.
func (n *Normalizer) Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	flat, _, err := transform.String(stripAccents, lowered)
	if err != nil {
		// NFD decomposition does not fail on valid UTF-8; fall back to the
		// lower-cased input rather than dropping the record.
		flat = lowered
	}

	var b strings.Builder
	b.Grow(len(flat))

	for _, r := range flat {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]

	for i, f := range fields {
		if _, ok := n.noise[f]; ok {
			continue
		}

		// "n" is a number marker ("Mendoza N° 123") only when a number
		// follows; as a bare token elsewhere it stays.
		if f == "n" && i+1 < len(fields) && isDigits(fields[i+1]) {
			continue
		}

		out = append(out, f)
	}

	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize canonicalizes raw using the default locale rules.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}
