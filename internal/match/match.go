// =============================================================================
// Sales Import - Fuzzy Header Matcher
// =============================================================================
//
// Scores arbitrary spreadsheet headers against the target field definitions.
//
// SCORING:
//   1. Normalize both strings: lowercase, trim, remove spaces/underscores/hyphens.
//   2. Equal after normalization           -> 1.0
//   3. One contains the other as substring -> 0.85 (fixed, not distance based)
//   4. Otherwise 1 - levenshtein / max(len(a), len(b))
//
// FIELD SELECTION:
//   A header equal to a field's key or label (after normalization) wins
//   immediately with confidence 1.0. Otherwise every alias of every field is
//   scored and the single best alias decides the field. Ties go to the field
//   seen first.
//
// =============================================================================

package match

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/sales-import/internal/fields"
)

// SubstringScore is the fixed confidence given to substring matches.
const SubstringScore = 0.85

var separatorRegex = regexp.MustCompile(`[\s_-]+`)

// Match is the best field for a header.
type Match struct {
	// FieldKey is empty when no field scored above zero.
	FieldKey   string
	Confidence float64
}

// Normalize lowercases s, trims it and removes whitespace, underscores and
// hyphens.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return separatorRegex.ReplaceAllString(s, "")
}

// Similarity returns a score in [0, 1] for how alike a and b are.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == nb {
		return 1.0
	}

	// An empty string is a substring of everything; only "" matches "".
	if na == "" || nb == "" {
		return 0
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return SubstringScore
	}

	return LevenshteinNormalized(na, nb)
}

// FindBestFieldMatch returns the field whose key, label or aliases best match
// header.
func FindBestFieldMatch(header string, defs []fields.Definition) Match {
	normalized := Normalize(header)
	best := Match{}

	for _, def := range defs {
		if normalized == Normalize(def.Key) || normalized == Normalize(def.Label) {
			return Match{FieldKey: def.Key, Confidence: 1.0}
		}

		for _, alias := range def.Aliases {
			score := Similarity(header, alias)
			if score > best.Confidence {
				best = Match{FieldKey: def.Key, Confidence: score}
			}
		}
	}

	return best
}
