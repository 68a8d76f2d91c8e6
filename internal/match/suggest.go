package match

import (
	"strings"

	"github.com/schollz/closestmatch"

	"github.com/ginjaninja78/sales-import/internal/fields"
)

// Suggester proposes candidate fields for headers the matcher left unmapped.
// Suggestions are advisory and never assigned automatically.
type Suggester struct {
	cm     *closestmatch.ClosestMatch
	owners map[string]string
}

// NewSuggester indexes the labels and aliases of defs.
func NewSuggester(defs []fields.Definition) *Suggester {
	owners := make(map[string]string)
	var words []string

	add := func(word, key string) {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			return
		}
		if _, seen := owners[word]; seen {
			return
		}
		owners[word] = key
		words = append(words, word)
	}

	for _, def := range defs {
		add(def.Label, def.Key)
		add(def.Key, def.Key)
		for _, alias := range def.Aliases {
			add(alias, def.Key)
		}
	}

	s := &Suggester{owners: owners}
	if len(words) > 0 {
		s.cm = closestmatch.New(words, []int{2, 3})
	}
	return s
}

// Suggest returns up to n distinct field keys closest to header.
func (s *Suggester) Suggest(header string, n int) []string {
	if s.cm == nil || n <= 0 {
		return nil
	}

	query := strings.ToLower(strings.TrimSpace(header))
	if query == "" {
		return nil
	}

	var keys []string
	seen := make(map[string]bool)
	for _, word := range s.cm.ClosestN(query, n*4) {
		key, ok := s.owners[word]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		if len(keys) == n {
			break
		}
	}

	return keys
}
