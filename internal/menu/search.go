package menu

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Match is a search hit with its edit distance to the query.
type Match struct {
	Item
	Distance int `json:"distance"`
}

// Search finds items whose name resembles term. Names containing term rank
// first, then the rest by edit distance (to the whole name or its closest
// word), ties broken by name. Names too far from term are dropped.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Match, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return rank(items, term, limit), nil
}

func rank(items []Item, term string, limit int) []Match {
	maxDistance := max(2, len(term)/3)

	type scored struct {
		Match
		substring bool
	}
	var hits []scored
	for _, it := range items {
		name := strings.ToLower(it.Name)
		d := distance(name, term)
		sub := strings.Contains(name, term)
		if !sub && d > maxDistance {
			continue
		}
		hits = append(hits, scored{Match: Match{Item: it, Distance: d}, substring: sub})
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		if a.substring != b.substring {
			if a.substring {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(a.Distance, b.Distance),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = h.Match
	}
	return matches
}

func distance(name, term string) int {
	best := levenshtein.ComputeDistance(name, term)
	for _, word := range strings.Fields(name) {
		best = min(best, levenshtein.ComputeDistance(word, term))
	}
	return best
}
