package cmd

import (
	"testing"

	"stargazer/internal/models"
	"stargazer/internal/query"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestFilterFlagsApply(t *testing.T) {
	limit := 500
	base := query.Filter{Sort: models.SortStarred, Language: "Go", MaxStars: &limit, FavoritesOnly: true}

	t.Run("unchanged flags keep the base", func(t *testing.T) {
		f := filterFlags{language: "Rust", maxStars: -1}
		got, err := f.apply(base, changedSet())
		if err != nil {
			t.Fatalf("apply() error: %v", err)
		}
		if got.Language != "Go" || got.MaxStars == nil || *got.MaxStars != 500 || !got.FavoritesOnly {
			t.Errorf("apply() = %+v, want base unchanged", got)
		}
	})

	t.Run("changed flags override", func(t *testing.T) {
		f := filterFlags{sort: "NAME", search: "  cli ", language: "Rust", minStars: 10, maxStars: -1, favorites: false}
		got, err := f.apply(base, changedSet("sort", "search", "lang", "min-stars", "max-stars", "favorites"))
		if err != nil {
			t.Fatalf("apply() error: %v", err)
		}
		if got.Sort != models.SortName {
			t.Errorf("Sort = %q, want name", got.Sort)
		}
		if got.Search != "cli" || got.Language != "Rust" || got.MinStars != 10 {
			t.Errorf("apply() = %+v", got)
		}
		if got.MaxStars != nil {
			t.Errorf("MaxStars = %v, want nil", *got.MaxStars)
		}
		if got.FavoritesOnly {
			t.Error("FavoritesOnly should be cleared")
		}
	})

	t.Run("max stars copied", func(t *testing.T) {
		f := filterFlags{maxStars: 100}
		got, err := f.apply(query.Filter{}, changedSet("max-stars"))
		if err != nil {
			t.Fatalf("apply() error: %v", err)
		}
		if got.MaxStars == nil || *got.MaxStars != 100 {
			t.Errorf("MaxStars = %v, want 100", got.MaxStars)
		}
		f.maxStars = 7
		if *got.MaxStars != 100 {
			t.Error("MaxStars aliases the flag variable")
		}
	})

	t.Run("invalid sort", func(t *testing.T) {
		f := filterFlags{sort: "popularity"}
		if _, err := f.apply(query.Filter{}, changedSet("sort")); err == nil {
			t.Error("expected error for unknown sort")
		}
	})

	t.Run("contradictory stars", func(t *testing.T) {
		f := filterFlags{minStars: 100, maxStars: 10}
		if _, err := f.apply(query.Filter{}, changedSet("min-stars", "max-stars")); err == nil {
			t.Error("expected error when max-stars < min-stars")
		}
	})
}
