package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stargazer/internal/models"
	"stargazer/internal/query"
	"stargazer/internal/store"
)

// filterFlags holds the filter flags shared by list, search, watch and
// preset save
type filterFlags struct {
	preset         string
	sort           string
	search         string
	language       string
	minStars       int
	maxStars       int
	hasDescription bool
	hasHomepage    bool
	hasTopics      bool
	favorites      bool
	pinned         bool
	tags           []string
}

func (f *filterFlags) register(cmd *cobra.Command, withSearch bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.preset, "preset", "", "Start from a saved preset (other flags override it)")
	fs.StringVarP(&f.sort, "sort", "s", "", "Sort by: stars, forks, updated, created, name, starred")
	if withSearch {
		fs.StringVarP(&f.search, "search", "q", "", "Match name, owner, description or topics")
	}
	fs.StringVarP(&f.language, "lang", "l", "", "Only repositories in this language")
	fs.IntVar(&f.minStars, "min-stars", 0, "Minimum stargazers")
	fs.IntVar(&f.maxStars, "max-stars", -1, "Maximum stargazers")
	fs.BoolVar(&f.hasDescription, "has-description", false, "Only repositories with a description")
	fs.BoolVar(&f.hasHomepage, "has-homepage", false, "Only repositories with a homepage")
	fs.BoolVar(&f.hasTopics, "has-topics", false, "Only repositories with topics")
	fs.BoolVar(&f.favorites, "favorites", false, "Only favorites")
	fs.BoolVar(&f.pinned, "pinned", false, "Only pinned repositories")
	fs.StringArrayVarP(&f.tags, "tag", "t", nil, "Only repositories with this tag (repeatable, any match)")
}

// apply layers the flags that were set on top of base
func (f *filterFlags) apply(base query.Filter, changed func(string) bool) (query.Filter, error) {
	out := base
	if changed("sort") {
		opt, err := models.ParseSortOption(f.sort)
		if err != nil {
			return out, err
		}
		out.Sort = opt
	}
	if changed("search") {
		out.Search = strings.TrimSpace(f.search)
	}
	if changed("lang") {
		out.Language = strings.TrimSpace(f.language)
	}
	if changed("min-stars") {
		out.MinStars = f.minStars
	}
	if changed("max-stars") {
		if f.maxStars < 0 {
			out.MaxStars = nil
		} else {
			v := f.maxStars
			out.MaxStars = &v
		}
	}
	if changed("has-description") {
		out.HasDescription = f.hasDescription
	}
	if changed("has-homepage") {
		out.HasHomepage = f.hasHomepage
	}
	if changed("has-topics") {
		out.HasTopics = f.hasTopics
	}
	if changed("favorites") {
		out.FavoritesOnly = f.favorites
	}
	if changed("pinned") {
		out.PinnedOnly = f.pinned
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// build resolves the preset and tag names and returns the final filter
func (f *filterFlags) build(ctx context.Context, cmd *cobra.Command, st *store.Store) (query.Filter, error) {
	base := query.Filter{Sort: models.DefaultSort}
	if f.preset != "" {
		p, err := st.PresetByName(ctx, f.preset)
		if err != nil {
			return base, fmt.Errorf("preset %q: %w", f.preset, err)
		}
		base = query.FromPreset(p)
	}

	filter, err := f.apply(base, cmd.Flags().Changed)
	if err != nil {
		return filter, err
	}

	for _, ref := range f.tags {
		tag, err := resolveTag(ctx, st, ref)
		if err != nil {
			return filter, err
		}
		filter.TagIDs = append(filter.TagIDs, tag.ID)
	}
	return filter, nil
}
