// Package query reads the local mirror: filtering, sorting and search over
// cached repositories, plus a live feed that re-runs the current query
// whenever the store commits.
package query

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"stargazer/internal/models"
)

// Filter narrows and orders the repositories returned by a query.
// Zero values mean "no constraint".
type Filter struct {
	Sort           models.SortOption
	Search         string
	Language       string
	MinStars       int
	MaxStars       *int
	HasDescription bool
	HasHomepage    bool
	HasTopics      bool
	FavoritesOnly  bool
	PinnedOnly     bool
	TagIDs         []uint
}

// FromPreset converts a saved preset into a filter
func FromPreset(p *models.SearchPreset) Filter {
	f := Filter{
		Sort:           p.SortBy,
		Language:       p.FilterLanguage,
		MinStars:       p.FilterMinStars,
		HasDescription: p.FilterHasDescription,
		HasHomepage:    p.FilterHasHomepage,
		HasTopics:      p.FilterHasTopics,
		FavoritesOnly:  p.FilterFavoritesOnly,
		PinnedOnly:     p.FilterPinnedOnly,
	}
	if p.FilterMaxStars != nil {
		max := *p.FilterMaxStars
		f.MaxStars = &max
	}
	if p.SearchQuery != nil {
		f.Search = *p.SearchQuery
	}
	return f
}

// Preset captures the filter as a named preset. Tag selections are not part
// of a preset.
func (f Filter) Preset(name string) *models.SearchPreset {
	p := &models.SearchPreset{
		Name:                 name,
		SortBy:               f.Sort,
		FilterLanguage:       f.Language,
		FilterMinStars:       f.MinStars,
		FilterHasDescription: f.HasDescription,
		FilterHasHomepage:    f.HasHomepage,
		FilterHasTopics:      f.HasTopics,
		FilterFavoritesOnly:  f.FavoritesOnly,
		FilterPinnedOnly:     f.PinnedOnly,
	}
	if f.MaxStars != nil {
		max := *f.MaxStars
		p.FilterMaxStars = &max
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p.SearchQuery = &q
	}
	return p
}

// Validate checks the filter for contradictory or unknown values
func (f Filter) Validate() error {
	if _, err := models.ParseSortOption(string(f.Sort)); err != nil {
		return err
	}
	if f.MinStars < 0 {
		return fmt.Errorf("min stars must not be negative")
	}
	if f.MaxStars != nil && *f.MaxStars < f.MinStars {
		return fmt.Errorf("max stars (%d) is below min stars (%d)", *f.MaxStars, f.MinStars)
	}
	return nil
}

// Query runs filters against the repositories table
type Query struct {
	db *gorm.DB
}

// New returns a Query over database
func New(database *gorm.DB) *Query {
	return &Query{db: database}
}

// List returns every repository matching f in f's order
func (q *Query) List(ctx context.Context, f Filter) ([]models.Repository, error) {
	return q.Page(ctx, f, 0, -1)
}

// Page returns at most limit matching repositories after skipping offset.
// A negative limit returns everything after offset.
func (q *Query) Page(ctx context.Context, f Filter, offset, limit int) ([]models.Repository, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	tx := apply(q.db.WithContext(ctx).Model(&models.Repository{}), f)
	tx = order(tx, f.Sort)
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if limit >= 0 {
		tx = tx.Limit(limit)
	}

	repos := []models.Repository{}
	if err := tx.Find(&repos).Error; err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	return repos, nil
}

// Count returns how many repositories match f
func (q *Query) Count(ctx context.Context, f Filter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	var n int64
	if err := apply(q.db.WithContext(ctx).Model(&models.Repository{}), f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count repositories: %w", err)
	}
	return n, nil
}

// Languages returns the distinct non-empty languages, ascending
func (q *Query) Languages(ctx context.Context) ([]string, error) {
	var langs []string
	err := q.db.WithContext(ctx).Model(&models.Repository{}).
		Where("language IS NOT NULL AND language != ''").
		Distinct("language").
		Order("language ASC").
		Pluck("language", &langs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return langs, nil
}

func apply(tx *gorm.DB, f Filter) *gorm.DB {
	if pattern, ok := likePattern(f.Search); ok {
		tx = tx.Where("search_text LIKE ? ESCAPE '\\'", pattern)
	}
	if f.Language != "" {
		tx = tx.Where("language = ?", f.Language)
	}
	if f.MinStars > 0 {
		tx = tx.Where("stargazers_count >= ?", f.MinStars)
	}
	if f.MaxStars != nil {
		tx = tx.Where("stargazers_count <= ?", *f.MaxStars)
	}
	if f.HasDescription {
		tx = tx.Where("description IS NOT NULL AND description != ''")
	}
	if f.HasHomepage {
		tx = tx.Where("homepage IS NOT NULL AND homepage != ''")
	}
	if f.HasTopics {
		tx = tx.Where("topics IS NOT NULL AND topics NOT IN ('', '[]', 'null')")
	}
	if f.FavoritesOnly {
		tx = tx.Where("is_favorite = ?", true)
	}
	if f.PinnedOnly {
		tx = tx.Where("is_pinned = ?", true)
	}
	if len(f.TagIDs) > 0 {
		tx = tx.Where("id IN (SELECT repository_id FROM repository_tags WHERE tag_id IN ?)", f.TagIDs)
	}
	return tx
}

func order(tx *gorm.DB, sort models.SortOption) *gorm.DB {
	switch sort {
	case models.SortForks:
		tx = tx.Order("forks_count DESC")
	case models.SortUpdated:
		tx = tx.Order("repo_updated_at DESC")
	case models.SortCreated:
		tx = tx.Order("repo_created_at DESC")
	case models.SortName:
		tx = tx.Order("name COLLATE NOCASE ASC")
	case models.SortStarred:
		tx = tx.Order("starred_at IS NULL").Order("starred_at DESC")
	default:
		tx = tx.Order("stargazers_count DESC")
	}
	return tx.Order("id ASC")
}

// likePattern builds a lower-cased LIKE pattern for a substring search.
// It reports false when the trimmed input is empty.
func likePattern(search string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return "", false
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%", true
}
