package models

import (
	"fmt"
	"strings"
	"time"
)

// SortOption names an ordering for repository listings
type SortOption string

// Sort options
const (
	SortStars   SortOption = "stars"   // stargazers, descending
	SortForks   SortOption = "forks"   // forks, descending
	SortUpdated SortOption = "updated" // last remote update, descending
	SortCreated SortOption = "created" // repository creation, descending
	SortName    SortOption = "name"    // name, ascending
	SortStarred SortOption = "starred" // starring time, descending, unknown last
)

// DefaultSort is used when no sort is given
const DefaultSort = SortStars

// SortOptions lists every valid sort option in display order
var SortOptions = []SortOption{SortStars, SortForks, SortUpdated, SortCreated, SortName, SortStarred}

// ParseSortOption validates s and returns the matching option.
// An empty string yields DefaultSort.
func ParseSortOption(s string) (SortOption, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort, nil
	}
	for _, opt := range SortOptions {
		if string(opt) == s {
			return opt, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q (valid: %s)", s, strings.Join(sortOptionNames(), ", "))
}

func sortOptionNames() []string {
	names := make([]string, len(SortOptions))
	for i, opt := range SortOptions {
		names[i] = string(opt)
	}
	return names
}

// SearchPreset is a saved combination of sort, filters and search text.
// Presets are immutable; editing one means deleting and saving it again.
type SearchPreset struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	SortBy               SortOption `gorm:"size:20;not null;default:stars" json:"sort_by"`
	FilterLanguage       string     `gorm:"size:100" json:"filter_language,omitempty"`
	FilterMinStars       int        `gorm:"default:0" json:"filter_min_stars"`
	FilterMaxStars       *int       `json:"filter_max_stars,omitempty"`
	FilterHasDescription bool       `json:"filter_has_description"`
	FilterHasHomepage    bool       `json:"filter_has_homepage"`
	FilterHasTopics      bool       `json:"filter_has_topics"`
	FilterFavoritesOnly  bool       `json:"filter_favorites_only"`
	FilterPinnedOnly     bool       `json:"filter_pinned_only"`
	SearchQuery          *string    `gorm:"type:text" json:"search_query,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for SearchPreset
func (SearchPreset) TableName() string {
	return "search_presets"
}

// Summary returns a compact one-line description of the preset's criteria
func (p *SearchPreset) Summary() string {
	parts := []string{"sort=" + string(p.SortBy)}
	if p.FilterLanguage != "" {
		parts = append(parts, "lang="+p.FilterLanguage)
	}
	if p.FilterMinStars > 0 {
		parts = append(parts, fmt.Sprintf("stars>=%d", p.FilterMinStars))
	}
	if p.FilterMaxStars != nil {
		parts = append(parts, fmt.Sprintf("stars<=%d", *p.FilterMaxStars))
	}
	if p.FilterHasDescription {
		parts = append(parts, "has-description")
	}
	if p.FilterHasHomepage {
		parts = append(parts, "has-homepage")
	}
	if p.FilterHasTopics {
		parts = append(parts, "has-topics")
	}
	if p.FilterFavoritesOnly {
		parts = append(parts, "favorites")
	}
	if p.FilterPinnedOnly {
		parts = append(parts, "pinned")
	}
	if p.SearchQuery != nil && *p.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("q=%q", *p.SearchQuery))
	}
	return strings.Join(parts, " ")
}
