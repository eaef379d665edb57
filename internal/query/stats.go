package query

import (
	"context"
	"fmt"

	"stargazer/internal/models"
)

// LanguageCount is the number of cached repositories using a language
type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Stats summarizes the local mirror
type Stats struct {
	Total        int64           `json:"total"`
	Favorites    int64           `json:"favorites"`
	Pinned       int64           `json:"pinned"`
	Tagged       int64           `json:"tagged"`
	UnknownStar  int64           `json:"unknown_starred_at"`
	TotalStars   int64           `json:"total_stars"`
	TopLanguages []LanguageCount `json:"top_languages"`
}

// Stats computes summary counts. topN bounds the language breakdown; zero or
// less returns every language.
func (q *Query) Stats(ctx context.Context, topN int) (*Stats, error) {
	db := q.db.WithContext(ctx)
	s := &Stats{}

	counts := []struct {
		dest  *int64
		where string
	}{
		{&s.Total, ""},
		{&s.Favorites, "is_favorite = 1"},
		{&s.Pinned, "is_pinned = 1"},
		{&s.UnknownStar, "starred_at IS NULL"},
		{&s.Tagged, "id IN (SELECT repository_id FROM repository_tags)"},
	}
	for _, c := range counts {
		tx := db.Model(&models.Repository{})
		if c.where != "" {
			tx = tx.Where(c.where)
		}
		if err := tx.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count repositories: %w", err)
		}
	}

	if err := db.Model(&models.Repository{}).
		Select("COALESCE(SUM(stargazers_count), 0)").
		Row().Scan(&s.TotalStars); err != nil {
		return nil, fmt.Errorf("failed to sum stars: %w", err)
	}

	tx := db.Model(&models.Repository{}).
		Select("language, COUNT(*) AS count").
		Where("language IS NOT NULL AND language != ''").
		Group("language").
		Order("count DESC").
		Order("language ASC")
	if topN > 0 {
		tx = tx.Limit(topN)
	}
	s.TopLanguages = []LanguageCount{}
	if err := tx.Scan(&s.TopLanguages).Error; err != nil {
		return nil, fmt.Errorf("failed to group languages: %w", err)
	}
	return s, nil
}
