package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"stargazer/internal/models"
)

func orphanedLinks(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.RepositoryTag{}).
		Where("repository_id NOT IN (?)", tx.Model(&models.Repository{}).Select("id")).
		Or("tag_id NOT IN (?)", tx.Model(&models.Tag{}).Select("id"))
}

// CountOrphanedLinks returns the number of tag links whose repository or tag
// no longer exists.
func (s *Store) CountOrphanedLinks(ctx context.Context) (int64, error) {
	var n int64
	if err := orphanedLinks(s.db.WithContext(ctx)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count orphaned tag links: %w", err)
	}
	return n, nil
}

// DeleteOrphanedLinks removes tag links whose repository or tag no longer
// exists. They can only appear when rows were removed by a connection with
// foreign keys disabled.
func (s *Store) DeleteOrphanedLinks(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	res := db.Where("repository_id NOT IN (?)", db.Model(&models.Repository{}).Select("id")).
		Or("tag_id NOT IN (?)", db.Model(&models.Tag{}).Select("id")).
		Delete(&models.RepositoryTag{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete orphaned tag links: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.notifier.publish()
	}
	return res.RowsAffected, nil
}
