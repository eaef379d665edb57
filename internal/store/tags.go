package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stargazer/internal/models"
)

// CreateTag creates a tag. An empty color falls back to DefaultTagColor.
func (s *Store) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name cannot be empty")
	}
	if color == "" {
		color = models.DefaultTagColor
	}
	if !models.ValidateTagColor(color) {
		return nil, fmt.Errorf("invalid tag color %q (expected #RRGGBB)", color)
	}

	tag := &models.Tag{Name: name, Color: strings.ToUpper(color)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Tag{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("tag %q: %w", name, ErrDuplicate)
		}
		return tx.Create(tag).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	s.notifier.publish()
	return tag, nil
}

// DeleteTag removes a tag and every link to it
func (s *Store) DeleteTag(ctx context.Context, id uint) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.RepositoryTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Tag{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete tag: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.notifier.publish()
	return nil
}

// ListTags returns all tags ordered by name
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// TagByName looks up a tag by its exact name
func (s *Store) TagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).Where("name = ?", name).Take(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// AddTag links a tag to a repository. Adding an existing link is a no-op.
func (s *Store) AddTag(ctx context.Context, repoID int64, tagID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Repository{}).Where("id = ?", repoID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("repository %d: %w", repoID, ErrNotFound)
		}
		if err := tx.Model(&models.Tag{}).Where("id = ?", tagID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("tag %d: %w", tagID, ErrNotFound)
		}
		link := models.RepositoryTag{RepositoryID: repoID, TagID: tagID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	})
	if err != nil {
		return err
	}
	s.notifier.publish()
	return nil
}

// RemoveTag unlinks a tag from a repository
func (s *Store) RemoveTag(ctx context.Context, repoID int64, tagID uint) error {
	res := s.db.WithContext(ctx).
		Where("repository_id = ? AND tag_id = ?", repoID, tagID).
		Delete(&models.RepositoryTag{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove tag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notifier.publish()
	return nil
}

// TagsFor returns the tags attached to a repository, ordered by name
func (s *Store) TagsFor(ctx context.Context, repoID int64) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Joins("JOIN repository_tags ON repository_tags.tag_id = tags.id").
		Where("repository_tags.repository_id = ?", repoID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return tags, nil
}

// TagUsage returns how many repositories carry each tag, keyed by tag id
func (s *Store) TagUsage(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		TagID uint
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.RepositoryTag{}).
		Select("tag_id, COUNT(*) AS count").
		Group("tag_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tag usage: %w", err)
	}
	usage := make(map[uint]int64, len(rows))
	for _, r := range rows {
		usage[r.TagID] = r.Count
	}
	return usage, nil
}
