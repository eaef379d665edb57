package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stargazer/internal/models"
)

// UpsertResult reports how a batch was merged into the store
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Total returns the number of rows the batch touched
func (r UpsertResult) Total() int {
	return r.Inserted + r.Updated
}

// UpsertBatch merges repos into the store in a single transaction.
//
// New ids are inserted with both local flags false and the incoming
// starred_at. Existing rows get every remote-owned column and cached_at
// rewritten; is_favorite and is_pinned are left alone, and starred_at is only
// filled when the stored value is null. Either the whole batch commits or
// nothing does.
func (s *Store) UpsertBatch(ctx context.Context, repos []models.Repository) (UpsertResult, error) {
	var result UpsertResult
	if len(repos) == 0 {
		return result, nil
	}

	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range repos {
			incoming := repos[i]

			var existing models.Repository
			err := tx.Select("id", "starred_at").Where("id = ?", incoming.ID).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				incoming.IsFavorite = false
				incoming.IsPinned = false
				incoming.CachedAt = now
				incoming.SearchText = incoming.SearchIndex()
				if err := tx.Create(&incoming).Error; err != nil {
					return fmt.Errorf("failed to insert repository %d: %w", incoming.ID, err)
				}
				result.Inserted++
			case err != nil:
				return fmt.Errorf("failed to look up repository %d: %w", incoming.ID, err)
			default:
				updates := incoming.RemoteFields()
				updates["cached_at"] = now
				if existing.StarredAt == nil && incoming.StarredAt != nil {
					updates["starred_at"] = *incoming.StarredAt
				}
				if err := tx.Model(&models.Repository{}).Where("id = ?", incoming.ID).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update repository %d: %w", incoming.ID, err)
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	s.notifier.publish()
	return result, nil
}

// Get returns the repository with the given id
func (s *Store) Get(ctx context.Context, id int64) (*models.Repository, error) {
	var repo models.Repository
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&repo).Error; err != nil {
		return nil, notFound(err)
	}
	return &repo, nil
}

// GetByFullName returns the repository named owner/name, ignoring case
func (s *Store) GetByFullName(ctx context.Context, fullName string) (*models.Repository, error) {
	var repo models.Repository
	if err := s.db.WithContext(ctx).Where("LOWER(full_name) = LOWER(?)", fullName).Take(&repo).Error; err != nil {
		return nil, notFound(err)
	}
	return &repo, nil
}

// Count returns the number of cached repositories
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Repository{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count repositories: %w", err)
	}
	return n, nil
}

// MaxStarredAt returns the newest starring time in the store, or nil when no
// row has one.
func (s *Store) MaxStarredAt(ctx context.Context) (*int64, error) {
	var max sql.NullInt64
	row := s.db.WithContext(ctx).Model(&models.Repository{}).Select("MAX(starred_at)").Row()
	if err := row.Scan(&max); err != nil {
		return nil, fmt.Errorf("failed to read newest starred_at: %w", err)
	}
	if !max.Valid {
		return nil, nil
	}
	return &max.Int64, nil
}

// SetFavorite sets the favorite flag on a repository
func (s *Store) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	return s.setFlag(ctx, id, "is_favorite", favorite)
}

// SetPinned sets the pinned flag on a repository
func (s *Store) SetPinned(ctx context.Context, id int64, pinned bool) error {
	return s.setFlag(ctx, id, "is_pinned", pinned)
}

func (s *Store) setFlag(ctx context.Context, id int64, column string, value bool) error {
	res := s.db.WithContext(ctx).Model(&models.Repository{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notifier.publish()
	return nil
}

// DeleteRepository removes a repository and its tag links
func (s *Store) DeleteRepository(ctx context.Context, id int64) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("repository_id = ?", id).Delete(&models.RepositoryTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Repository{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete repository: %w", res.Error)
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

// PruneCachedBefore deletes repositories whose cached_at is older than cutoff,
// together with their tag links. It returns the number of repositories removed.
func (s *Store) PruneCachedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Repository{}).Select("id").Where("cached_at < ?", cutoff.UTC())
		if err := tx.Where("repository_id IN (?)", stale).Delete(&models.RepositoryTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		res := tx.Where("cached_at < ?", cutoff.UTC()).Delete(&models.Repository{})
		if res.Error != nil {
			return fmt.Errorf("failed to prune repositories: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.notifier.publish()
	}
	return affected, nil
}

// CountCachedBefore returns how many repositories PruneCachedBefore would remove
func (s *Store) CountCachedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Repository{}).Where("cached_at < ?", cutoff.UTC()).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count stale repositories: %w", err)
	}
	return n, nil
}

// DeleteAllRepositories empties the repository table and all tag links.
// Tags, presets and sync metadata are kept.
func (s *Store) DeleteAllRepositories(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RepositoryTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Repository{}).Error; err != nil {
			return fmt.Errorf("failed to delete repositories: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.publish()
	return nil
}
