package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"stargazer/internal/models"
)

// CreatePreset saves a search preset. Names are unique.
func (s *Store) CreatePreset(ctx context.Context, preset *models.SearchPreset) error {
	preset.Name = strings.TrimSpace(preset.Name)
	if preset.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if preset.SortBy == "" {
		preset.SortBy = models.DefaultSort
	}
	if _, err := models.ParseSortOption(string(preset.SortBy)); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.SearchPreset{}).Where("name = ?", preset.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("preset %q: %w", preset.Name, ErrDuplicate)
		}
		return tx.Create(preset).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to save preset: %w", err)
	}
	s.notifier.publish()
	return nil
}

// DeletePreset removes a preset by id
func (s *Store) DeletePreset(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SearchPreset{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete preset: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notifier.publish()
	return nil
}

// ListPresets returns all presets, newest first
func (s *Store) ListPresets(ctx context.Context) ([]models.SearchPreset, error) {
	var presets []models.SearchPreset
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}

// PresetByName looks up a preset by its exact name
func (s *Store) PresetByName(ctx context.Context, name string) (*models.SearchPreset, error) {
	var preset models.SearchPreset
	if err := s.db.WithContext(ctx).Where("name = ?", name).Take(&preset).Error; err != nil {
		return nil, notFound(err)
	}
	return &preset, nil
}
