package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stargazer/internal/models"
)

// Metadata returns the sync record for dataType, or nil if none was written yet.
func (s *Store) Metadata(ctx context.Context, dataType string) (*models.SyncMetadata, error) {
	var meta models.SyncMetadata
	err := s.db.WithContext(ctx).Where("data_type = ?", dataType).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	return &meta, nil
}

// SaveMetadata writes the record for meta.DataType, replacing any previous one
func (s *Store) SaveMetadata(ctx context.Context, meta *models.SyncMetadata) error {
	if meta.DataType == "" {
		return fmt.Errorf("sync metadata requires a data type")
	}
	if err := s.db.WithContext(ctx).Save(meta).Error; err != nil {
		return fmt.Errorf("failed to write sync metadata: %w", err)
	}
	s.notifier.publish()
	return nil
}

// ResetMetadata deletes the record for dataType so the next refresh starts
// from scratch.
func (s *Store) ResetMetadata(ctx context.Context, dataType string) error {
	if err := s.db.WithContext(ctx).Where("data_type = ?", dataType).Delete(&models.SyncMetadata{}).Error; err != nil {
		return fmt.Errorf("failed to reset sync metadata: %w", err)
	}
	s.notifier.publish()
	return nil
}
