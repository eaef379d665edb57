package models

import (
	"regexp"
	"time"
)

// DefaultTagColor is used when a tag is created without an explicit color.
const DefaultTagColor = "#6366F1"

var tagColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidateTagColor validates that a color is a #RRGGBB hex string
func ValidateTagColor(color string) bool {
	return tagColorPattern.MatchString(color)
}

// Tag is a user-defined label that can be attached to many repositories
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"size:20;not null" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// RepositoryTag links tags to repositories (many-to-many).
// Deleting either side cascades to the link.
type RepositoryTag struct {
	RepositoryID int64 `gorm:"primaryKey;autoIncrement:false" json:"repository_id"`
	TagID        uint  `gorm:"primaryKey;autoIncrement:false;index" json:"tag_id"`

	Repository *Repository `gorm:"foreignKey:RepositoryID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Tag        *Tag        `gorm:"foreignKey:TagID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for RepositoryTag
func (RepositoryTag) TableName() string {
	return "repository_tags"
}
