package models

import (
	"strings"
	"time"
)

// Repository is a starred GitHub repository mirrored into the local cache.
//
// Remote-owned columns are rewritten by every sync that observes the
// repository. IsFavorite and IsPinned belong to the user and are only changed
// by explicit toggles. StarredAt is immutable once recorded.
type Repository struct {
	ID              int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string      `gorm:"size:255;not null;index" json:"name"`
	FullName        string      `gorm:"size:512;not null;index" json:"full_name"`
	OwnerLogin      string      `gorm:"size:255;index" json:"owner_login"`
	OwnerAvatarURL  string      `gorm:"size:500" json:"owner_avatar_url,omitempty"`
	HTMLURL         string      `gorm:"size:500" json:"html_url"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	Homepage        string      `gorm:"size:500" json:"homepage,omitempty"`
	Language        string      `gorm:"size:100;index" json:"language,omitempty"`
	LicenseName     string      `gorm:"size:255" json:"license_name,omitempty"`
	Topics          StringSlice `gorm:"type:text" json:"topics,omitempty"`
	DefaultBranch   string      `gorm:"size:255" json:"default_branch"`
	Visibility      string      `gorm:"size:20" json:"visibility"`
	Size            int         `json:"size"`
	StargazersCount int         `gorm:"index" json:"stargazers_count"`
	WatchersCount   int         `json:"watchers_count"`
	ForksCount      int         `gorm:"index" json:"forks_count"`
	OpenIssuesCount int         `json:"open_issues_count"`
	Fork            bool        `json:"fork"`
	RepoCreatedAt   time.Time   `gorm:"index" json:"repo_created_at"`
	RepoUpdatedAt   time.Time   `gorm:"index" json:"repo_updated_at"`
	RepoPushedAt    *time.Time  `json:"repo_pushed_at,omitempty"`
	CachedAt        time.Time   `gorm:"index" json:"cached_at"`
	StarredAt       *int64      `gorm:"index" json:"starred_at,omitempty"` // epoch millis
	IsFavorite      bool        `gorm:"default:false;index" json:"is_favorite"`
	IsPinned        bool        `gorm:"default:false;index" json:"is_pinned"`
	SearchText      string      `gorm:"type:text" json:"-"`
}

// TableName specifies the table name for Repository
func (Repository) TableName() string {
	return "repositories"
}

// RemoteColumns lists the columns owned by the remote source. A sync may
// overwrite any of these; nothing else.
var RemoteColumns = []string{
	"name", "full_name", "owner_login", "owner_avatar_url", "html_url",
	"description", "homepage", "language", "license_name", "topics",
	"default_branch", "visibility", "size", "stargazers_count",
	"watchers_count", "forks_count", "open_issues_count", "fork",
	"repo_created_at", "repo_updated_at", "repo_pushed_at", "search_text",
}

// RemoteFields returns the remote-owned column values keyed by column name.
func (r *Repository) RemoteFields() map[string]interface{} {
	return map[string]interface{}{
		"name":              r.Name,
		"full_name":         r.FullName,
		"owner_login":       r.OwnerLogin,
		"owner_avatar_url":  r.OwnerAvatarURL,
		"html_url":          r.HTMLURL,
		"description":       r.Description,
		"homepage":          r.Homepage,
		"language":          r.Language,
		"license_name":      r.LicenseName,
		"topics":            r.Topics,
		"default_branch":    r.DefaultBranch,
		"visibility":        r.Visibility,
		"size":              r.Size,
		"stargazers_count":  r.StargazersCount,
		"watchers_count":    r.WatchersCount,
		"forks_count":       r.ForksCount,
		"open_issues_count": r.OpenIssuesCount,
		"fork":              r.Fork,
		"repo_created_at":   r.RepoCreatedAt,
		"repo_updated_at":   r.RepoUpdatedAt,
		"repo_pushed_at":    r.RepoPushedAt,
		"search_text":       r.SearchIndex(),
	}
}

// StarredTime returns when the user starred the repository, if known.
func (r *Repository) StarredTime() (time.Time, bool) {
	if r.StarredAt == nil {
		return time.Time{}, false
	}
	return FromMillis(*r.StarredAt), true
}

// StarredAfter reports whether the repository was starred strictly after mark.
// Repositories without a starring time are never "after" anything.
func (r *Repository) StarredAfter(mark int64) bool {
	return r.StarredAt != nil && *r.StarredAt > mark
}

// searchSeparator keeps a search from matching across two fields.
const searchSeparator = "\x1f"

// SearchIndex returns the lower-cased text that searches run against: name,
// description, full name, owner, language and every topic. SQLite's LOWER()
// only folds ASCII, so the index is built here with Unicode case folding and
// stored in search_text.
func (r *Repository) SearchIndex() string {
	parts := make([]string, 0, 5+len(r.Topics))
	parts = append(parts, r.Name, r.Description, r.FullName, r.OwnerLogin, r.Language)
	parts = append(parts, r.Topics...)
	return strings.ToLower(strings.Join(parts, searchSeparator))
}

// FlagString returns a short marker for the local-only flags, e.g. "*^".
func (r *Repository) FlagString() string {
	flags := ""
	if r.IsFavorite {
		flags += "*"
	}
	if r.IsPinned {
		flags += "^"
	}
	return flags
}
