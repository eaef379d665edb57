package models

import (
	"time"
)

// Config stores key-value state for the local mirror
type Config struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Config
func (Config) TableName() string {
	return "config"
}

// Common config keys
const (
	ConfigSchemaVersion  = "schema_version"
	ConfigInitializedAt  = "initialized_at"
	ConfigGitHubUser     = "github_user"
	ConfigGitHubTokenSet = "github_token_set"
)

// SchemaVersion is written to the config table by init
const SchemaVersion = "1"

// Keyring settings for the GitHub token
const (
	KeyringServiceName    = "stargazer"
	KeyringGitHubTokenKey = "github_token"
)
