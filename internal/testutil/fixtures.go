package testutil

import (
	"fmt"
	"time"

	"stargazer/internal/models"
)

// BaseTime is the reference instant fixtures are built around.
var BaseTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// Repo builds a repository with deterministic remote fields.
func Repo(id int64) models.Repository {
	name := fmt.Sprintf("repo-%d", id)
	return models.Repository{
		ID:              id,
		Name:            name,
		FullName:        "owner/" + name,
		OwnerLogin:      "owner",
		HTMLURL:         "https://github.com/owner/" + name,
		DefaultBranch:   "main",
		Visibility:      "public",
		StargazersCount: int(id),
		Topics:          models.StringSlice{},
		RepoCreatedAt:   BaseTime.Add(-time.Duration(id) * time.Hour),
		RepoUpdatedAt:   BaseTime,
	}
}

// StarredRepo builds a repository starred at BaseTime plus offset.
func StarredRepo(id int64, offset time.Duration) models.Repository {
	r := Repo(id)
	ms := models.Millis(BaseTime.Add(offset))
	r.StarredAt = &ms
	return r
}

// StarredPage builds count repositories with ids starting at firstID and
// starring times descending by one minute from newest.
func StarredPage(firstID int64, count int, newest time.Duration) []models.Repository {
	page := make([]models.Repository, 0, count)
	for i := 0; i < count; i++ {
		page = append(page, StarredRepo(firstID+int64(i), newest-time.Duration(i)*time.Minute))
	}
	return page
}
