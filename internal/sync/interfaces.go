// Package sync mirrors the user's starred repositories from GitHub into the
// local store.
//
// [Engine] picks a strategy per trigger: a full initial walk until one has
// completed, then incremental walks that stop at the first page reaching
// already-known stars. Each page is merged before the next is fetched, so
// readers see the collection grow while a walk is in progress.
package sync

import (
	"context"

	"stargazer/internal/models"
	"stargazer/internal/store"
)

// Source fetches one page of starred repositories, newest star first.
// Implemented by [remote.Client].
type Source interface {
	FetchPage(ctx context.Context, page, perPage int) ([]models.Repository, error)
}

// Store is the local persistence the engine writes to.
// Implemented by [store.Store].
type Store interface {
	UpsertBatch(ctx context.Context, repos []models.Repository) (store.UpsertResult, error)
	MaxStarredAt(ctx context.Context) (*int64, error)
	Metadata(ctx context.Context, dataType string) (*models.SyncMetadata, error)
	SaveMetadata(ctx context.Context, meta *models.SyncMetadata) error
}
