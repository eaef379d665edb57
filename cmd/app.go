package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stargazer/internal/auth"
	"stargazer/internal/config"
	"stargazer/internal/db"
	"stargazer/internal/models"
	"stargazer/internal/query"
	"stargazer/internal/remote"
	"stargazer/internal/store"
	starsync "stargazer/internal/sync"
)

func currentConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

func openStore() *store.Store {
	return store.New(db.GetDB())
}

func openQuery() *query.Query {
	return query.New(db.GetDB())
}

// newRemote builds the GitHub client. Requests go out unauthenticated when
// no token is configured; GitHub then answers 401 for the starred endpoint.
func newRemote() (*remote.Client, error) {
	cfg := currentConfig()
	return remote.NewClient(remote.Options{
		BaseURL: cfg.APIBaseURL,
		Tokens:  auth.NewCachedSource(nil),
		Timeout: cfg.RequestTimeout,
		Retry:   cfg.RetryPolicy(),
		Logger:  logger,
	})
}

func newEngine(st *store.Store) (*starsync.Engine, error) {
	client, err := newRemote()
	if err != nil {
		return nil, err
	}
	cfg := currentConfig()
	return starsync.NewEngine(client, st, starsync.Config{
		PageSize: cfg.PageSize,
		MaxPages: cfg.MaxPages,
	}, logger), nil
}

// resolveRepo finds a repository by numeric id or owner/name
func resolveRepo(ctx context.Context, st *store.Store, ref string) (*models.Repository, error) {
	ref = strings.TrimSpace(ref)
	var (
		repo *models.Repository
		err  error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		repo, err = st.Get(ctx, id)
	} else if strings.Contains(ref, "/") {
		repo, err = st.GetByFullName(ctx, ref)
	} else {
		return nil, fmt.Errorf("invalid repository %q: use a numeric id or owner/name", ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("repository not found: %s (use 'stg search' to find it)", ref)
	}
	return repo, err
}

// resolveTag finds a tag by numeric id or name
func resolveTag(ctx context.Context, st *store.Store, ref string) (*models.Tag, error) {
	ref = strings.TrimSpace(ref)
	tag, err := st.TagByName(ctx, ref)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if id, convErr := strconv.ParseUint(ref, 10, 64); convErr == nil {
		tags, err := st.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		for i := range tags {
			if uint64(tags[i].ID) == id {
				return &tags[i], nil
			}
		}
	}
	return nil, fmt.Errorf("tag not found: %s (use 'stg tag list' to see tags)", ref)
}

// describeSyncError prefixes a sync failure with its user-facing message
func describeSyncError(err error) error {
	return fmt.Errorf("%s: %w", remote.CategoryOf(err).Message(), err)
}
