package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stargazer/internal/db"
	"stargazer/internal/models"
	"stargazer/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *testutil.StubClock) {
	t.Helper()
	clk := testutil.FixedClock()
	return New(testutil.NewTestDB(t), WithClock(clk)), clk
}

func TestUpsertBatchInsertsWithDefaults(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	repo := testutil.StarredRepo(1, 0)
	repo.IsFavorite = true // ignored on insert
	res, err := s.UpsertBatch(ctx, []models.Repository{repo, testutil.Repo(2)})
	if err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	if res.Inserted != 2 || res.Updated != 0 {
		t.Errorf("UpsertBatch() = %+v, want 2 inserted", res)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.IsFavorite || got.IsPinned {
		t.Error("inserted row should have both local flags false")
	}
	if got.StarredAt == nil || *got.StarredAt != *repo.StarredAt {
		t.Errorf("StarredAt = %v, want %d", got.StarredAt, *repo.StarredAt)
	}
	if !got.CachedAt.Equal(clk.Now()) {
		t.Errorf("CachedAt = %v, want %v", got.CachedAt, clk.Now())
	}

	other, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if other.StarredAt != nil {
		t.Errorf("StarredAt = %v, want nil", *other.StarredAt)
	}
}

func TestUpsertBatchPreservesLocalFlags(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	if err := s.SetFavorite(ctx, 1, true); err != nil {
		t.Fatalf("SetFavorite() error: %v", err)
	}
	if err := s.SetPinned(ctx, 1, true); err != nil {
		t.Fatalf("SetPinned() error: %v", err)
	}

	clk.Advance(time.Hour)
	updated := testutil.Repo(1)
	updated.Description = "now with a description"
	updated.StargazersCount = 999
	updated.IsFavorite = false
	updated.IsPinned = false

	res, err := s.UpsertBatch(ctx, []models.Repository{updated})
	if err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	if res.Updated != 1 || res.Inserted != 0 {
		t.Errorf("UpsertBatch() = %+v, want 1 updated", res)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.IsFavorite || !got.IsPinned {
		t.Errorf("local flags lost: favorite=%v pinned=%v", got.IsFavorite, got.IsPinned)
	}
	if got.Description != "now with a description" || got.StargazersCount != 999 {
		t.Errorf("remote fields not refreshed: %+v", got)
	}
	if !got.CachedAt.Equal(clk.Now()) {
		t.Errorf("CachedAt = %v, want %v", got.CachedAt, clk.Now())
	}
}

func TestUpsertBatchStarredAtImmutable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		first   *time.Duration
		second  *time.Duration
		wantSet bool
		want    time.Duration
	}{
		{"set once then kept", durPtr(0), durPtr(time.Hour), true, 0},
		{"set once then nil", durPtr(0), nil, true, 0},
		{"null then filled", nil, durPtr(time.Hour), true, time.Hour},
		{"null twice", nil, nil, false, 0},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := int64(100 + i)
			for _, offset := range []*time.Duration{tt.first, tt.second} {
				repo := testutil.Repo(id)
				if offset != nil {
					repo = testutil.StarredRepo(id, *offset)
				}
				if _, err := s.UpsertBatch(ctx, []models.Repository{repo}); err != nil {
					t.Fatalf("UpsertBatch() error: %v", err)
				}
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if !tt.wantSet {
				if got.StarredAt != nil {
					t.Errorf("StarredAt = %d, want nil", *got.StarredAt)
				}
				return
			}
			want := models.Millis(testutil.BaseTime.Add(tt.want))
			if got.StarredAt == nil || *got.StarredAt != want {
				t.Errorf("StarredAt = %v, want %d", got.StarredAt, want)
			}
		})
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }

func TestUpsertBatchDuplicateIDsInBatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := testutil.Repo(1)
	b := testutil.Repo(1)
	b.Description = "second copy"

	res, err := s.UpsertBatch(ctx, []models.Repository{a, b})
	if err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Errorf("UpsertBatch() = %+v, want 1 inserted 1 updated", res)
	}
	if res.Total() != 2 {
		t.Errorf("Total() = %d, want 2", res.Total())
	}
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	got, _ := s.Get(ctx, 1)
	if got.Description != "second copy" {
		t.Errorf("Description = %q, want last write", got.Description)
	}
}

func TestUpsertBatchIsAtomic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	trigger := `CREATE TRIGGER reject_999 BEFORE INSERT ON repositories
		WHEN NEW.id = 999 BEGIN SELECT RAISE(ABORT, 'rejected'); END`
	if err := s.DB().Exec(trigger).Error; err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	batch := []models.Repository{testutil.Repo(1), testutil.Repo(2), testutil.Repo(999)}
	if _, err := s.UpsertBatch(ctx, batch); err == nil {
		t.Fatal("UpsertBatch() expected error")
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after failed batch, want 0", n)
	}
}

func TestMaxStarredAt(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	max, err := s.MaxStarredAt(ctx)
	if err != nil {
		t.Fatalf("MaxStarredAt() error: %v", err)
	}
	if max != nil {
		t.Errorf("MaxStarredAt() on empty store = %d, want nil", *max)
	}

	batch := []models.Repository{
		testutil.StarredRepo(1, -time.Hour),
		testutil.StarredRepo(2, time.Hour),
		testutil.Repo(3),
	}
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}

	max, err = s.MaxStarredAt(ctx)
	if err != nil {
		t.Fatalf("MaxStarredAt() error: %v", err)
	}
	want := models.Millis(testutil.BaseTime.Add(time.Hour))
	if max == nil || *max != want {
		t.Errorf("MaxStarredAt() = %v, want %d", max, want)
	}
}

func TestGetNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetByFullName(ctx, "nobody/nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByFullName() error = %v, want ErrNotFound", err)
	}
	if err := s.SetFavorite(ctx, 404, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetFavorite() error = %v, want ErrNotFound", err)
	}
}

func TestGetByFullNameIgnoresCase(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(7)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	got, err := s.GetByFullName(ctx, "OWNER/Repo-7")
	if err != nil {
		t.Fatalf("GetByFullName() error: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("GetByFullName() id = %d, want 7", got.ID)
	}
}

func TestDeleteRepositoryCascadesTagLinks(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1), testutil.Repo(2)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	tag, err := s.CreateTag(ctx, "cli", "")
	if err != nil {
		t.Fatalf("CreateTag() error: %v", err)
	}
	for _, id := range []int64{1, 2} {
		if err := s.AddTag(ctx, id, tag.ID); err != nil {
			t.Fatalf("AddTag(%d) error: %v", id, err)
		}
	}

	if err := s.DeleteRepository(ctx, 1); err != nil {
		t.Fatalf("DeleteRepository() error: %v", err)
	}

	var links int64
	s.DB().Model(&models.RepositoryTag{}).Count(&links)
	if links != 1 {
		t.Errorf("links after delete = %d, want 1", links)
	}
	if err := s.DeleteRepository(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteRepository() = %v, want ErrNotFound", err)
	}
}

func TestDeleteAllRepositoriesKeepsTagsAndMetadata(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, testutil.StarredPage(1, 5, 0)); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	tag, _ := s.CreateTag(ctx, "keep", "#112233")
	_ = s.AddTag(ctx, 1, tag.ID)
	if err := s.SaveMetadata(ctx, &models.SyncMetadata{DataType: models.DataTypeStarredRepos, IsInitialSyncComplete: true}); err != nil {
		t.Fatalf("SaveMetadata() error: %v", err)
	}

	if err := s.DeleteAllRepositories(ctx); err != nil {
		t.Fatalf("DeleteAllRepositories() error: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
	tags, _ := s.ListTags(ctx)
	if len(tags) != 1 {
		t.Errorf("ListTags() = %d tags, want 1", len(tags))
	}
	usage, _ := s.TagUsage(ctx)
	if usage[tag.ID] != 0 {
		t.Errorf("tag usage = %d, want 0", usage[tag.ID])
	}
	meta, _ := s.Metadata(ctx, models.DataTypeStarredRepos)
	if meta == nil {
		t.Error("metadata should survive DeleteAllRepositories")
	}
}

func TestPruneCachedBefore(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	tag, _ := s.CreateTag(ctx, "old", "")
	_ = s.AddTag(ctx, 1, tag.ID)

	clk.Advance(48 * time.Hour)
	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(2)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}

	cutoff := clk.Now().Add(-24 * time.Hour)
	pending, err := s.CountCachedBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("CountCachedBefore() error: %v", err)
	}
	if pending != 1 {
		t.Errorf("CountCachedBefore() = %d, want 1", pending)
	}

	removed, err := s.PruneCachedBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneCachedBefore() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("PruneCachedBefore() = %d, want 1", removed)
	}
	if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Error("stale repository should be gone")
	}
	if _, err := s.Get(ctx, 2); err != nil {
		t.Errorf("fresh repository should remain: %v", err)
	}
	tags, _ := s.TagsFor(ctx, 1)
	if len(tags) != 0 {
		t.Errorf("TagsFor() pruned repo = %d, want 0", len(tags))
	}
}

func TestSubscriptionSignalsAfterCommit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sub := s.Subscribe()
	defer sub.Close()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	// A second commit coalesces with the pending signal.
	if err := s.SetFavorite(ctx, 1, true); err != nil {
		t.Fatalf("SetFavorite() error: %v", err)
	}

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("expected a commit signal")
	}
	select {
	case <-sub.C():
		t.Error("signals should coalesce while one is pending")
	default:
	}

	got, _ := s.Get(ctx, 1)
	if !got.IsFavorite {
		t.Error("signal observed before the commit was visible")
	}
}

func TestSubscriptionClose(t *testing.T) {
	s, _ := newTestStore(t)

	sub := s.Subscribe()
	if s.notifier.count() != 1 {
		t.Fatalf("count() = %d, want 1", s.notifier.count())
	}
	sub.Close()
	sub.Close() // idempotent

	if s.notifier.count() != 0 {
		t.Errorf("count() = %d after Close, want 0", s.notifier.count())
	}
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed")
	}
}

func TestFailedBatchDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.DB().Exec(`CREATE TRIGGER reject_all BEFORE INSERT ON repositories BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error; err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	sub := s.Subscribe()
	defer sub.Close()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1)}); err == nil {
		t.Fatal("UpsertBatch() expected error")
	}
	select {
	case <-sub.C():
		t.Error("failed batch must not notify")
	default:
	}
}

func TestOrphanedLinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphans.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("db.Open() error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	s := New(database, WithClock(testutil.FixedClock()))
	ctx := context.Background()

	if _, err := s.UpsertBatch(ctx, []models.Repository{testutil.Repo(1)}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	tag, _ := s.CreateTag(ctx, "go", "")
	_ = s.AddTag(ctx, 1, tag.ID)

	// A connection without foreign keys can leave links behind.
	raw, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm.Open() error: %v", err)
	}
	if err := raw.Exec("DELETE FROM repositories WHERE id = 1").Error; err != nil {
		t.Fatalf("raw delete error: %v", err)
	}
	if sqlDB, err := raw.DB(); err == nil {
		sqlDB.Close()
	}

	n, err := s.CountOrphanedLinks(ctx)
	if err != nil {
		t.Fatalf("CountOrphanedLinks() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("CountOrphanedLinks() = %d, want 1", n)
	}

	removed, err := s.DeleteOrphanedLinks(ctx)
	if err != nil {
		t.Fatalf("DeleteOrphanedLinks() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteOrphanedLinks() = %d, want 1", removed)
	}
	n, _ = s.CountOrphanedLinks(ctx)
	if n != 0 {
		t.Errorf("CountOrphanedLinks() after cleanup = %d, want 0", n)
	}
}
