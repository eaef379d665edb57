package query

import (
	"context"
	"reflect"
	"testing"
	"time"

	"stargazer/internal/models"
	"stargazer/internal/store"
	"stargazer/internal/testutil"
)

// seedLibrary stores five repositories:
//
//	1 ripgrep   Rust  40000★  starred -1h  topics cli,search
//	2 cobra     Go    38000★  starred -2h  topics cli, homepage
//	3 gorm      Go    36000★  unknown      topics orm
//	4 dotfiles  -         1★  starred -3h  no description
//	5 100%_real -         5★  starred -4h
func seedLibrary(t *testing.T) (*store.Store, *Query) {
	t.Helper()
	s := store.New(testutil.NewTestDB(t), store.WithClock(testutil.FixedClock()))

	ripgrep := testutil.StarredRepo(1, -time.Hour)
	ripgrep.Name, ripgrep.FullName, ripgrep.OwnerLogin = "ripgrep", "BurntSushi/ripgrep", "BurntSushi"
	ripgrep.Language = "Rust"
	ripgrep.Description = "recursively search directories"
	ripgrep.Topics = models.StringSlice{"cli", "search"}
	ripgrep.StargazersCount, ripgrep.ForksCount = 40000, 1800

	cobra := testutil.StarredRepo(2, -2*time.Hour)
	cobra.Name, cobra.FullName, cobra.OwnerLogin = "cobra", "spf13/cobra", "spf13"
	cobra.Language = "Go"
	cobra.Description = "A Commander for modern Go CLI interactions"
	cobra.Homepage = "https://cobra.dev"
	cobra.Topics = models.StringSlice{"cli"}
	cobra.StargazersCount, cobra.ForksCount = 38000, 2800

	gorm := testutil.Repo(3)
	gorm.Name, gorm.FullName, gorm.OwnerLogin = "gorm", "go-gorm/gorm", "go-gorm"
	gorm.Language = "Go"
	gorm.Description = "The fantastic ORM library for Golang"
	gorm.Topics = models.StringSlice{"orm"}
	gorm.StargazersCount, gorm.ForksCount = 36000, 3900

	dotfiles := testutil.StarredRepo(4, -3*time.Hour)
	dotfiles.Name, dotfiles.FullName, dotfiles.OwnerLogin = "dotfiles", "me/dotfiles", "me"
	dotfiles.StargazersCount = 1

	odd := testutil.StarredRepo(5, -4*time.Hour)
	odd.Name, odd.FullName, odd.OwnerLogin = "100%_real", "odd/100%_real", "odd"
	odd.Description = "edge case"
	odd.StargazersCount = 5

	if _, err := s.UpsertBatch(context.Background(), []models.Repository{ripgrep, cobra, gorm, dotfiles, odd}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	return s, New(s.DB())
}

func ids(repos []models.Repository) []int64 {
	out := make([]int64, len(repos))
	for i, r := range repos {
		out[i] = r.ID
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestListSortAndFilter(t *testing.T) {
	s, q := seedLibrary(t)
	ctx := context.Background()

	if err := s.SetFavorite(ctx, 3, true); err != nil {
		t.Fatalf("SetFavorite() error: %v", err)
	}
	if err := s.SetPinned(ctx, 1, true); err != nil {
		t.Fatalf("SetPinned() error: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"default sort is stars", Filter{}, []int64{1, 2, 3, 5, 4}},
		{"forks ties by id", Filter{Sort: models.SortForks}, []int64{3, 2, 1, 4, 5}},
		{"name ascending", Filter{Sort: models.SortName}, []int64{5, 2, 4, 3, 1}},
		{"starred unknown last", Filter{Sort: models.SortStarred}, []int64{1, 2, 4, 5, 3}},
		{"search topic and description", Filter{Search: "CLI"}, []int64{1, 2}},
		{"search owner", Filter{Search: "burntsushi"}, []int64{1}},
		{"search trimmed", Filter{Search: "  golang "}, []int64{3}},
		{"search blank matches all", Filter{Search: "   "}, []int64{1, 2, 3, 5, 4}},
		{"search percent literal", Filter{Search: "%"}, []int64{5}},
		{"search underscore literal", Filter{Search: "_"}, []int64{5}},
		{"search no match", Filter{Search: "kubernetes"}, []int64{}},
		{"language exact", Filter{Language: "Go"}, []int64{2, 3}},
		{"min stars inclusive", Filter{MinStars: 36000}, []int64{1, 2, 3}},
		{"max stars inclusive", Filter{MaxStars: intPtr(5)}, []int64{5, 4}},
		{"star range", Filter{MinStars: 2, MaxStars: intPtr(10)}, []int64{5}},
		{"has description", Filter{HasDescription: true}, []int64{1, 2, 3, 5}},
		{"has homepage", Filter{HasHomepage: true}, []int64{2}},
		{"has topics", Filter{HasTopics: true}, []int64{1, 2, 3}},
		{"favorites only", Filter{FavoritesOnly: true}, []int64{3}},
		{"pinned only", Filter{PinnedOnly: true}, []int64{1}},
		{"combined", Filter{Language: "Go", Search: "cli", Sort: models.SortName}, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("List() = %v, want %v", ids(got), tt.want)
			}

			n, err := q.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count() error: %v", err)
			}
			if n != int64(len(tt.want)) {
				t.Errorf("Count() = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestListSearchNonASCII(t *testing.T) {
	s := store.New(testutil.NewTestDB(t), store.WithClock(testutil.FixedClock()))
	q := New(s.DB())
	ctx := context.Background()

	umlaut := testutil.StarredRepo(1, -time.Hour)
	umlaut.Name, umlaut.FullName, umlaut.OwnerLogin = "Ärger-lib", "zoë/Ärger-lib", "zoë"
	umlaut.Description = "Überblick über Dinge"
	umlaut.Topics = models.StringSlice{"Straße"}

	plain := testutil.StarredRepo(2, -2*time.Hour)
	plain.Name, plain.FullName, plain.OwnerLogin = "arger", "me/arger", "me"
	plain.Description = "ueberblick"

	if _, err := s.UpsertBatch(ctx, []models.Repository{umlaut, plain}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}

	tests := []struct {
		search string
		want   []int64
	}{
		{"ärger", []int64{1}},
		{"ÄRGER", []int64{1}},
		{"Ärger", []int64{1}},
		{"überblick", []int64{1}},
		{"ÜBER DINGE", []int64{1}},
		{"ZOË", []int64{1}},
		{"STRASSE", []int64{}},
		{"straße", []int64{1}},
		{"arger", []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := q.List(ctx, Filter{Search: tt.search})
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("List(%q) = %v, want %v", tt.search, ids(got), tt.want)
			}
		})
	}

	// A sync that rewrites the row keeps it searchable.
	umlaut.Description = "Ölwechsel"
	if _, err := s.UpsertBatch(ctx, []models.Repository{umlaut}); err != nil {
		t.Fatalf("UpsertBatch() error: %v", err)
	}
	got, err := q.List(ctx, Filter{Search: "ÖLWECHSEL"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []int64{1}) {
		t.Errorf("List(ÖLWECHSEL) after update = %v, want [1]", ids(got))
	}
}

func TestListTagFilter(t *testing.T) {
	s, q := seedLibrary(t)
	ctx := context.Background()

	tools, err := s.CreateTag(ctx, "tools", "")
	if err != nil {
		t.Fatalf("CreateTag() error: %v", err)
	}
	lib, err := s.CreateTag(ctx, "lib", "")
	if err != nil {
		t.Fatalf("CreateTag() error: %v", err)
	}
	for _, link := range []struct {
		repo int64
		tag  uint
	}{{1, tools.ID}, {4, tools.ID}, {3, lib.ID}, {1, lib.ID}} {
		if err := s.AddTag(ctx, link.repo, link.tag); err != nil {
			t.Fatalf("AddTag(%d, %d) error: %v", link.repo, link.tag, err)
		}
	}

	tests := []struct {
		name string
		tags []uint
		want []int64
	}{
		{"single tag", []uint{tools.ID}, []int64{1, 4}},
		{"any of several without duplicates", []uint{tools.ID, lib.ID}, []int64{1, 3, 4}},
		{"unused tag", []uint{9999}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.List(ctx, Filter{TagIDs: tt.tags})
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("List() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	_, q := seedLibrary(t)
	ctx := context.Background()

	got, err := q.Page(ctx, Filter{}, 1, 2)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	if want := []int64{2, 3}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Page(1, 2) = %v, want %v", ids(got), want)
	}

	got, err = q.Page(ctx, Filter{}, 10, 5)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Page past the end = %v, want empty", ids(got))
	}
}

func TestLanguages(t *testing.T) {
	_, q := seedLibrary(t)

	got, err := q.Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages() error: %v", err)
	}
	if want := []string{"Go", "Rust"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v", got, want)
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"zero", Filter{}, false},
		{"valid sort", Filter{Sort: models.SortStarred}, false},
		{"unknown sort", Filter{Sort: "popularity"}, true},
		{"negative min", Filter{MinStars: -1}, true},
		{"max below min", Filter{MinStars: 10, MaxStars: intPtr(5)}, true},
		{"max equals min", Filter{MinStars: 10, MaxStars: intPtr(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	_, q := seedLibrary(t)
	if _, err := q.List(context.Background(), Filter{Sort: "popularity"}); err == nil {
		t.Error("List() with unknown sort should error")
	}
}

func TestPresetConversion(t *testing.T) {
	f := Filter{
		Sort:          models.SortName,
		Search:        " http ",
		Language:      "Go",
		MinStars:      10,
		MaxStars:      intPtr(500),
		HasTopics:     true,
		FavoritesOnly: true,
		TagIDs:        []uint{1},
	}

	p := f.Preset("go-http")
	if p.Name != "go-http" || p.SortBy != models.SortName {
		t.Errorf("Preset() = %+v", p)
	}
	if p.SearchQuery == nil || *p.SearchQuery != "http" {
		t.Errorf("SearchQuery = %v, want trimmed http", p.SearchQuery)
	}

	back := FromPreset(p)
	want := f
	want.Search = "http"
	want.TagIDs = nil
	if !reflect.DeepEqual(back, want) {
		t.Errorf("FromPreset(Preset()) = %+v, want %+v", back, want)
	}

	// The preset owns its own copy of the bound.
	*f.MaxStars = 1
	if *p.FilterMaxStars != 500 {
		t.Errorf("FilterMaxStars = %d, want 500", *p.FilterMaxStars)
	}

	if empty := (Filter{}).Preset("all"); empty.SearchQuery != nil || empty.FilterMaxStars != nil {
		t.Errorf("empty filter preset = %+v, want nil optional fields", empty)
	}
}

func TestStats(t *testing.T) {
	s, q := seedLibrary(t)
	ctx := context.Background()

	if err := s.SetFavorite(ctx, 2, true); err != nil {
		t.Fatalf("SetFavorite() error: %v", err)
	}
	tag, err := s.CreateTag(ctx, "tools", "")
	if err != nil {
		t.Fatalf("CreateTag() error: %v", err)
	}
	if err := s.AddTag(ctx, 1, tag.ID); err != nil {
		t.Fatalf("AddTag() error: %v", err)
	}

	stats, err := q.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Total != 5 || stats.Favorites != 1 || stats.Pinned != 0 || stats.Tagged != 1 || stats.UnknownStar != 1 {
		t.Errorf("Stats() counts = %+v", stats)
	}
	if stats.TotalStars != 40000+38000+36000+1+5 {
		t.Errorf("TotalStars = %d", stats.TotalStars)
	}
	wantLangs := []LanguageCount{{"Go", 2}, {"Rust", 1}}
	if !reflect.DeepEqual(stats.TopLanguages, wantLangs) {
		t.Errorf("TopLanguages = %+v, want %+v", stats.TopLanguages, wantLangs)
	}

	top, err := q.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if len(top.TopLanguages) != 1 || top.TopLanguages[0].Language != "Go" {
		t.Errorf("Stats(1).TopLanguages = %+v", top.TopLanguages)
	}
}
