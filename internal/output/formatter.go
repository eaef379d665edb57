package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"stargazer/internal/models"
	"stargazer/internal/query"
)

// DescriptionWidth is where list descriptions are cut off
const DescriptionWidth = 60

// Formatter defines the interface for output formatting
type Formatter interface {
	Repo(r *models.Repository, tags []models.Tag)
	RepoList(repos []models.Repository, title string)
	RepoBrief(r *models.Repository)
	TagList(tags []models.Tag, usage map[uint]int64)
	PresetList(presets []models.SearchPreset)
	SyncStatus(meta *models.SyncMetadata, cached int64)
	Stats(s *query.Stats)
	Success(msg string)
	Error(err error)
	Info(msg string)
	KeyValue(key, value string)
	Section(title string)
	JSON(v interface{})
}

// TextFormatter outputs human-readable text
type TextFormatter struct{}

// JSONFormatter outputs JSON
type JSONFormatter struct{}

// New returns the appropriate formatter based on json flag
func New(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// Truncate shortens s to width runes, marking the cut with "..."
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// TextFormatter implementations

func (f *TextFormatter) Repo(r *models.Repository, tags []models.Tag) {
	fmt.Printf("ID:       %d\n", r.ID)
	fmt.Printf("Name:     %s\n", r.FullName)
	if r.Description != "" {
		fmt.Printf("Desc:     %s\n", r.Description)
	}
	fmt.Printf("URL:      %s\n", r.HTMLURL)
	if r.Homepage != "" {
		fmt.Printf("Homepage: %s\n", r.Homepage)
	}
	if r.Language != "" {
		fmt.Printf("Language: %s\n", r.Language)
	}
	if r.LicenseName != "" {
		fmt.Printf("License:  %s\n", r.LicenseName)
	}
	fmt.Printf("Stars:    %s\n", humanize.Comma(int64(r.StargazersCount)))
	fmt.Printf("Forks:    %s\n", humanize.Comma(int64(r.ForksCount)))
	fmt.Printf("Issues:   %s\n", humanize.Comma(int64(r.OpenIssuesCount)))
	if len(r.Topics) > 0 {
		fmt.Printf("Topics:   %s\n", strings.Join(r.Topics, ", "))
	}
	if len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Name
		}
		fmt.Printf("Tags:     %s\n", strings.Join(names, ", "))
	}
	if r.IsFavorite {
		fmt.Println("Favorite: yes")
	}
	if r.IsPinned {
		fmt.Println("Pinned:   yes")
	}
	if starred, ok := r.StarredTime(); ok {
		fmt.Printf("Starred:  %s (%s)\n", starred.Format(models.DateTimeShortFormat), humanize.Time(starred))
	}
	if !r.RepoUpdatedAt.IsZero() {
		fmt.Printf("Updated:  %s\n", r.RepoUpdatedAt.Format(models.DateTimeShortFormat))
	}
	fmt.Printf("Cached:   %s\n", r.CachedAt.Format(models.DateTimeShortFormat))
}

func (f *TextFormatter) RepoList(repos []models.Repository, title string) {
	if title != "" {
		fmt.Printf("%s (%d):\n", title, len(repos))
	}
	if len(repos) == 0 {
		fmt.Println("No repositories found")
		return
	}
	for _, r := range repos {
		f.RepoBrief(&r)
	}
}

func (f *TextFormatter) RepoBrief(r *models.Repository) {
	flags := ""
	if fs := r.FlagString(); fs != "" {
		flags = " " + fs
	}
	lang := ""
	if r.Language != "" {
		lang = " (" + r.Language + ")"
	}
	desc := ""
	if r.Description != "" {
		desc = " - " + Truncate(r.Description, DescriptionWidth)
	}
	fmt.Printf("[%d] %s%s ★%s%s%s\n", r.ID, r.FullName, flags, humanize.Comma(int64(r.StargazersCount)), lang, desc)
}

func (f *TextFormatter) TagList(tags []models.Tag, usage map[uint]int64) {
	if len(tags) == 0 {
		fmt.Println("No tags")
		return
	}
	for _, t := range tags {
		fmt.Printf("[%d] %s %s (%d repos)\n", t.ID, t.Name, t.Color, usage[t.ID])
	}
}

func (f *TextFormatter) PresetList(presets []models.SearchPreset) {
	if len(presets) == 0 {
		fmt.Println("No presets")
		return
	}
	for _, p := range presets {
		fmt.Printf("[%d] %s: %s\n", p.ID, p.Name, p.Summary())
	}
}

func (f *TextFormatter) SyncStatus(meta *models.SyncMetadata, cached int64) {
	fmt.Printf("Cached repositories: %d\n", cached)
	if meta == nil {
		fmt.Println("Last sync:           never")
		return
	}
	last := meta.LastSyncTimestamp.UTC()
	fmt.Printf("Last sync:           %s (%s)\n", last.Format(models.DateTimeFormat), humanize.Time(last))
	if meta.IsInitialSyncComplete {
		fmt.Println("Initial sync:        complete")
	} else {
		fmt.Println("Initial sync:        incomplete")
	}
	if newest, ok := meta.NewestStarredTime(); ok {
		fmt.Printf("Newest star:         %s\n", newest.Format(models.DateTimeFormat))
	}
}

func (f *TextFormatter) Stats(s *query.Stats) {
	fmt.Printf("Repositories: %d\n", s.Total)
	fmt.Printf("Favorites:    %d\n", s.Favorites)
	fmt.Printf("Pinned:       %d\n", s.Pinned)
	fmt.Printf("Tagged:       %d\n", s.Tagged)
	fmt.Printf("Total stars:  %s\n", humanize.Comma(s.TotalStars))
	if s.UnknownStar > 0 {
		fmt.Printf("Unknown starring time: %d\n", s.UnknownStar)
	}
	if len(s.TopLanguages) > 0 {
		fmt.Println("\nLanguages:")
		for _, l := range s.TopLanguages {
			fmt.Printf("  %-16s %d\n", l.Language, l.Count)
		}
	}
}

func (f *TextFormatter) Success(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) Error(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func (f *TextFormatter) Info(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) KeyValue(key, value string) {
	fmt.Printf("%s: %s\n", key, value)
}

func (f *TextFormatter) Section(title string) {
	fmt.Printf("\n%s:\n", title)
}

func (f *TextFormatter) JSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		f.Error(err)
		return
	}
	fmt.Println(string(data))
}

// JSONFormatter implementations

func (f *JSONFormatter) Repo(r *models.Repository, tags []models.Tag) {
	if tags == nil {
		tags = []models.Tag{}
	}
	f.JSON(map[string]interface{}{
		"repository": r,
		"tags":       tags,
	})
}

func (f *JSONFormatter) RepoList(repos []models.Repository, title string) {
	f.JSON(map[string]interface{}{
		"count":        len(repos),
		"repositories": repos,
	})
}

func (f *JSONFormatter) RepoBrief(r *models.Repository) {
	f.JSON(r)
}

func (f *JSONFormatter) TagList(tags []models.Tag, usage map[uint]int64) {
	type tagWithUsage struct {
		models.Tag
		Repositories int64 `json:"repositories"`
	}
	out := make([]tagWithUsage, len(tags))
	for i, t := range tags {
		out[i] = tagWithUsage{Tag: t, Repositories: usage[t.ID]}
	}
	f.JSON(map[string]interface{}{
		"count": len(tags),
		"tags":  out,
	})
}

func (f *JSONFormatter) PresetList(presets []models.SearchPreset) {
	f.JSON(map[string]interface{}{
		"count":   len(presets),
		"presets": presets,
	})
}

func (f *JSONFormatter) SyncStatus(meta *models.SyncMetadata, cached int64) {
	f.JSON(map[string]interface{}{
		"cached":   cached,
		"metadata": meta,
	})
}

func (f *JSONFormatter) Stats(s *query.Stats) {
	f.JSON(s)
}

func (f *JSONFormatter) Success(msg string) {
	f.JSON(map[string]interface{}{"success": true, "message": msg})
}

func (f *JSONFormatter) Error(err error) {
	f.JSON(map[string]interface{}{"error": true, "message": err.Error()})
}

func (f *JSONFormatter) Info(msg string) {
	f.JSON(map[string]interface{}{"message": msg})
}

func (f *JSONFormatter) KeyValue(key, value string) {
	f.JSON(map[string]string{key: value})
}

func (f *JSONFormatter) Section(title string) {
	// JSON doesn't need section headers
}

func (f *JSONFormatter) JSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, `{"error": true, "message": "JSON marshal error: %s"}`+"\n", err.Error())
		return
	}
	fmt.Println(string(data))
}
