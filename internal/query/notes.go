// Package query holds the derived note views: search, tag filtering and sorting.
package query

import (
	"sort"
	"strings"

	"github.com/sre-portfolio/notetrack/internal/model"
)

// Search returns the notes whose title, content or any tag contains the
// query, ignoring case. A blank query matches every note.
func Search(notes []model.Note, q string) []model.Note {
	if strings.TrimSpace(q) == "" {
		return notes
	}

	needle := strings.ToLower(q)
	matched := []model.Note{}
	for _, note := range notes {
		if matchesNote(note, needle) {
			matched = append(matched, note)
		}
	}
	return matched
}

func matchesNote(note model.Note, needle string) bool {
	if strings.Contains(strings.ToLower(note.Title), needle) ||
		strings.Contains(strings.ToLower(note.Content), needle) {
		return true
	}
	for _, tag := range note.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// FilterByTags keeps notes carrying every one of the selected tags.
func FilterByTags(notes []model.Note, tags []string) []model.Note {
	if len(tags) == 0 {
		return notes
	}

	filtered := []model.Note{}
	for _, note := range notes {
		if hasAllTags(note, tags) {
			filtered = append(filtered, note)
		}
	}
	return filtered
}

func hasAllTags(note model.Note, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, tag := range note.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Tags lists the distinct tags used across notes, sorted.
func Tags(notes []model.Note) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, note := range notes {
		for _, tag := range note.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Sort returns a sorted copy. recent orders by last update and created by
// creation time, newest first; title is alphabetical. Unknown orders leave
// the input order alone.
func Sort(notes []model.Note, by model.NoteSort) []model.Note {
	sorted := make([]model.Note, len(notes))
	copy(sorted, notes)

	switch by {
	case model.SortRecent:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		})
	case model.SortTitle:
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
		})
	case model.SortCreated:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
	}
	return sorted
}
