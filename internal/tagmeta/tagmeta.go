// Package tagmeta turns the directives Stash users write into tag descriptions
// into typed fields on core.Tag. Nothing outside this package reads description text.
package tagmeta

import (
	"strings"

	"github.com/markerlab/markerlab/pkg/core"
)

const (
	correspondingTagKey = "corresponding tag:"
	sortOrderKey        = "sort order:"
)

// ParseCorrespondingTag returns the tag name named by a "Corresponding Tag: <name>"
// directive. The directive may follow other text on its line.
func ParseCorrespondingTag(description string) (string, bool) {
	value, ok := directive(description, correspondingTagKey)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ParseSortOrder returns the tag ids listed on a "Sort Order: <id>, <id>, ..." line.
// Blank entries and duplicates are dropped.
func ParseSortOrder(description string) []string {
	value, ok := directive(description, sortOrderKey)
	if !ok {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// directive finds the first line containing key, matched case-insensitively
// anywhere in the line, and returns the trimmed rest of that line.
func directive(description, key string) (string, bool) {
	for _, line := range strings.Split(description, "\n") {
		if i := indexFold(line, key); i >= 0 {
			return strings.TrimSpace(line[i+len(key):]), true
		}
	}
	return "", false
}

// indexFold is strings.Index with ASCII case folding. key must be ASCII, so
// byte offsets into s stay valid.
func indexFold(s, key string) int {
	for i := 0; i+len(key) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(key)], key) {
			return i
		}
	}
	return -1
}

// Normalize fills the typed directive fields of tag and of its whole parent chain.
// The input is not modified.
func Normalize(tag core.Tag) core.Tag {
	out := tag
	out.CorrespondingTagName, _ = ParseCorrespondingTag(tag.Description)
	out.SortOrder = ParseSortOrder(tag.Description)
	if len(tag.Parents) > 0 {
		out.Parents = make([]core.Tag, len(tag.Parents))
		for i, p := range tag.Parents {
			out.Parents[i] = Normalize(p)
		}
	}
	return out
}

// NormalizeAll normalizes every tag in tags.
func NormalizeAll(tags []core.Tag) []core.Tag {
	out := make([]core.Tag, len(tags))
	for i, t := range tags {
		out[i] = Normalize(t)
	}
	return out
}

// NormalizeMarker normalizes the primary and secondary tags of a marker.
func NormalizeMarker(m core.Marker) core.Marker {
	out := m.Clone()
	out.PrimaryTag = Normalize(m.PrimaryTag)
	out.Tags = NormalizeAll(m.Tags)
	return out
}

// TagSorting builds the manual sort table keyed by marker-group tag id.
// Groups without a sort directive are omitted.
func TagSorting(markerGroups []core.Tag) map[string][]string {
	sorting := make(map[string][]string)
	for _, g := range markerGroups {
		order := g.SortOrder
		if order == nil {
			order = ParseSortOrder(g.Description)
		}
		if len(order) > 0 {
			sorting[g.ID] = order
		}
	}
	return sorting
}
