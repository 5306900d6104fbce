package derive

import (
	"fmt"

	"github.com/markerlab/markerlab/pkg/core"
)

// SkipReasonNoRules is reported for markers no rule applies to.
const SkipReasonNoRules = "No derivation rules configured"

// MarkerMaterialization is a marker with derivations that have not been written yet.
type MarkerMaterialization struct {
	Marker                core.Marker
	TimeLabel             string
	NewDerivations        []DerivedMarker
	NewDerivationsCount   int
	TotalDerivationsCount int
	DerivedTagNames       []string
}

// AlreadyMaterializedMarker is a marker whose derivations all exist.
type AlreadyMaterializedMarker struct {
	Marker           core.Marker
	TimeLabel        string
	DerivationsCount int
}

// SkippedMarker is a marker no rule applies to.
type SkippedMarker struct {
	Marker    core.Marker
	TimeLabel string
	Reason    string
}

// Analysis partitions markers for the bulk materialization prompt.
type Analysis struct {
	Materializable      []MarkerMaterialization
	AlreadyMaterialized []AlreadyMaterializedMarker
	Skipped             []SkippedMarker
}

// FormatMarkerTime renders seconds for display, e.g. "123.5s".
func FormatMarkerTime(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}

// TagName returns the display name of tagID, or "Tag <id>" when unknown.
func TagName(tagNames map[string]string, tagID string) string {
	if name, ok := tagNames[tagID]; ok && name != "" {
		return name
	}
	return "Tag " + tagID
}

// AnalyzeMaterializableMarkers places every marker in exactly one bucket of the
// result. existing maps a marker id to the rule ids already materialized for it.
func AnalyzeMaterializableMarkers(
	markers []core.Marker,
	rules []core.DerivedMarkerConfig,
	maxDepth int,
	existing map[string]map[string]bool,
	tagNames map[string]string,
) Analysis {
	var a Analysis

	for _, m := range markers {
		label := FormatMarkerTime(m.Seconds)
		derived := ComputeAllDerivedMarkers(m, rules, maxDepth)

		if len(derived) == 0 {
			a.Skipped = append(a.Skipped, SkippedMarker{Marker: m, TimeLabel: label, Reason: SkipReasonNoRules})
			continue
		}

		done := existing[m.ID]
		var fresh []DerivedMarker
		for _, d := range derived {
			if !done[d.RuleID] {
				fresh = append(fresh, d)
			}
		}

		if len(fresh) == 0 {
			a.AlreadyMaterialized = append(a.AlreadyMaterialized, AlreadyMaterializedMarker{
				Marker:           m,
				TimeLabel:        label,
				DerivationsCount: len(derived),
			})
			continue
		}

		var tagLabels []string
		seen := make(map[string]bool)
		for _, d := range fresh {
			name := TagName(tagNames, d.TagID)
			if seen[name] {
				continue
			}
			seen[name] = true
			tagLabels = append(tagLabels, name)
		}

		a.Materializable = append(a.Materializable, MarkerMaterialization{
			Marker:                m,
			TimeLabel:             label,
			NewDerivations:        fresh,
			NewDerivationsCount:   len(fresh),
			TotalDerivationsCount: len(derived),
			DerivedTagNames:       tagLabels,
		})
	}

	return a
}
