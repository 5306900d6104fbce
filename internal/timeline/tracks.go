package timeline

import (
	"sort"

	"github.com/markerlab/markerlab/pkg/core"
)

// MarkerWithTrack is a marker placed on a sub-row (Track) of its swimlane.
type MarkerWithTrack struct {
	core.Marker
	Track         int
	SwimlaneIndex int
}

// span returns the interval used for overlap tests. A point marker spans one second.
func span(m core.Marker) (float64, float64) {
	if end, ok := m.End(); ok {
		return m.Seconds, end
	}
	return m.Seconds, m.Seconds + 1
}

func overlaps(a, b core.Marker) bool {
	as, ae := span(a)
	bs, be := span(b)
	return as < be && bs < ae
}

// AssignTracks places the markers of one swimlane on the lowest track where they
// overlap nothing already placed. Markers are visited by start time; equal starts
// keep their input order.
func AssignTracks(markers []core.Marker) []MarkerWithTrack {
	sorted := make([]core.Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seconds < sorted[j].Seconds
	})

	var tracks [][]core.Marker
	out := make([]MarkerWithTrack, 0, len(sorted))

	for _, m := range sorted {
		track := 0
		for ; track < len(tracks); track++ {
			if !overlapsAny(m, tracks[track]) {
				break
			}
		}
		if track == len(tracks) {
			tracks = append(tracks, nil)
		}
		tracks[track] = append(tracks[track], m)
		out = append(out, MarkerWithTrack{Marker: m, Track: track})
	}

	return out
}

func overlapsAny(m core.Marker, placed []core.Marker) bool {
	for _, p := range placed {
		if overlaps(m, p) {
			return true
		}
	}
	return false
}

// CreateSwimlanes assigns tracks within every group and tags each marker with the
// index of its group.
func CreateSwimlanes(groups []TagGroup) []MarkerWithTrack {
	var out []MarkerWithTrack
	for i, g := range groups {
		for _, m := range AssignTracks(g.Markers) {
			m.SwimlaneIndex = i
			out = append(out, m)
		}
	}
	return out
}

// GetTrackCountsByGroup returns the number of tracks used by each swimlane.
// A swimlane without markers reports 0.
func GetTrackCountsByGroup(groups []TagGroup, tracked []MarkerWithTrack) []int {
	counts := make([]int, len(groups))
	for _, m := range tracked {
		if m.SwimlaneIndex < 0 || m.SwimlaneIndex >= len(counts) {
			continue
		}
		if m.Track+1 > counts[m.SwimlaneIndex] {
			counts[m.SwimlaneIndex] = m.Track + 1
		}
	}
	return counts
}
