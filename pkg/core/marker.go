// pkg/core/marker.go
package core

// Marker is a tagged time interval on a scene's video.
// EndSeconds is nil for point markers.
type Marker struct {
	ID         string
	SceneID    string
	Title      string
	Seconds    float64
	EndSeconds *float64
	PrimaryTag Tag
	Tags       []Tag
	Slots      []SlotAssignment
}

// End returns the marker end time and whether the marker has one.
func (m Marker) End() (float64, bool) {
	if m.EndSeconds == nil {
		return m.Seconds, false
	}
	return *m.EndSeconds, true
}

// HasTag reports whether tagID is among the marker's secondary tags.
func (m Marker) HasTag(tagID string) bool {
	if tagID == "" {
		return false
	}
	for _, t := range m.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// Clone returns a copy of the marker that shares no slices with the original.
func (m Marker) Clone() Marker {
	out := m
	if m.EndSeconds != nil {
		end := *m.EndSeconds
		out.EndSeconds = &end
	}
	out.Tags = append([]Tag(nil), m.Tags...)
	out.Slots = append([]SlotAssignment(nil), m.Slots...)
	return out
}

// Float returns a pointer to v. Used for optional end times.
func Float(v float64) *float64 {
	return &v
}

// MarkerStatus is the review state of a marker.
type MarkerStatus int

const (
	StatusUnprocessed MarkerStatus = iota
	StatusConfirmed
	StatusRejected
)

func (s MarkerStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	default:
		return "unprocessed"
	}
}

// StatusTags holds the configured tag ids that mark a marker as confirmed or rejected.
type StatusTags struct {
	ConfirmedTagID string
	RejectedTagID  string
}

// Status resolves the review state of m. A rejected tag wins over a confirmed one.
func (s StatusTags) Status(m Marker) MarkerStatus {
	if m.HasTag(s.RejectedTagID) {
		return StatusRejected
	}
	if m.HasTag(s.ConfirmedTagID) {
		return StatusConfirmed
	}
	return StatusUnprocessed
}

// IsStatusTag reports whether tagID is one of the status tags.
func (s StatusTags) IsStatusTag(tagID string) bool {
	return tagID != "" && (tagID == s.ConfirmedTagID || tagID == s.RejectedTagID)
}
