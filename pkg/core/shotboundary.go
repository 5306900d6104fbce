// pkg/core/shotboundary.go
package core

// BoundarySource records how a shot boundary was created.
type BoundarySource string

const (
	SourceManual   BoundarySource = "manual"
	SourceDetected BoundarySource = "detected"
)

// ShotBoundary is one shot interval of a scene. A nil EndTime is open-ended.
type ShotBoundary struct {
	ID        string
	SceneID   string
	StartTime float64
	EndTime   *float64
	Source    BoundarySource
}

// ActionType is the kind of change a shot boundary plan asks for.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// ShotBoundaryAction is one planned storage change. ID is empty for creates.
type ShotBoundaryAction struct {
	Type      ActionType `json:"type"`
	ID        string     `json:"id,omitempty"`
	StartTime float64    `json:"startTime"`
	EndTime   *float64   `json:"endTime,omitempty"`
}
