package timeline

import (
	"math"

	"github.com/markerlab/markerlab/pkg/core"
)

// Layout holds the tunable constants of the timeline geometry.
type Layout struct {
	// FallbackPixelsPerMinute is used when the container width is unknown.
	FallbackPixelsPerMinute float64
	// FitTolerance is how close (in px) the zoomed width must be to the
	// available width to snap to it.
	FitTolerance float64
	// MinMarkerWidth keeps point markers clickable.
	MinMarkerWidth float64
	// PointMarkerDuration is the duration assumed for markers without a usable end.
	PointMarkerDuration float64
}

// DefaultLayout returns the layout used by the review UI.
func DefaultLayout() Layout {
	return Layout{
		FallbackPixelsPerMinute: 300,
		FitTolerance:            2,
		MinMarkerWidth:          4,
		PointMarkerDuration:     0.1,
	}
}

// Width is the result of CalculateTimelineWidth.
type Width struct {
	Width           float64 `json:"width"`
	PixelsPerSecond float64 `json:"pixelsPerSecond"`
}

// MarkerBox is the horizontal extent of a rendered marker.
type MarkerBox struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// TimeToPixels converts seconds to a pixel offset.
func TimeToPixels(t, pixelsPerSecond float64) float64 {
	return t * pixelsPerSecond
}

// PixelsToTime converts a pixel offset to seconds. A zero rate maps to 0.
func PixelsToTime(px, pixelsPerSecond float64) float64 {
	if pixelsPerSecond == 0 {
		return 0
	}
	return px / pixelsPerSecond
}

// CalculateTimelineWidth computes the scrollable width of the timeline for a video
// of duration seconds at the given zoom. At zoom≈1 the timeline fits the container.
func (l Layout) CalculateTimelineWidth(duration, zoom, containerWidth, labelWidth float64) Width {
	if duration <= 0 {
		return Width{}
	}

	minutes := duration / 60
	available := containerWidth - labelWidth

	basePPM := l.FallbackPixelsPerMinute
	if containerWidth > 0 && available > 0 {
		basePPM = available / minutes
	}

	ideal := math.Round(minutes * basePPM * zoom)

	width := ideal
	if available > 0 && math.Abs(ideal-available) <= l.FitTolerance {
		width = available
	}

	return Width{
		Width:           width,
		PixelsPerSecond: width / duration,
	}
}

// CalculateMarkerPosition places a marker on the timeline. Point and zero-length
// markers get PointMarkerDuration and never render narrower than MinMarkerWidth.
func (l Layout) CalculateMarkerPosition(m core.Marker, pixelsPerSecond float64) MarkerBox {
	duration := l.PointMarkerDuration
	if end, ok := m.End(); ok && end > m.Seconds {
		duration = math.Max(end-m.Seconds, l.PointMarkerDuration)
	}

	return MarkerBox{
		Left:  TimeToPixels(m.Seconds, pixelsPerSecond),
		Width: math.Max(l.MinMarkerWidth, duration*pixelsPerSecond),
	}
}

// CalculatePlayheadPosition returns the playhead's pixel offset.
func (l Layout) CalculatePlayheadPosition(currentTime, pixelsPerSecond float64) float64 {
	return TimeToPixels(currentTime, pixelsPerSecond)
}

// CalculateCenterScrollPosition returns the scroll offset that centres targetTime.
func (l Layout) CalculateCenterScrollPosition(targetTime, pixelsPerSecond, labelWidth, containerWidth float64) float64 {
	return math.Max(0, labelWidth+targetTime*pixelsPerSecond-containerWidth/2)
}

// IsMarkerVisible reports whether the marker's midpoint lies in the visible
// part of the scroll container (right of the label column).
func (l Layout) IsMarkerVisible(m core.Marker, pixelsPerSecond, scrollLeft, containerWidth, labelWidth float64) bool {
	mid := m.Seconds
	if end, ok := m.End(); ok && end > m.Seconds {
		mid = (m.Seconds + end) / 2
	}

	x := labelWidth + TimeToPixels(mid, pixelsPerSecond)
	return x >= scrollLeft+labelWidth && x <= scrollLeft+containerWidth
}
