package server

import (
	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/shotboundary"
	"github.com/markerlab/markerlab/internal/worker"
	"github.com/markerlab/markerlab/pkg/core"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Stash   string `json:"stash"`
	UptimeS int64  `json:"uptime_s"`
}

// PlayheadRequest is the body of shot boundary and review calls.
type PlayheadRequest struct {
	Time     float64  `json:"time"`
	Duration *float64 `json:"duration,omitempty"`
}

type ReviewRequest struct {
	SelectedID string  `json:"selectedId"`
	Command    string  `json:"command"`
	Time       float64 `json:"time"`
}

type KeyRequest struct {
	Key        string  `json:"key"`
	SelectedID string  `json:"selectedId"`
	Time       float64 `json:"time"`
}

type SlotAssignmentPayload struct {
	SlotDefinitionID string `json:"slotDefinitionId"`
	PerformerID      string `json:"performerId"`
}

type AssignSlotsRequest struct {
	Assignments []SlotAssignmentPayload `json:"assignments"`
}

type ShotBoundaryResponse struct {
	ID        string   `json:"id"`
	StartTime float64  `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
	Source    string   `json:"source"`
}

type ShotBoundariesResponse struct {
	Boundaries []ShotBoundaryResponse `json:"boundaries"`
}

type ShotPlanResponse struct {
	Plan       shotboundary.Plan      `json:"plan"`
	CreatedIDs []string               `json:"createdIds"`
	Boundaries []ShotBoundaryResponse `json:"boundaries"`
}

type MarkerResponse struct {
	ID           string                  `json:"id,omitempty"`
	Title        string                  `json:"title"`
	Seconds      float64                 `json:"seconds"`
	EndSeconds   *float64                `json:"endSeconds,omitempty"`
	PrimaryTagID string                  `json:"primaryTagId"`
	TagIDs       []string                `json:"tagIds"`
	Slots        []SlotAssignmentPayload `json:"slots,omitempty"`
}

type MaterializableResponse struct {
	Marker                MarkerResponse          `json:"marker"`
	TimeLabel             string                  `json:"timeLabel"`
	NewDerivations        []DerivedMarkerResponse `json:"newDerivations"`
	NewDerivationsCount   int                     `json:"newDerivationsCount"`
	TotalDerivationsCount int                     `json:"totalDerivationsCount"`
	DerivedTagNames       []string                `json:"derivedTagNames"`
}

type DerivedMarkerResponse struct {
	TagID          string                  `json:"tagId"`
	Slots          []SlotAssignmentPayload `json:"slots,omitempty"`
	Depth          int                     `json:"depth"`
	RuleID         string                  `json:"ruleId"`
	SourceMarkerID string                  `json:"sourceMarkerId"`
}

type AlreadyMaterializedResponse struct {
	Marker           MarkerResponse `json:"marker"`
	TimeLabel        string         `json:"timeLabel"`
	DerivationsCount int            `json:"derivationsCount"`
}

type SkippedResponse struct {
	Marker    MarkerResponse `json:"marker"`
	TimeLabel string         `json:"timeLabel"`
	Reason    string         `json:"reason"`
}

type AnalysisResponse struct {
	Materializable      []MaterializableResponse      `json:"materializable"`
	AlreadyMaterialized []AlreadyMaterializedResponse `json:"alreadyMaterialized"`
	Skipped             []SkippedResponse             `json:"skipped"`
}

type MaterializeResponse struct {
	Analysis AnalysisResponse `json:"analysis"`
	Created  []MarkerResponse `json:"created"`
}

type EffectResponse struct {
	Kind   string         `json:"kind"`
	Marker MarkerResponse `json:"marker"`
}

type ReviewResponse struct {
	SelectedID string           `json:"selectedId"`
	Effects    []EffectResponse `json:"effects"`
}

type CombinationResponse struct {
	Assignments []SlotAssignmentPayload `json:"assignments"`
	Description string                  `json:"description"`
}

type SlotSuggestionsResponse struct {
	MarkerID     string                  `json:"markerId"`
	Slots        []SlotDefinitionPayload `json:"slots"`
	Current      []SlotAssignmentPayload `json:"current"`
	Combinations []CombinationResponse   `json:"combinations"`
}

type SlotMappingPayload struct {
	FromSlotID string `json:"fromSlotId"`
	ToSlotID   string `json:"toSlotId"`
}

type RulePayload struct {
	ID               string               `json:"id,omitempty"`
	SourceTagID      string               `json:"sourceTagId"`
	DerivedTagID     string               `json:"derivedTagId"`
	RelationshipType string               `json:"relationshipType,omitempty"`
	SlotMappings     []SlotMappingPayload `json:"slotMappings"`
}

type RulesResponse struct {
	Rules []RulePayload `json:"rules"`
}

type SlotDefinitionPayload struct {
	ID          string   `json:"id,omitempty"`
	Label       string   `json:"label"`
	GenderHints []string `json:"genderHints"`
}

type SlotSetPayload struct {
	ID                                string                  `json:"id,omitempty"`
	TagID                             string                  `json:"tagId"`
	AllowSamePerformerInMultipleSlots bool                    `json:"allowSamePerformerInMultipleSlots"`
	Slots                             []SlotDefinitionPayload `json:"slots"`
}

func boundariesToResponse(bs []core.ShotBoundary) []ShotBoundaryResponse {
	out := make([]ShotBoundaryResponse, len(bs))
	for i, b := range bs {
		out[i] = ShotBoundaryResponse{ID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime, Source: string(b.Source)}
	}
	return out
}

func slotsToPayload(slots []core.SlotAssignment) []SlotAssignmentPayload {
	if len(slots) == 0 {
		return nil
	}
	out := make([]SlotAssignmentPayload, len(slots))
	for i, s := range slots {
		out[i] = SlotAssignmentPayload{SlotDefinitionID: s.SlotDefinitionID, PerformerID: s.PerformerID}
	}
	return out
}

func slotsFromPayload(slots []SlotAssignmentPayload) []core.SlotAssignment {
	out := make([]core.SlotAssignment, len(slots))
	for i, s := range slots {
		out[i] = core.SlotAssignment{SlotDefinitionID: s.SlotDefinitionID, PerformerID: s.PerformerID}
	}
	return out
}

func markerToResponse(m core.Marker) MarkerResponse {
	out := MarkerResponse{
		ID:           m.ID,
		Title:        m.Title,
		Seconds:      m.Seconds,
		EndSeconds:   m.EndSeconds,
		PrimaryTagID: m.PrimaryTag.ID,
		TagIDs:       []string{},
		Slots:        slotsToPayload(m.Slots),
	}
	for _, t := range m.Tags {
		out.TagIDs = append(out.TagIDs, t.ID)
	}
	return out
}

func derivedToResponse(ds []derive.DerivedMarker) []DerivedMarkerResponse {
	out := make([]DerivedMarkerResponse, len(ds))
	for i, d := range ds {
		out[i] = DerivedMarkerResponse{
			TagID:          d.TagID,
			Slots:          slotsToPayload(d.Slots),
			Depth:          d.Depth,
			RuleID:         d.RuleID,
			SourceMarkerID: d.SourceMarkerID,
		}
	}
	return out
}

func analysisToResponse(a derive.Analysis) AnalysisResponse {
	out := AnalysisResponse{
		Materializable:      []MaterializableResponse{},
		AlreadyMaterialized: []AlreadyMaterializedResponse{},
		Skipped:             []SkippedResponse{},
	}
	for _, m := range a.Materializable {
		out.Materializable = append(out.Materializable, MaterializableResponse{
			Marker:                markerToResponse(m.Marker),
			TimeLabel:             m.TimeLabel,
			NewDerivations:        derivedToResponse(m.NewDerivations),
			NewDerivationsCount:   m.NewDerivationsCount,
			TotalDerivationsCount: m.TotalDerivationsCount,
			DerivedTagNames:       m.DerivedTagNames,
		})
	}
	for _, m := range a.AlreadyMaterialized {
		out.AlreadyMaterialized = append(out.AlreadyMaterialized, AlreadyMaterializedResponse{
			Marker:           markerToResponse(m.Marker),
			TimeLabel:        m.TimeLabel,
			DerivationsCount: m.DerivationsCount,
		})
	}
	for _, m := range a.Skipped {
		out.Skipped = append(out.Skipped, SkippedResponse{
			Marker:    markerToResponse(m.Marker),
			TimeLabel: m.TimeLabel,
			Reason:    m.Reason,
		})
	}
	return out
}

func shotResultToResponse(r worker.ShotResult) ShotPlanResponse {
	return ShotPlanResponse{Plan: r.Plan, CreatedIDs: r.CreatedIDs, Boundaries: boundariesToResponse(r.Boundaries)}
}

func reviewToResponse(r worker.ReviewResult) ReviewResponse {
	out := ReviewResponse{SelectedID: r.SelectedID, Effects: []EffectResponse{}}
	for _, e := range r.Effects {
		out.Effects = append(out.Effects, EffectResponse{Kind: string(e.Kind), Marker: markerToResponse(e.Marker)})
	}
	return out
}

func ruleToPayload(r core.DerivedMarkerConfig) RulePayload {
	out := RulePayload{
		ID:               r.ID,
		SourceTagID:      r.SourceTagID,
		DerivedTagID:     r.DerivedTagID,
		RelationshipType: r.RelationshipType,
		SlotMappings:     []SlotMappingPayload{},
	}
	for _, m := range r.SlotMappings {
		out.SlotMappings = append(out.SlotMappings, SlotMappingPayload{FromSlotID: m.FromSlotID, ToSlotID: m.ToSlotID})
	}
	return out
}

func ruleFromPayload(p RulePayload) core.DerivedMarkerConfig {
	out := core.DerivedMarkerConfig{
		ID:               p.ID,
		SourceTagID:      p.SourceTagID,
		DerivedTagID:     p.DerivedTagID,
		RelationshipType: p.RelationshipType,
	}
	for _, m := range p.SlotMappings {
		out.SlotMappings = append(out.SlotMappings, core.SlotMapping{FromSlotID: m.FromSlotID, ToSlotID: m.ToSlotID})
	}
	return out
}

func definitionsToPayload(defs []core.SlotDefinition) []SlotDefinitionPayload {
	out := []SlotDefinitionPayload{}
	for _, d := range defs {
		p := SlotDefinitionPayload{ID: d.ID, Label: d.Label, GenderHints: []string{}}
		for _, g := range d.GenderHints {
			p.GenderHints = append(p.GenderHints, string(g))
		}
		out = append(out, p)
	}
	return out
}

func slotSetToPayload(s core.SlotDefinitionSet) SlotSetPayload {
	return SlotSetPayload{
		ID:                                s.ID,
		TagID:                             s.TagID,
		AllowSamePerformerInMultipleSlots: s.AllowSamePerformerInMultipleSlots,
		Slots:                             definitionsToPayload(s.Slots),
	}
}

func suggestionsToResponse(s worker.SlotSuggestions) SlotSuggestionsResponse {
	out := SlotSuggestionsResponse{
		MarkerID:     s.MarkerID,
		Slots:        definitionsToPayload(s.Slots),
		Current:      slotsToPayload(s.Current),
		Combinations: []CombinationResponse{},
	}
	for _, c := range s.Combinations {
		out.Combinations = append(out.Combinations, CombinationResponse{
			Assignments: slotsToPayload(c.Assignments),
			Description: c.Description,
		})
	}
	return out
}

// slotSetFromPayload drops gender hints Stash does not know.
func slotSetFromPayload(p SlotSetPayload) core.SlotDefinitionSet {
	out := core.SlotDefinitionSet{
		ID:                                p.ID,
		TagID:                             p.TagID,
		AllowSamePerformerInMultipleSlots: p.AllowSamePerformerInMultipleSlots,
	}
	for _, d := range p.Slots {
		def := core.SlotDefinition{ID: d.ID, Label: d.Label}
		for _, g := range d.GenderHints {
			if parsed := core.ParseGender(g); parsed != "" {
				def.GenderHints = append(def.GenderHints, parsed)
			}
		}
		out.Slots = append(out.Slots, def)
	}
	return out
}
