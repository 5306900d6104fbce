package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every table AutoMigrate creates, parents before children.
var DatabaseModels = []interface{}{
	&ShotBoundary{},
	&DerivedMarkerConfig{},
	&MarkerDerivation{},
	&SlotDefinitionSet{},
	&SlotDefinition{},
	&MarkerSlot{},
}

// ShotBoundary is one shot interval of a scene. Shots of a scene are contiguous.
type ShotBoundary struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	SceneID   string    `json:"sceneId" gorm:"size:64;index:idx_shot_boundaries_scene_start,priority:1"`
	StartTime float64   `json:"startTime" gorm:"index:idx_shot_boundaries_scene_start,priority:2"`
	EndTime   *float64  `json:"endTime"`
	Source    string    `json:"source" gorm:"size:16;default:manual"`
}

func (*ShotBoundary) TableName() string { return "shot_boundaries" }

// DerivedMarkerConfig is a derivation rule. SlotMappings holds a JSON array of
// {"fromSlotId","toSlotId"} objects.
type DerivedMarkerConfig struct {
	ID               string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	SourceTagID      string         `json:"sourceTagId" gorm:"size:64;uniqueIndex:idx_derived_marker_configs_pair,priority:1"`
	DerivedTagID     string         `json:"derivedTagId" gorm:"size:64;uniqueIndex:idx_derived_marker_configs_pair,priority:2"`
	RelationshipType string         `json:"relationshipType" gorm:"size:32;default:implies"`
	SlotMappings     datatypes.JSON `json:"slotMappings"`
}

func (*DerivedMarkerConfig) TableName() string { return "derived_marker_configs" }

// MarkerDerivation records that a derived marker was created from a source marker by a rule.
type MarkerDerivation struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt       time.Time `json:"createdAt"`
	SourceMarkerID  string    `json:"sourceMarkerId" gorm:"size:64;index:idx_marker_derivations_source"`
	DerivedMarkerID string    `json:"derivedMarkerId" gorm:"size:64;index"`
	RuleID          string    `json:"ruleId" gorm:"size:140"`
	Depth           int       `json:"depth"`
}

func (*MarkerDerivation) TableName() string { return "marker_derivations" }

// SlotDefinitionSet groups the slot definitions of one tag.
type SlotDefinitionSet struct {
	ID                                string           `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt                         time.Time        `json:"createdAt"`
	UpdatedAt                         time.Time        `json:"updatedAt"`
	TagID                             string           `json:"tagId" gorm:"size:64;uniqueIndex"`
	AllowSamePerformerInMultipleSlots bool             `json:"allowSamePerformerInMultipleSlots"`
	Slots                             []SlotDefinition `json:"slots" gorm:"foreignKey:SetID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (*SlotDefinitionSet) TableName() string { return "slot_definition_sets" }

// SlotDefinition is a performer role. GenderHints is a JSON array of gender strings.
type SlotDefinition struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	SetID        string         `json:"setId" gorm:"size:36;index"`
	TagID        string         `json:"tagId" gorm:"size:64"`
	Label        string         `json:"label" gorm:"size:127"`
	GenderHints  datatypes.JSON `json:"genderHints"`
	DisplayOrder int            `json:"order"`
}

func (*SlotDefinition) TableName() string { return "slot_definitions" }

// MarkerSlot assigns a performer to a slot on a Stash marker.
type MarkerSlot struct {
	ID               string `json:"id" gorm:"primaryKey;size:36"`
	MarkerID         string `json:"markerId" gorm:"size:64;index"`
	SlotDefinitionID string `json:"slotDefinitionId" gorm:"size:36"`
	PerformerID      string `json:"performerId" gorm:"size:64"`
	Position         int    `json:"position"`
}

func (*MarkerSlot) TableName() string { return "marker_slots" }
