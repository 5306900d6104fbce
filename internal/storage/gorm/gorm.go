// Package gormstorage implements the storage.Backend interface on GORM. The
// same code serves PostgreSQL and SQLite; the caller picks the dialect by the
// *gorm.DB it injects.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/markerlab/markerlab/internal/logging"
	"github.com/markerlab/markerlab/internal/model"
	"github.com/markerlab/markerlab/internal/model/convert"
	"github.com/markerlab/markerlab/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend with synchronous GORM queries.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend needs a database connection")
	}
	log := b.deps.LogManager
	log.WriteLog("Init", "Migrating schema", "INFO")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.WriteLog("Init", "Database setup complete", "INFO")
	return nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

func (b *Backend) db(ctx context.Context) *gorm.DB {
	return b.deps.DB.WithContext(ctx)
}

func (b *Backend) ShotBoundaries(ctx context.Context, sceneID string) ([]core.ShotBoundary, error) {
	var rows []model.ShotBoundary
	if err := b.db(ctx).Where("scene_id = ?", sceneID).Order("start_time").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load shot boundaries: %w", err)
	}
	out := make([]core.ShotBoundary, len(rows))
	for i, r := range rows {
		out[i] = convert.ShotBoundaryToCore(r)
	}
	return out, nil
}

// ApplyShotBoundaryActions runs the plan in one transaction.
func (b *Backend) ApplyShotBoundaryActions(ctx context.Context, sceneID string, actions []core.ShotBoundaryAction) ([]string, error) {
	var created []string
	err := b.db(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range actions {
			switch a.Type {
			case core.ActionCreate:
				row := convert.CoreToShotBoundary(core.ShotBoundary{
					ID:        uuid.NewString(),
					SceneID:   sceneID,
					StartTime: a.StartTime,
					EndTime:   a.EndTime,
					Source:    core.SourceManual,
				})
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create shot boundary: %w", err)
				}
				created = append(created, row.ID)
			case core.ActionUpdate:
				res := tx.Model(&model.ShotBoundary{}).
					Where("id = ? AND scene_id = ?", a.ID, sceneID).
					Updates(map[string]any{"start_time": a.StartTime, "end_time": a.EndTime})
				if err := rowsAffected(res, "shot boundary", a.ID); err != nil {
					return err
				}
			case core.ActionDelete:
				res := tx.Where("id = ? AND scene_id = ?", a.ID, sceneID).Delete(&model.ShotBoundary{})
				if err := rowsAffected(res, "shot boundary", a.ID); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown action type: %s", a.Type)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func rowsAffected(res *gorm.DB, what, id string) error {
	if res.Error != nil {
		return fmt.Errorf("failed to write %s %s: %w", what, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func (b *Backend) DerivationRules(ctx context.Context) ([]core.DerivedMarkerConfig, error) {
	var rows []model.DerivedMarkerConfig
	if err := b.db(ctx).Order("source_tag_id, derived_tag_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load derivation rules: %w", err)
	}
	out := make([]core.DerivedMarkerConfig, len(rows))
	for i, r := range rows {
		out[i] = convert.DerivedMarkerConfigToCore(r)
	}
	return out, nil
}

// SaveDerivationRule upserts by source/derived tag pair.
func (b *Backend) SaveDerivationRule(ctx context.Context, rule *core.DerivedMarkerConfig) error {
	return b.db(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.DerivedMarkerConfig
		err := tx.Where("source_tag_id = ? AND derived_tag_id = ?", rule.SourceTagID, rule.DerivedTagID).First(&existing).Error
		switch {
		case err == nil:
			if rule.ID == "" {
				rule.ID = existing.ID
			} else if existing.ID != rule.ID {
				if err := tx.Delete(&existing).Error; err != nil {
					return fmt.Errorf("failed to replace derivation rule: %w", err)
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to look up derivation rule: %w", err)
		}
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		row := convert.CoreToDerivedMarkerConfig(*rule)
		rule.RelationshipType = row.RelationshipType
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save derivation rule: %w", err)
		}
		return nil
	})
}

func (b *Backend) DeleteDerivationRule(ctx context.Context, id string) error {
	return rowsAffected(b.db(ctx).Where("id = ?", id).Delete(&model.DerivedMarkerConfig{}), "derivation rule", id)
}

func (b *Backend) MaterializedRuleIDs(ctx context.Context, markerIDs []string) (map[string]map[string]bool, error) {
	out := make(map[string]map[string]bool)
	if len(markerIDs) == 0 {
		return out, nil
	}
	var rows []model.MarkerDerivation
	if err := b.db(ctx).Where("source_marker_id IN ?", markerIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load materializations: %w", err)
	}
	for _, r := range rows {
		if out[r.SourceMarkerID] == nil {
			out[r.SourceMarkerID] = make(map[string]bool)
		}
		out[r.SourceMarkerID][r.RuleID] = true
	}
	return out, nil
}

func (b *Backend) RecordMaterialization(ctx context.Context, d *core.MaterializedDerivation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	row := convert.CoreToMarkerDerivation(*d)
	if err := b.db(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record materialization: %w", err)
	}
	return nil
}

func (b *Backend) DerivedMarkerIDs(ctx context.Context, markerIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(markerIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := b.db(ctx).Model(&model.MarkerDerivation{}).
		Where("derived_marker_id IN ?", markerIDs).
		Pluck("derived_marker_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load derived markers: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (b *Backend) SlotDefinitionSet(ctx context.Context, tagID string) (core.SlotDefinitionSet, error) {
	var row model.SlotDefinitionSet
	err := b.db(ctx).Preload("Slots").Where("tag_id = ?", tagID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.SlotDefinitionSet{}, fmt.Errorf("slot definition set for tag %s: %w", tagID, core.ErrNotFound)
	}
	if err != nil {
		return core.SlotDefinitionSet{}, fmt.Errorf("failed to load slot definition set: %w", err)
	}
	return convert.SlotDefinitionSetToCore(row), nil
}

// SaveSlotDefinitionSet replaces the tag's set and all of its slots.
func (b *Backend) SaveSlotDefinitionSet(ctx context.Context, set *core.SlotDefinitionSet) error {
	return b.db(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.SlotDefinitionSet
		err := tx.Where("tag_id = ?", set.TagID).First(&existing).Error
		switch {
		case err == nil:
			if set.ID == "" {
				set.ID = existing.ID
			}
			if err := tx.Where("set_id = ?", existing.ID).Delete(&model.SlotDefinition{}).Error; err != nil {
				return fmt.Errorf("failed to clear slot definitions: %w", err)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to replace slot definition set: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to look up slot definition set: %w", err)
		}

		if set.ID == "" {
			set.ID = uuid.NewString()
		}
		for i := range set.Slots {
			if set.Slots[i].ID == "" {
				set.Slots[i].ID = uuid.NewString()
			}
			set.Slots[i].TagID = set.TagID
			set.Slots[i].Order = i
		}
		row := convert.CoreToSlotDefinitionSet(*set)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save slot definition set: %w", err)
		}
		return nil
	})
}

func (b *Backend) MarkerSlots(ctx context.Context, markerIDs []string) (map[string][]core.SlotAssignment, error) {
	if len(markerIDs) == 0 {
		return map[string][]core.SlotAssignment{}, nil
	}
	var rows []model.MarkerSlot
	if err := b.db(ctx).Where("marker_id IN ?", markerIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load marker slots: %w", err)
	}
	return convert.MarkerSlotsToCore(rows), nil
}

func (b *Backend) SetMarkerSlots(ctx context.Context, markerID string, slots []core.SlotAssignment) error {
	return b.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("marker_id = ?", markerID).Delete(&model.MarkerSlot{}).Error; err != nil {
			return fmt.Errorf("failed to clear marker slots: %w", err)
		}
		rows := convert.CoreToMarkerSlots(markerID, slots)
		for i := range rows {
			rows[i].ID = uuid.NewString()
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save marker slots: %w", err)
		}
		return nil
	})
}
