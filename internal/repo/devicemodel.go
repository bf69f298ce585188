package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"devicemodel/internal/models"
	"devicemodel/internal/store"
)

// Variables every new component gets an Actual attribute for, read-only and
// "true" until the station reports otherwise.
var defaultComponentVariables = []string{"Present", "Available", "Enabled"}

type Stores struct {
	Evses           store.EntityStore[models.Evse]
	Components      store.EntityStore[models.Component]
	Variables       store.EntityStore[models.Variable]
	Links           store.EntityStore[models.ComponentVariable]
	Characteristics store.EntityStore[models.VariableCharacteristics]
	Attributes      store.EntityStore[models.VariableAttribute]
	Statuses        store.EntityStore[models.VariableStatus]
}

func NewStores(db *gorm.DB) (Stores, error) {
	var (
		s   Stores
		err error
	)
	if s.Evses, err = store.NewGormStore[models.Evse](db); err != nil {
		return Stores{}, err
	}
	if s.Components, err = store.NewGormStore[models.Component](db); err != nil {
		return Stores{}, err
	}
	if s.Variables, err = store.NewGormStore[models.Variable](db); err != nil {
		return Stores{}, err
	}
	if s.Links, err = store.NewGormStore[models.ComponentVariable](db); err != nil {
		return Stores{}, err
	}
	if s.Characteristics, err = store.NewGormStore[models.VariableCharacteristics](db); err != nil {
		return Stores{}, err
	}
	if s.Attributes, err = store.NewGormStore[models.VariableAttribute](db); err != nil {
		return Stores{}, err
	}
	if s.Statuses, err = store.NewGormStore[models.VariableStatus](db); err != nil {
		return Stores{}, err
	}
	return s, nil
}

type DeviceModelRepo struct {
	s     Stores
	links LinkWriter
	log   *zap.Logger
}

func NewDeviceModelRepo(s Stores, links LinkWriter, log *zap.Logger) *DeviceModelRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceModelRepo{s: s, links: links, log: log}
}

// ComponentAndVariable is the result of a lookup by natural keys. Any part may
// be nil when it does not exist.
type ComponentAndVariable struct {
	Component       *models.Component               `json:"component,omitempty"`
	Variable        *models.Variable                `json:"variable,omitempty"`
	Characteristics *models.VariableCharacteristics `json:"variableCharacteristics,omitempty"`
}

// CreateOrUpdateDeviceModelByStationID merges one report into the device model
// and returns the written attributes in report order.
func (r *DeviceModelRepo) CreateOrUpdateDeviceModelByStationID(ctx context.Context, report models.ReportDataType, stationID string) ([]models.VariableAttribute, error) {
	seen := make(map[models.AttributeEnum]bool, len(report.VariableAttribute))
	for _, a := range report.VariableAttribute {
		t := a.EffectiveType()
		if seen[t] {
			return nil, fmt.Errorf("%w: duplicate attribute type %s for %s/%s",
				ErrValidation, t, report.Component.Name, report.Variable.Name)
		}
		seen[t] = true
	}

	component, variable, err := r.FindOrCreateEvseAndComponentAndVariable(ctx, report.Component, report.Variable, stationID)
	if err != nil {
		return nil, err
	}

	var dataType *models.DataEnum
	if vc := report.VariableCharacteristics; vc != nil {
		saved, _, err := r.s.Characteristics.Upsert(ctx, models.VariableCharacteristics{
			VariableID:         variable.ID,
			Unit:               vc.Unit,
			DataType:           vc.DataType,
			MinLimit:           vc.MinLimit,
			MaxLimit:           vc.MaxLimit,
			ValuesList:         vc.ValuesList,
			SupportsMonitoring: vc.SupportsMonitoring,
		})
		if err != nil {
			return nil, err
		}
		dataType = &saved.DataType
	}

	out := make([]models.VariableAttribute, len(report.VariableAttribute))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range report.VariableAttribute {
		i, a := i, a
		g.Go(func() error {
			saved, _, err := r.s.Attributes.Upsert(gctx, attributeRow(stationID, component, variable, dataType, a))
			if err != nil {
				return err
			}
			out[i] = saved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// attributeRow sets every column so that an update resets omitted optional
// fields to their protocol defaults.
func attributeRow(stationID string, c models.Component, v models.Variable, dataType *models.DataEnum, a models.VariableAttributeType) models.VariableAttribute {
	row := models.VariableAttribute{
		StationID:      stationID,
		VariableID:     v.ID,
		ComponentID:    c.ID,
		EvseDatabaseID: c.EvseDatabaseID,
		Type:           a.EffectiveType(),
		DataType:       dataType,
		Value:          a.Value,
		Mutability:     models.MutabilityReadWrite,
	}
	if a.Mutability != nil && *a.Mutability != "" {
		row.Mutability = *a.Mutability
	}
	if a.Persistent != nil {
		row.Persistent = *a.Persistent
	}
	if a.Constant != nil {
		row.Constant = *a.Constant
	}
	return row
}

// FindOrCreateEvseAndComponentAndVariable resolves the identity rows a report
// refers to, creating what is missing.
func (r *DeviceModelRepo) FindOrCreateEvseAndComponentAndVariable(ctx context.Context, ct models.ComponentType, vt models.VariableType, stationID string) (models.Component, models.Variable, error) {
	component, err := r.findOrCreateEvseAndComponent(ctx, ct, stationID)
	if err != nil {
		return models.Component{}, models.Variable{}, err
	}
	variable, err := r.findOrCreateVariable(ctx, vt.Name, vt.Instance)
	if err != nil {
		return models.Component{}, models.Variable{}, err
	}
	r.links.Link(ctx, component.ID, variable.ID)
	return component, variable, nil
}

func (r *DeviceModelRepo) findOrCreateEvseAndComponent(ctx context.Context, ct models.ComponentType, stationID string) (models.Component, error) {
	var evse *models.Evse
	if ct.Evse != nil {
		e, _, err := r.s.Evses.ReadOrCreateByQuery(ctx,
			store.Query{Where: store.Where{"id": ct.Evse.ID, "connector_id": models.NullableInt(ct.Evse.ConnectorID)}},
			models.Evse{ID: ct.Evse.ID, ConnectorID: ct.Evse.ConnectorID})
		if err != nil {
			return models.Component{}, err
		}
		evse = &e
	}

	candidate := models.Component{Name: ct.Name, Instance: optional(ct.Instance)}
	if evse != nil {
		candidate.EvseDatabaseID = &evse.DatabaseID
	}
	component, created, err := r.s.Components.ReadOrCreateByQuery(ctx,
		store.Query{Where: store.Where{"name": ct.Name, "instance": models.NullableString(ct.Instance)}},
		candidate)
	if err != nil {
		return models.Component{}, err
	}

	if !created && evse != nil && (component.EvseDatabaseID == nil || *component.EvseDatabaseID != evse.DatabaseID) {
		component, err = r.s.Components.UpdateByKey(ctx, map[string]any{"evse_database_id": evse.DatabaseID}, component.ID)
		if err != nil {
			return models.Component{}, err
		}
		r.log.Debug("component moved to evse",
			zap.String("component", ct.Name), zap.Int("evse_id", evse.ID))
	}

	if created {
		r.log.Debug("component created",
			zap.String("station_id", stationID), zap.String("component", ct.Name), zap.Uint("component_id", component.ID))
		if err := r.provisionDefaults(ctx, component, stationID); err != nil {
			return models.Component{}, err
		}
	}
	return component, nil
}

func (r *DeviceModelRepo) findOrCreateVariable(ctx context.Context, name string, instance *string) (models.Variable, error) {
	v, _, err := r.s.Variables.ReadOrCreateByQuery(ctx,
		store.Query{Where: store.Where{"name": name, "instance": models.NullableString(instance)}},
		models.Variable{Name: name, Instance: optional(instance)})
	return v, err
}

func (r *DeviceModelRepo) provisionDefaults(ctx context.Context, component models.Component, stationID string) error {
	for _, name := range defaultComponentVariables {
		variable, err := r.findOrCreateVariable(ctx, name, nil)
		if err != nil {
			return err
		}
		r.links.Link(ctx, component.ID, variable.ID)

		boolean := models.DataBoolean
		value := "true"
		if _, err := r.s.Attributes.Create(ctx, models.VariableAttribute{
			StationID:      stationID,
			VariableID:     variable.ID,
			ComponentID:    component.ID,
			EvseDatabaseID: component.EvseDatabaseID,
			Type:           models.AttributeActual,
			DataType:       &boolean,
			Value:          &value,
			Mutability:     models.MutabilityReadOnly,
		}); err != nil {
			return err
		}
	}
	return nil
}

// CreateOrUpdateByGetVariablesResultAndStationID reconciles each reported value
// and records the station's answer in the attribute's status history.
func (r *DeviceModelRepo) CreateOrUpdateByGetVariablesResultAndStationID(ctx context.Context, results []models.GetVariableResultType, stationID string) ([]models.VariableAttribute, error) {
	out := make([]models.VariableAttribute, 0, len(results))
	for _, res := range results {
		saved, err := r.CreateOrUpdateDeviceModelByStationID(ctx, models.ReportDataType{
			Component: res.Component,
			Variable:  res.Variable,
			VariableAttribute: []models.VariableAttributeType{
				{Type: res.AttributeType, Value: res.AttributeValue},
			},
		}, stationID)
		if err != nil {
			return nil, err
		}
		va := saved[0]
		if err := r.recordStatus(ctx, va.ID, res.AttributeValue, string(res.AttributeStatus), res.AttributeStatusInfo); err != nil {
			return nil, err
		}
		out = append(out, va)
	}
	return out, nil
}

// CreateOrUpdateBySetVariablesDataAndStationID stages requested values. No
// status is recorded until the station answers.
func (r *DeviceModelRepo) CreateOrUpdateBySetVariablesDataAndStationID(ctx context.Context, data []models.SetVariableDataType, stationID string) ([]models.VariableAttribute, error) {
	out := make([]models.VariableAttribute, 0, len(data))
	for _, d := range data {
		value := d.AttributeValue
		saved, err := r.CreateOrUpdateDeviceModelByStationID(ctx, models.ReportDataType{
			Component: d.Component,
			Variable:  d.Variable,
			VariableAttribute: []models.VariableAttributeType{
				{Type: d.AttributeType, Value: &value},
			},
		}, stationID)
		if err != nil {
			return nil, err
		}
		out = append(out, saved[0])
	}
	return out, nil
}

// UpdateResultByStationID records a SetVariables answer against the existing
// attribute. The stored value is left as it is.
func (r *DeviceModelRepo) UpdateResultByStationID(ctx context.Context, result models.SetVariableResultType, stationID string) (models.VariableAttribute, error) {
	rows, err := r.s.Attributes.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"station_id": stationID, "type": models.EffectiveType(result.AttributeType)},
		Include: []store.Include{
			{Relation: "Component", Where: store.Where{
				"name": result.Component.Name, "instance": models.NullableString(result.Component.Instance),
			}},
			{Relation: "Variable", Where: store.Where{
				"name": result.Variable.Name, "instance": models.NullableString(result.Variable.Instance),
			}},
		},
	})
	if err != nil {
		return models.VariableAttribute{}, err
	}
	if len(rows) == 0 {
		return models.VariableAttribute{}, fmt.Errorf("%w: %s attribute of %s/%s on station %s", ErrNotFound,
			models.EffectiveType(result.AttributeType), result.Component.Name, result.Variable.Name, stationID)
	}

	va := rows[0]
	if err := r.recordStatus(ctx, va.ID, va.Value, string(result.AttributeStatus), result.AttributeStatusInfo); err != nil {
		return models.VariableAttribute{}, err
	}

	rows, err = r.s.Attributes.ReadAllByQuery(ctx, store.Query{
		Where:   store.Where{"id": va.ID},
		Include: []store.Include{{Relation: "Component"}, {Relation: "Variable"}, {Relation: "Statuses"}},
	})
	if err != nil {
		return models.VariableAttribute{}, err
	}
	if len(rows) == 0 {
		return models.VariableAttribute{}, fmt.Errorf("%w: variable attribute %d", ErrNotFound, va.ID)
	}
	return rows[0], nil
}

func (r *DeviceModelRepo) recordStatus(ctx context.Context, attributeID uint, value *string, status string, info *models.StatusInfoType) error {
	_, err := r.s.Statuses.Create(ctx, models.VariableStatus{
		VariableAttributeID: attributeID,
		Value:               value,
		Status:              status,
		StatusInfo:          info,
	})
	return err
}

// ReadAllSetVariableByStationID returns the station's boot configuration as
// SetVariableData, one entry per attribute linked to a boot configuration set.
func (r *DeviceModelRepo) ReadAllSetVariableByStationID(ctx context.Context, stationID string) ([]models.SetVariableDataType, error) {
	rows, err := r.s.Attributes.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"station_id": stationID, "boot_config_set_id": store.NotNull},
		Include: []store.Include{
			{Relation: "Component"},
			{Relation: "Variable"},
			{Relation: "Evse"},
		},
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.SetVariableDataType, 0, len(rows))
	for _, va := range rows {
		if va.Value == nil || *va.Value == "" {
			return nil, fmt.Errorf("%w: variable attribute %d has no value", ErrValidation, va.ID)
		}
		t := va.Type
		data := models.SetVariableDataType{
			AttributeType:  &t,
			AttributeValue: *va.Value,
		}
		if va.Component != nil {
			data.Component = models.ComponentType{Name: va.Component.Name, Instance: va.Component.Instance}
		}
		if va.Evse != nil {
			data.Component.Evse = &models.EVSEType{ID: va.Evse.ID, ConnectorID: va.Evse.ConnectorID}
		}
		if va.Variable != nil {
			data.Variable = models.VariableType{Name: va.Variable.Name, Instance: va.Variable.Instance}
		}
		out = append(out, data)
	}
	return out, nil
}

// AssignBootConfigSet links the given attributes of one station to a boot
// configuration set. Nothing is written unless every id belongs to the station.
func (r *DeviceModelRepo) AssignBootConfigSet(ctx context.Context, bootConfigSetID, stationID string, attributeIDs []uint) ([]models.VariableAttribute, error) {
	if bootConfigSetID == "" {
		return nil, fmt.Errorf("%w: boot config set id is required", ErrValidation)
	}
	for _, id := range attributeIDs {
		n, err := r.s.Attributes.ExistByQuery(ctx, store.Query{Where: store.Where{"id": id, "station_id": stationID}})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: variable attribute %d on station %s", ErrNotFound, id, stationID)
		}
	}

	out := make([]models.VariableAttribute, 0, len(attributeIDs))
	for _, id := range attributeIDs {
		va, err := r.s.Attributes.UpdateByKey(ctx, map[string]any{"boot_config_set_id": bootConfigSetID}, id)
		if err != nil {
			return nil, err
		}
		out = append(out, va)
	}
	return out, nil
}

func (r *DeviceModelRepo) ReadAllByQuery(ctx context.Context, p VariableAttributeQuery) ([]models.VariableAttribute, error) {
	return r.s.Attributes.ReadAllByQuery(ctx, withStatuses(BuildAttributeQuery(p)))
}

func (r *DeviceModelRepo) ExistByQuery(ctx context.Context, p VariableAttributeQuery) (int64, error) {
	return r.s.Attributes.ExistByQuery(ctx, BuildAttributeQuery(p))
}

func (r *DeviceModelRepo) DeleteAllByQuery(ctx context.Context, p VariableAttributeQuery) ([]models.VariableAttribute, error) {
	return r.s.Attributes.DeleteAllByQuery(ctx, BuildAttributeQuery(p))
}

// FindComponentAndVariable looks both up by natural key without creating
// anything.
func (r *DeviceModelRepo) FindComponentAndVariable(ctx context.Context, ct models.ComponentType, vt models.VariableType) (ComponentAndVariable, error) {
	var out ComponentAndVariable

	components, err := r.s.Components.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"name": ct.Name, "instance": models.NullableString(ct.Instance)},
	})
	if err != nil {
		return out, err
	}
	if len(components) > 0 {
		out.Component = &components[0]
	}

	variables, err := r.s.Variables.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"name": vt.Name, "instance": models.NullableString(vt.Instance)},
	})
	if err != nil {
		return out, err
	}
	if len(variables) == 0 {
		return out, nil
	}
	out.Variable = &variables[0]

	characteristics, err := r.s.Characteristics.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"variable_id": out.Variable.ID},
	})
	if err != nil {
		return out, err
	}
	if len(characteristics) > 0 {
		out.Characteristics = &characteristics[0]
	}
	return out, nil
}

func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
