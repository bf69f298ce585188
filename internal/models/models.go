package models

import "time"

// Evse rows are keyed by DatabaseID; ID is the station-scoped EVSE number and
// repeats across stations.
type Evse struct {
	DatabaseID  uint `gorm:"column:database_id;primaryKey" json:"databaseId"`
	ID          int  `gorm:"column:id;not null;uniqueIndex:idx_evses_natural_key" json:"id"`
	ConnectorID *int `gorm:"column:connector_id;uniqueIndex:idx_evses_natural_key" json:"connectorId,omitempty"`
}

func (e Evse) NaturalKey() map[string]any {
	return map[string]any{"id": e.ID, "connector_id": NullableInt(e.ConnectorID)}
}

type Component struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Name           string  `gorm:"not null;uniqueIndex:idx_components_natural_key" json:"name"`
	Instance       *string `gorm:"uniqueIndex:idx_components_natural_key" json:"instance,omitempty"`
	EvseDatabaseID *uint   `json:"evseDatabaseId,omitempty"`

	Evse *Evse `gorm:"foreignKey:EvseDatabaseID;references:DatabaseID" json:"evse,omitempty"`
}

func (c Component) NaturalKey() map[string]any {
	return map[string]any{"name": c.Name, "instance": NullableString(c.Instance)}
}

// Variable is global: one row is shared by every station and component that
// reports the same (name, instance).
type Variable struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"not null;uniqueIndex:idx_variables_natural_key" json:"name"`
	Instance *string `gorm:"uniqueIndex:idx_variables_natural_key" json:"instance,omitempty"`

	Characteristics *VariableCharacteristics `gorm:"foreignKey:VariableID" json:"variableCharacteristics,omitempty"`
}

func (v Variable) NaturalKey() map[string]any {
	return map[string]any{"name": v.Name, "instance": NullableString(v.Instance)}
}

type ComponentVariable struct {
	ComponentID uint `gorm:"primaryKey;autoIncrement:false" json:"componentId"`
	VariableID  uint `gorm:"primaryKey;autoIncrement:false" json:"variableId"`
}

func (cv ComponentVariable) NaturalKey() map[string]any {
	return map[string]any{"component_id": cv.ComponentID, "variable_id": cv.VariableID}
}

type VariableCharacteristics struct {
	ID                 uint     `gorm:"primaryKey" json:"id"`
	VariableID         uint     `gorm:"not null;uniqueIndex" json:"variableId"`
	Unit               *string  `json:"unit,omitempty"`
	DataType           DataEnum `gorm:"not null" json:"dataType"`
	MinLimit           *float64 `gorm:"type:decimal" json:"minLimit,omitempty"`
	MaxLimit           *float64 `gorm:"type:decimal" json:"maxLimit,omitempty"`
	ValuesList         *string  `gorm:"size:4000" json:"valuesList,omitempty"`
	SupportsMonitoring bool     `json:"supportsMonitoring"`
}

func (vc VariableCharacteristics) NaturalKey() map[string]any {
	return map[string]any{"variable_id": vc.VariableID}
}

// VariableAttribute is the current value of one (station, component, variable,
// evse, type) tuple. It is overwritten in place; history lives in VariableStatus.
type VariableAttribute struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	StationID       string         `gorm:"not null;uniqueIndex:idx_variable_attributes_natural_key" json:"stationId"`
	VariableID      uint           `gorm:"not null;uniqueIndex:idx_variable_attributes_natural_key" json:"variableId"`
	ComponentID     uint           `gorm:"not null;uniqueIndex:idx_variable_attributes_natural_key" json:"componentId"`
	EvseDatabaseID  *uint          `gorm:"uniqueIndex:idx_variable_attributes_natural_key" json:"evseDatabaseId,omitempty"`
	Type            AttributeEnum  `gorm:"not null;uniqueIndex:idx_variable_attributes_natural_key" json:"type"`
	DataType        *DataEnum      `json:"dataType,omitempty"`
	Value           *string        `gorm:"size:4000" json:"value,omitempty"`
	Mutability      MutabilityEnum `gorm:"not null" json:"mutability"`
	Persistent      bool           `gorm:"not null" json:"persistent"`
	Constant        bool           `gorm:"not null" json:"constant"`
	BootConfigSetID *string        `gorm:"index" json:"bootConfigSetId,omitempty"`

	Component *Component       `gorm:"foreignKey:ComponentID" json:"component,omitempty"`
	Variable  *Variable        `gorm:"foreignKey:VariableID" json:"variable,omitempty"`
	Evse      *Evse            `gorm:"foreignKey:EvseDatabaseID;references:DatabaseID" json:"evse,omitempty"`
	Statuses  []VariableStatus `gorm:"foreignKey:VariableAttributeID;constraint:OnDelete:CASCADE" json:"statuses,omitempty"`
}

func (va VariableAttribute) NaturalKey() map[string]any {
	return map[string]any{
		"station_id":       va.StationID,
		"variable_id":      va.VariableID,
		"component_id":     va.ComponentID,
		"evse_database_id": NullableUint(va.EvseDatabaseID),
		"type":             va.Type,
	}
}

// RetainedOnUpsert keeps the boot configuration linkage when a station report
// overwrites the attribute.
func (VariableAttribute) RetainedOnUpsert() []string {
	return []string{"boot_config_set_id"}
}

// VariableStatus is append-only.
type VariableStatus struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Value               *string         `gorm:"size:4000" json:"value"`
	Status              string          `gorm:"not null" json:"status"`
	StatusInfo          *StatusInfoType `gorm:"serializer:json" json:"statusInfo,omitempty"`
	VariableAttributeID uint            `gorm:"not null;index" json:"variableAttributeId"`
	CreatedAt           time.Time       `json:"createdAt"`
}

func (vs VariableStatus) NaturalKey() map[string]any {
	return map[string]any{"id": vs.ID}
}

// All lists every persisted row type in dependency order, for migrations.
func All() []any {
	return []any{
		&Evse{},
		&Component{},
		&Variable{},
		&ComponentVariable{},
		&VariableCharacteristics{},
		&VariableAttribute{},
		&VariableStatus{},
	}
}

// NullableString maps an absent or empty optional string to SQL NULL.
func NullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func NullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func NullableUint(u *uint) any {
	if u == nil {
		return nil
	}
	return *u
}

func (Evse) TableName() string                    { return "evses" }
func (Component) TableName() string               { return "components" }
func (Variable) TableName() string                { return "variables" }
func (ComponentVariable) TableName() string       { return "component_variables" }
func (VariableCharacteristics) TableName() string { return "variable_characteristics" }
func (VariableAttribute) TableName() string       { return "variable_attributes" }
func (VariableStatus) TableName() string          { return "variable_statuses" }
