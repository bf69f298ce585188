package repo

import (
	"devicemodel/internal/models"
	"devicemodel/internal/store"
)

// VariableAttributeQuery filters variable attributes. Zero fields are not
// constraints.
type VariableAttributeQuery struct {
	StationID              string
	ComponentName          string
	ComponentInstance      string
	ComponentEvseID        *int
	ComponentEvseConnector *int
	VariableName           string
	VariableInstance       string
	Type                   models.AttributeEnum
	Value                  string
	Status                 string
}

// BuildAttributeQuery turns p into a store query over variable attributes with
// Component (and its Evse) and Variable (and its characteristics) attached.
func BuildAttributeQuery(p VariableAttributeQuery) store.Query {
	where := store.Where{}
	if p.StationID != "" {
		where["station_id"] = p.StationID
	}
	if p.Type != "" {
		where["type"] = p.Type
	}
	if p.Value != "" {
		where["value"] = p.Value
	}

	component := store.Include{Relation: "Component", Where: store.Where{}}
	if p.ComponentName != "" {
		component.Where["name"] = p.ComponentName
	}
	if p.ComponentInstance != "" {
		component.Where["instance"] = p.ComponentInstance
	}
	evse := store.Include{Relation: "Evse"}
	if p.ComponentEvseID != nil || p.ComponentEvseConnector != nil {
		evse.Where = store.Where{}
		if p.ComponentEvseID != nil {
			evse.Where["id"] = *p.ComponentEvseID
		}
		if p.ComponentEvseConnector != nil {
			evse.Where["connector_id"] = *p.ComponentEvseConnector
		}
	}
	component.Include = []store.Include{evse}

	variable := store.Include{
		Relation: "Variable",
		Where:    store.Where{},
		Include:  []store.Include{{Relation: "Characteristics"}},
	}
	if p.VariableName != "" {
		variable.Where["name"] = p.VariableName
	}
	if p.VariableInstance != "" {
		variable.Where["instance"] = p.VariableInstance
	}

	q := store.Query{Where: where, Include: []store.Include{component, variable}}
	if p.Status != "" {
		q.Include = append(q.Include, store.Include{Relation: "Statuses", Where: store.Where{"status": p.Status}})
	}
	return q
}

// withStatuses attaches the status history unless q already does.
func withStatuses(q store.Query) store.Query {
	for _, inc := range q.Include {
		if inc.Relation == "Statuses" {
			return q
		}
	}
	q.Include = append(append([]store.Include(nil), q.Include...), store.Include{Relation: "Statuses"})
	return q
}
